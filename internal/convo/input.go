package convo

import (
	"fmt"
	"strings"

	"fieldops.app/incidentbot/internal/model"
)

// Input is one inbound operator message, with any media already resolved to
// text by the adapter (audio transcribed, images described).
type Input struct {
	Text  string
	Media []model.Attachment
}

// DisplayText is what goes into the history for this input.
func (in *Input) DisplayText() string {
	if in == nil {
		return ""
	}
	if in.Text != "" {
		return in.Text
	}
	for _, m := range in.Media {
		if m.Description != "" {
			return fmt.Sprintf("[%s] %s", m.Kind, m.Description)
		}
	}
	return ""
}

// descriptionText merges the typed text with media-derived text into the
// description contribution of this message.
func (in *Input) descriptionText() string {
	parts := []string{}
	if strings.TrimSpace(in.Text) != "" {
		parts = append(parts, strings.TrimSpace(in.Text))
	}
	for _, m := range in.Media {
		if m.Description == "" {
			continue
		}
		switch m.Kind {
		case model.MediaKindImage:
			parts = append(parts, fmt.Sprintf("[Descripción visual: %s]", m.Description))
		case model.MediaKindAudio:
			parts = append(parts, fmt.Sprintf("[Transcripción de audio: %s]", m.Description))
		}
	}
	return strings.Join(parts, "\n")
}
