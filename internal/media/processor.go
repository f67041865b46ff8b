// Package media resolves inbound WhatsApp media to text before the
// conversation consumes it: voice notes are transcribed, photos are
// described by the vision model.
package media

import (
	"context"
	"fmt"
	"log/slog"

	"fieldops.app/incidentbot/common/llm"
	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/model"
)

const visionPromptTemplate = `Describe esta imagen tomada en una planta industrial.
El operador %s la envió como parte de un reporte de incidencia.
Describe el problema visible: equipo, componente, daño o condición anormal.
Sé específico y breve (máximo 3 oraciones). Responde en español.`

// Processor turns raw media bytes into attachment records with text
// descriptions. Failures wrap convo.ErrMedia so the conversation can
// apologize and re-ask instead of crashing the flow.
type Processor struct {
	client llm.MediaClient
}

func NewProcessor(client llm.MediaClient) *Processor {
	return &Processor{client: client}
}

// ProcessAudio transcribes a voice note.
func (p *Processor) ProcessAudio(ctx context.Context, content []byte, mimeType, filename string) (model.Attachment, error) {
	text, err := p.client.Transcribe(ctx, content, mimeType, "es")
	if err != nil {
		return model.Attachment{}, fmt.Errorf("transcribing voice note: %w: %w", convo.ErrMedia, err)
	}

	slog.DebugContext(ctx, "voice note transcribed", "bytes", len(content), "chars", len(text))

	return model.Attachment{
		Kind:        model.MediaKindAudio,
		Filename:    filename,
		Description: text,
		Content:     content,
	}, nil
}

// ProcessImage describes a photo. operatorName personalizes the vision
// prompt; it may be empty.
func (p *Processor) ProcessImage(ctx context.Context, content []byte, filename, operatorName string) (model.Attachment, error) {
	name := operatorName
	if name == "" {
		name = "de planta"
	}

	desc, err := p.client.DescribeImage(ctx, content, fmt.Sprintf(visionPromptTemplate, name))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("describing image: %w: %w", convo.ErrMedia, err)
	}

	slog.DebugContext(ctx, "image described", "bytes", len(content), "chars", len(desc))

	return model.Attachment{
		Kind:        model.MediaKindImage,
		Filename:    filename,
		Description: desc,
		Content:     content,
	}, nil
}
