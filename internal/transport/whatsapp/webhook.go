package whatsapp

import "encoding/json"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

// IncomingMessage is one inbound message extracted from a webhook payload.
type IncomingMessage struct {
	From      string
	MessageID string
	Type      MessageType
	Text      string
	MediaID   string
	MimeType  string
	Timestamp string
}

// webhookPayload mirrors the Cloud API webhook envelope, down to the parts
// this service consumes.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *webhookMedia `json:"image"`
	Audio *webhookMedia `json:"audio"`
}

type webhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
}

// ParseWebhook extracts the supported messages (text, image, audio) from a
// webhook payload. Unsupported message types are skipped.
func ParseWebhook(raw []byte) ([]IncomingMessage, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	var messages []IncomingMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				incoming := IncomingMessage{
					From:      msg.From,
					MessageID: msg.ID,
					Type:      MessageType(msg.Type),
					Timestamp: msg.Timestamp,
				}
				switch {
				case msg.Type == "text" && msg.Text != nil:
					incoming.Text = msg.Text.Body
				case msg.Type == "image" && msg.Image != nil:
					incoming.MediaID = msg.Image.ID
					incoming.MimeType = msg.Image.MimeType
					incoming.Text = msg.Image.Caption
				case msg.Type == "audio" && msg.Audio != nil:
					incoming.MediaID = msg.Audio.ID
					incoming.MimeType = msg.Audio.MimeType
				default:
					continue
				}
				messages = append(messages, incoming)
			}
		}
	}
	return messages, nil
}
