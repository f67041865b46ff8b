package model

import "time"

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

// Attachment is a media file captured during description collection.
// Content travels with the conversation checkpoint until save time, then
// is written to the ticket row under a generated storage key.
type Attachment struct {
	ID          int64     `json:"id,omitempty"`
	TicketID    int64     `json:"ticket_id,omitempty"`
	Kind        MediaKind `json:"kind"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	StorageKey  string    `json:"storage_key,omitempty"`
	Content     []byte    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
