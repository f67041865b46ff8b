package model

import "time"

// Profile is the registered operator behind a conversation identity.
// Identity is the stable chat handle (WhatsApp phone number) and is the
// primary key everywhere a conversation is referenced.
type Profile struct {
	Identity  string    `json:"identity"`
	Name      string    `json:"name"`
	Area      string    `json:"area,omitempty"`
	Shift     string    `json:"shift,omitempty"`
	Line      string    `json:"line,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
