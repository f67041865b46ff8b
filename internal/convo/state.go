package convo

import (
	"encoding/json"
	"fmt"
	"time"

	"fieldops.app/incidentbot/internal/model"
)

// Role identifies who produced a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one exchanged message in the conversation history.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Candidate is one classification suggestion from the model.
type Candidate struct {
	Code       string  `json:"code"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// State is the durable record of one operator's in-progress conversation.
// It is mutated only by step handlers during an advance and checkpointed
// after every pause, so a conversation survives process restarts and
// arbitrary delays between messages.
type State struct {
	Identity string    `json:"identity"`
	History  []Message `json:"history,omitempty"`

	Profile *model.Profile `json:"profile,omitempty"`

	Draft        map[string]string `json:"draft_incident"`
	Candidates   []Candidate       `json:"classification_candidates,omitempty"`
	SelectedCode string            `json:"selected_code,omitempty"`

	MissingFields []string `json:"missing_fields,omitempty"`
	CurrentField  string   `json:"current_field,omitempty"`

	Confirmed *bool    `json:"confirmed,omitempty"`
	Decision  Decision `json:"confirm_decision,omitempty"`

	CurrentStep   Step   `json:"current_step"`
	AwaitingInput Await  `json:"awaiting_input,omitempty"`
	Error         string `json:"error,omitempty"`

	// Retries counts consecutive unrecognized replies at the current pause
	// point; it resets to zero whenever a reply is accepted.
	Retries int `json:"retries,omitempty"`

	PendingDescription string             `json:"pending_description,omitempty"`
	Attachments        []model.Attachment `json:"attachments,omitempty"`
}

// NewState creates the state for a first-contact conversation identity.
func NewState(identity string) *State {
	return &State{
		Identity:    identity,
		Draft:       map[string]string{},
		CurrentStep: StepGreeting,
	}
}

// AppendUser records an inbound operator message in the history.
func (s *State) AppendUser(text string) {
	if text == "" {
		return
	}
	s.History = append(s.History, Message{Role: RoleUser, Content: text, At: time.Now().UTC()})
}

// AppendAssistant records an outgoing reply in the history.
func (s *State) AppendAssistant(text string) {
	if text == "" {
		return
	}
	s.History = append(s.History, Message{Role: RoleAssistant, Content: text, At: time.Now().UTC()})
}

// ResetTicket clears everything scoped to the ticket under construction.
// Profile and history survive so the same identity can report again.
func (s *State) ResetTicket() {
	s.Draft = map[string]string{}
	s.Candidates = nil
	s.SelectedCode = ""
	s.MissingFields = nil
	s.CurrentField = ""
	s.Confirmed = nil
	s.Decision = DecisionNone
	s.PendingDescription = ""
	s.Attachments = nil
	s.Retries = 0
	s.AwaitingInput = AwaitNone
	s.CurrentStep = StepGreeting
}

// SetField writes a collected value into the draft and, if the field was at
// the head of the missing queue, pops it.
func (s *State) SetField(name, value string) {
	s.Draft[name] = value
	if len(s.MissingFields) > 0 && s.MissingFields[0] == name {
		s.MissingFields = s.MissingFields[1:]
	}
	s.CurrentField = ""
}

// Validate checks the structural invariants that must hold after every
// advance. It exists for tests and defensive checks, not control flow.
func (s *State) Validate() error {
	if !knownStep(s.CurrentStep) {
		return fmt.Errorf("unknown step %q", s.CurrentStep)
	}
	if s.CurrentField != "" && (len(s.MissingFields) == 0 || s.MissingFields[0] != s.CurrentField) {
		return fmt.Errorf("current_field %q is not the head of missing_fields %v", s.CurrentField, s.MissingFields)
	}
	if s.SelectedCode != "" && len(s.Candidates) == 0 {
		return fmt.Errorf("selected_code %q set without classification candidates", s.SelectedCode)
	}
	if s.Confirmed != nil && *s.Confirmed && len(s.MissingFields) > 0 {
		return fmt.Errorf("confirmed with %d missing fields", len(s.MissingFields))
	}
	return nil
}

func knownStep(st Step) bool {
	switch st {
	case StepGreeting, StepRegisterUser, StepCollectDescription, StepClassify,
		StepConfirmClassification, StepCollectFields, StepConfirmation,
		StepProcessConfirmation, StepEdit, StepSave, StepEnd:
		return true
	}
	return false
}

// Marshal encodes the state for checkpointing.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a checkpointed state.
func UnmarshalState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding conversation state: %w", err)
	}
	if st.Draft == nil {
		st.Draft = map[string]string{}
	}
	return &st, nil
}
