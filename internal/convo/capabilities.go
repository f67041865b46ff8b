package convo

import (
	"context"

	"fieldops.app/incidentbot/internal/catalog"
	"fieldops.app/incidentbot/internal/model"
)

// Classifier matches a free-text description against the incident catalog.
// Implementations return at most three candidates; empty or malformed model
// output surfaces as an error wrapping ErrClassification.
type Classifier interface {
	Classify(ctx context.Context, description, catalogText string) ([]Candidate, error)
}

// ExtractedProfile is the structured result of parsing a registration reply.
type ExtractedProfile struct {
	Name  string `json:"name"`
	Area  string `json:"area"`
	Shift string `json:"shift"`
	Line  string `json:"line"`
	Role  string `json:"role"`
}

// ProfileExtractor derives a profile from the operator's free-text
// self-introduction. A reply with no recognizable name surfaces as an error
// wrapping ErrExtraction.
type ProfileExtractor interface {
	Extract(ctx context.Context, freeText string) (ExtractedProfile, error)
}

// Interpreter outcomes for replies that name no candidate. An explicit
// rejection clears the candidates; an unmappable reply re-prompts in place.
const (
	ChoiceNone    = -1
	ChoiceUnknown = -2
)

// ChoiceInterpreter resolves a free-form reply against the presented
// candidates when the reply is not a plain number. Returns the zero-based
// candidate index, ChoiceNone when the reply rejects every option, or
// ChoiceUnknown when it cannot be mapped to one.
type ChoiceInterpreter interface {
	Interpret(ctx context.Context, reply string, candidates []Candidate) (int, error)
}

// CatalogReader is the incident-type catalog as the conversation sees it.
type CatalogReader interface {
	Lookup(code string) (catalog.Entry, bool)
	PromptText() string
}

// ProfileStore reads and writes operator profiles. Get returns (nil, nil)
// when no profile exists for the identity.
type ProfileStore interface {
	Get(ctx context.Context, identity string) (*model.Profile, error)
	Upsert(ctx context.Context, profile *model.Profile) error
}

// TicketStore persists finished tickets. Save assigns the ticket ID at
// commit time and writes the ticket, its attachments, and any learned
// profile update as a single durable commit.
type TicketStore interface {
	Save(ctx context.Context, ticket *model.Ticket, attachments []model.Attachment, learned *model.Profile) error
	ListRecent(ctx context.Context, identity string, limit int) ([]model.TicketSummary, error)
}

// CheckpointStore holds one state snapshot per conversation identity.
// Load returns (nil, nil) when no checkpoint exists.
type CheckpointStore interface {
	Load(ctx context.Context, identity string) (*State, error)
	Save(ctx context.Context, identity string, state *State) error
	Delete(ctx context.Context, identity string) error
}
