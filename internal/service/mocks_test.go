package service_test

import (
	"context"
	"sync"

	"fieldops.app/incidentbot/internal/catalog"
	"fieldops.app/incidentbot/internal/checkpoint"
	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/model"
	"fieldops.app/incidentbot/internal/queue"
)

type mockClassifier struct {
	classifyFn func(ctx context.Context, description, catalogText string) ([]convo.Candidate, error)
	callCount  int
}

func (m *mockClassifier) Classify(ctx context.Context, description, catalogText string) ([]convo.Candidate, error) {
	m.callCount++
	if m.classifyFn != nil {
		return m.classifyFn(ctx, description, catalogText)
	}
	return nil, nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, freeText string) (convo.ExtractedProfile, error)
}

func (m *mockExtractor) Extract(ctx context.Context, freeText string) (convo.ExtractedProfile, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, freeText)
	}
	return convo.ExtractedProfile{}, nil
}

// mockProfiles satisfies both the conversation's profile capability and
// the service-level profile store.
type mockProfiles struct {
	getFn    func(ctx context.Context, identity string) (*model.Profile, error)
	deleted  []string
	upserted []*model.Profile
}

func (m *mockProfiles) Get(ctx context.Context, identity string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, identity)
	}
	return nil, nil
}

func (m *mockProfiles) Upsert(_ context.Context, profile *model.Profile) error {
	m.upserted = append(m.upserted, profile)
	return nil
}

func (m *mockProfiles) Delete(_ context.Context, identity string) error {
	m.deleted = append(m.deleted, identity)
	return nil
}

type mockTickets struct {
	saveFn func(ctx context.Context, ticket *model.Ticket, attachments []model.Attachment, learned *model.Profile) error
	saved  []*model.Ticket
}

func (m *mockTickets) Save(ctx context.Context, ticket *model.Ticket, attachments []model.Attachment, learned *model.Profile) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, ticket, attachments, learned); err != nil {
			return err
		}
	} else {
		ticket.ID = int64(len(m.saved) + 1)
	}
	m.saved = append(m.saved, ticket)
	return nil
}

func (m *mockTickets) ListRecent(context.Context, string, int) ([]model.TicketSummary, error) {
	return nil, nil
}

type mockLogs struct {
	entries []*model.LogEntry
	cleared []string
}

func (m *mockLogs) Append(_ context.Context, entry *model.LogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLogs) DeleteByIdentity(_ context.Context, identity string) error {
	m.cleared = append(m.cleared, identity)
	return nil
}

type mockProducer struct {
	events []queue.TicketEvent
}

func (m *mockProducer) TicketSaved(_ context.Context, event queue.TicketEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockProducer) Close() error { return nil }

type mockDownloader struct {
	downloadFn func(ctx context.Context, mediaID string) ([]byte, string, error)
}

func (m *mockDownloader) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, mediaID)
	}
	return []byte("bytes"), "application/octet-stream", nil
}

type mockMediaProcessor struct {
	audioFn func(ctx context.Context, content []byte, mimeType, filename string) (model.Attachment, error)
	imageFn func(ctx context.Context, content []byte, filename, operatorName string) (model.Attachment, error)
}

func (m *mockMediaProcessor) ProcessAudio(ctx context.Context, content []byte, mimeType, filename string) (model.Attachment, error) {
	if m.audioFn != nil {
		return m.audioFn(ctx, content, mimeType, filename)
	}
	return model.Attachment{Kind: model.MediaKindAudio, Filename: filename, Content: content}, nil
}

func (m *mockMediaProcessor) ProcessImage(ctx context.Context, content []byte, filename, operatorName string) (model.Attachment, error) {
	if m.imageFn != nil {
		return m.imageFn(ctx, content, filename, operatorName)
	}
	return model.Attachment{Kind: model.MediaKindImage, Filename: filename, Content: content}, nil
}

// gatedCheckpoints blocks the first Save until released so a test can
// interleave a second message with an in-flight advance.
type gatedCheckpoints struct {
	*checkpoint.MemoryStore
	saveStarted chan struct{}
	release     chan struct{}
	once        sync.Once
}

func newGatedCheckpoints() *gatedCheckpoints {
	return &gatedCheckpoints{
		MemoryStore: checkpoint.NewMemoryStore(),
		saveStarted: make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedCheckpoints) Save(ctx context.Context, identity string, st *convo.State) error {
	g.once.Do(func() { close(g.saveStarted) })
	<-g.release
	return g.MemoryStore.Save(ctx, identity, st)
}

func testCatalog() *catalog.Catalog {
	c, err := catalog.New([]catalog.Entry{{
		Code:           "MEC-001",
		Category:       model.CategoryMechanical,
		Name:           "Falla de banda transportadora",
		Severity:       model.SeverityHigh,
		RequiredFields: []string{"plant", "line", "work_cell", "shift", "description"},
	}})
	if err != nil {
		panic(err)
	}
	return c
}
