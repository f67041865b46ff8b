// Package service bridges WhatsApp messages and the conversation engine:
// slash commands, per-identity serialization, media resolution, and the
// audit trail around each advance.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/model"
	"fieldops.app/incidentbot/internal/queue"
	"fieldops.app/incidentbot/internal/store"
	"fieldops.app/incidentbot/internal/transport/whatsapp"
)

// MediaDownloader fetches inbound media bytes by their provider ID.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// MediaProcessor resolves raw media to attachment records with text.
type MediaProcessor interface {
	ProcessAudio(ctx context.Context, content []byte, mimeType, filename string) (model.Attachment, error)
	ProcessImage(ctx context.Context, content []byte, filename, operatorName string) (model.Attachment, error)
}

// greetingPatterns are chitchat openers that should not be fed into the
// conversation as data.
var greetingPatterns = map[string]struct{}{
	"hola": {}, "hello": {}, "hi": {}, "hey": {},
	"buenos dias": {}, "buenos días": {}, "buenas tardes": {},
	"buenas noches": {}, "buenas": {}, "buen dia": {}, "buen día": {},
	"que tal": {}, "qué tal": {}, "ola": {}, "saludos": {},
	"holi": {}, "holaa": {},
}

func isGreeting(text string) bool {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), "!.?,;")
	_, ok := greetingPatterns[normalized]
	return ok
}

const (
	msgCommandReset = "Conversación reiniciada. Puedes empezar de nuevo enviando un mensaje."

	msgCommandDeleteAll = "Tu perfil y conversación han sido eliminados. " +
		"Si envías un nuevo mensaje, comenzarás desde cero."

	msgCommandDeleteProfile = "Tu perfil ha sido eliminado de la base de datos. " +
		"La conversación actual sigue activa."

	msgMediaUnavailable = "Tuve problemas para procesar tu archivo adjunto. " +
		"¿Puedes describir el problema con texto, por favor?"
)

type ConversationService struct {
	engine      *convo.Engine
	checkpoints convo.CheckpointStore
	profiles    store.ProfileStore
	logs        store.ConversationLogStore
	producer    queue.Producer
	downloader  MediaDownloader
	media       MediaProcessor
	locks       *keyedMutex
}

// NewConversationService wires the message-handling pipeline. producer may
// be nil when no event stream is configured.
func NewConversationService(
	engine *convo.Engine,
	checkpoints convo.CheckpointStore,
	profiles store.ProfileStore,
	logs store.ConversationLogStore,
	producer queue.Producer,
	downloader MediaDownloader,
	media MediaProcessor,
) *ConversationService {
	return &ConversationService{
		engine:      engine,
		checkpoints: checkpoints,
		profiles:    profiles,
		logs:        logs,
		producer:    producer,
		downloader:  downloader,
		media:       media,
		locks:       newKeyedMutex(),
	}
}

// HandleMessage processes one inbound WhatsApp message end to end and
// returns the reply to send back. Messages from the same identity are
// serialized; the caller is free to invoke this concurrently.
func (s *ConversationService) HandleMessage(ctx context.Context, msg whatsapp.IncomingMessage) (string, error) {
	identity := msg.From

	// Commands take the same lock as advances: a /reset racing an in-flight
	// advance must not have its delete overwritten by that advance's
	// checkpoint write.
	unlock := s.locks.Lock(identity)
	defer unlock()

	if cmd, ok := ParseCommand(msg.Text); ok {
		return s.handleCommand(ctx, identity, cmd)
	}

	st, err := s.checkpoints.Load(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("loading conversation %s: %w", identity, err)
	}
	if st == nil {
		st = convo.NewState(identity)
	}

	in, err := s.resolveInput(ctx, st, msg)
	if err != nil {
		slog.WarnContext(ctx, "media resolution failed",
			"identity", identity, "message_id", msg.MessageID, "error", err)
		return msgMediaUnavailable, nil
	}

	s.logUser(ctx, identity, st, in)

	var (
		replies []string
		savedID *int64
	)
	record := func(res convo.Result) {
		replies = append(replies, res.Reply)
		if res.Ticket != nil {
			id := res.Ticket.ID
			savedID = &id
		}
	}

	if st.AwaitingInput == convo.AwaitNone {
		// Nothing is waiting for this message: it opens (or re-opens) the
		// conversation. Greet first; feed the content in a second advance
		// only when the message carries more than a greeting.
		res, err := s.engine.Advance(ctx, st, nil)
		if err != nil {
			return "", fmt.Errorf("advancing conversation %s: %w", identity, err)
		}
		record(res)

		if res.Control == convo.ControlPaused && in.DisplayText() != "" && !isGreeting(msg.Text) {
			res, err = s.engine.Advance(ctx, st, in)
			if err != nil {
				return "", fmt.Errorf("advancing conversation %s: %w", identity, err)
			}
			record(res)
			s.afterAdvance(ctx, identity, st, res)
		}
	} else {
		res, err := s.engine.Advance(ctx, st, in)
		if err != nil {
			return "", fmt.Errorf("advancing conversation %s: %w", identity, err)
		}
		record(res)
		s.afterAdvance(ctx, identity, st, res)
	}

	reply := strings.Join(nonEmpty(replies), "\n\n")
	s.logAssistant(ctx, identity, st, reply, savedID)
	return reply, nil
}

// ResetConversation drops the checkpoint and log for an identity so the
// next message starts from the greeting. Used by /reset and the admin API.
func (s *ConversationService) ResetConversation(ctx context.Context, identity string) error {
	if err := s.checkpoints.Delete(ctx, identity); err != nil {
		return fmt.Errorf("resetting conversation %s: %w", identity, err)
	}
	if err := s.logs.DeleteByIdentity(ctx, identity); err != nil {
		slog.WarnContext(ctx, "failed to clear conversation log", "identity", identity, "error", err)
	}
	slog.InfoContext(ctx, "conversation reset", "identity", identity)
	return nil
}

// DeleteProfile removes the operator's stored profile. The conversation
// checkpoint is left alone.
func (s *ConversationService) DeleteProfile(ctx context.Context, identity string) error {
	err := s.profiles.Delete(ctx, identity)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting profile %s: %w", identity, err)
	}
	slog.InfoContext(ctx, "profile deleted", "identity", identity)
	return nil
}

func (s *ConversationService) handleCommand(ctx context.Context, identity string, cmd Command) (string, error) {
	switch cmd.Kind {
	case CommandReset:
		if err := s.ResetConversation(ctx, identity); err != nil {
			return "", err
		}
		return msgCommandReset, nil

	case CommandDeleteAll:
		if err := s.ResetConversation(ctx, identity); err != nil {
			return "", err
		}
		if err := s.DeleteProfile(ctx, identity); err != nil {
			return "", err
		}
		return msgCommandDeleteAll, nil

	case CommandDeleteProfile:
		if err := s.DeleteProfile(ctx, identity); err != nil {
			return "", err
		}
		return msgCommandDeleteProfile, nil

	case CommandHelp:
		return helpText, nil

	default:
		return fmt.Sprintf("Comando desconocido: %s\nEnvía /ayuda para ver los comandos disponibles.", cmd.Raw), nil
	}
}

// resolveInput downloads and interprets media so the conversation only
// ever sees text plus described attachments.
func (s *ConversationService) resolveInput(ctx context.Context, st *convo.State, msg whatsapp.IncomingMessage) (*convo.Input, error) {
	in := &convo.Input{Text: msg.Text}

	if msg.MediaID == "" {
		return in, nil
	}

	content, contentType, err := s.downloader.DownloadMedia(ctx, msg.MediaID)
	if err != nil {
		return nil, err
	}
	mimeType := msg.MimeType
	if mimeType == "" {
		mimeType = contentType
	}

	var attachment model.Attachment
	switch msg.Type {
	case whatsapp.MessageTypeAudio:
		attachment, err = s.media.ProcessAudio(ctx, content, mimeType, msg.MessageID+".ogg")
	case whatsapp.MessageTypeImage:
		name := ""
		if st.Profile != nil {
			name = st.Profile.Name
		}
		attachment, err = s.media.ProcessImage(ctx, content, msg.MessageID+imageExt(mimeType), name)
	default:
		return in, nil
	}
	if err != nil {
		return nil, err
	}

	in.Media = append(in.Media, attachment)
	return in, nil
}

func imageExt(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "png"):
		return ".png"
	case strings.Contains(mimeType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

// afterAdvance publishes the ticket event when an advance finished a save.
func (s *ConversationService) afterAdvance(ctx context.Context, identity string, st *convo.State, res convo.Result) {
	if res.Ticket == nil || s.producer == nil {
		return
	}
	event := queue.TicketEvent{
		TicketID: res.Ticket.ID,
		Code:     res.Ticket.Code,
		Category: res.Ticket.Category,
		Severity: res.Ticket.Severity,
		Identity: identity,
	}
	if err := s.producer.TicketSaved(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish ticket event",
			"identity", identity, "ticket_id", res.Ticket.ID, "error", err)
	}
}

func (s *ConversationService) logUser(ctx context.Context, identity string, st *convo.State, in *convo.Input) {
	text := in.DisplayText()
	if text == "" {
		return
	}
	entry := &model.LogEntry{
		Identity: identity,
		Role:     model.LogRoleUser,
		Content:  text,
		Step:     string(st.CurrentStep),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to log user message", "identity", identity, "error", err)
	}
}

func (s *ConversationService) logAssistant(ctx context.Context, identity string, st *convo.State, reply string, ticketID *int64) {
	if reply == "" {
		return
	}
	entry := &model.LogEntry{
		Identity: identity,
		Role:     model.LogRoleAssistant,
		Content:  reply,
		Step:     string(st.CurrentStep),
		TicketID: ticketID,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to log assistant message", "identity", identity, "error", err)
	}
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
