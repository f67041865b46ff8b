package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fieldops.app/incidentbot/internal/model"
)

// Effect is what a handler produced for this invocation. A non-empty Await
// means the handler is waiting for the operator's next message; otherwise
// the engine consults the step's router and keeps going.
type Effect struct {
	Reply  string
	Await  Await
	Ticket *model.Ticket
}

// Handler is one node of the conversation graph. Run receives the latest
// operator input when the conversation was paused at this step, or nil when
// the step is being entered fresh.
type Handler interface {
	Name() Step
	Run(ctx context.Context, st *State, in *Input) (Effect, error)
}

// Control reports how an advance ended.
type Control int

const (
	// ControlPaused means the conversation is waiting for the next message.
	ControlPaused Control = iota
	// ControlTerminated means the current ticket flow ended (saved or
	// cancelled); the state was reset for the next ticket.
	ControlTerminated
)

// Result is the outcome of one advance: the outgoing reply plus, when a
// save completed, the persisted ticket.
type Result struct {
	Reply   string
	Control Control
	Ticket  *model.Ticket
}

// Capabilities are the external collaborators the step handlers invoke.
type Capabilities struct {
	Classifier  Classifier
	Extractor   ProfileExtractor
	Interpreter ChoiceInterpreter // optional
	Catalog     CatalogReader
	Profiles    ProfileStore
	Tickets     TicketStore
}

// Engine composes handlers and routers into a single resumable advance
// operation and owns the pause/resume protocol.
type Engine struct {
	handlers    map[Step]Handler
	routes      map[Step]Router
	checkpoints CheckpointStore
}

const (
	// One inbound message may traverse several silent steps, but a cycle
	// without a pause is a routing bug.
	maxHopsPerAdvance = 16

	// Consecutive unrecognized replies tolerated at one pause point before
	// the ticket is cancelled.
	maxRetries = 5
)

func NewEngine(caps Capabilities, checkpoints CheckpointStore) *Engine {
	handlers := []Handler{
		&greetingHandler{profiles: caps.Profiles, tickets: caps.Tickets},
		&registerHandler{profiles: caps.Profiles, extractor: caps.Extractor},
		&describeHandler{},
		&classifyHandler{classifier: caps.Classifier, catalog: caps.Catalog},
		&confirmClassificationHandler{catalog: caps.Catalog, interpreter: caps.Interpreter},
		&fieldsHandler{},
		&summaryHandler{},
		&decisionHandler{},
		&editHandler{},
		&saveHandler{tickets: caps.Tickets},
	}

	byStep := make(map[Step]Handler, len(handlers))
	for _, h := range handlers {
		byStep[h.Name()] = h
	}

	return &Engine{
		handlers:    byStep,
		routes:      defaultRoutes(),
		checkpoints: checkpoints,
	}
}

// Advance processes one inbound message: it resumes the paused step (or
// starts at the current one), runs handlers and routers until the next
// pause or the terminal marker, checkpoints the state, and returns the
// accumulated reply. Handlers may block on model or storage calls; nothing
// else runs for this identity meanwhile.
func (e *Engine) Advance(ctx context.Context, st *State, in *Input) (Result, error) {
	st.Error = ""
	if text := in.DisplayText(); text != "" {
		st.AppendUser(text)
	}

	input := in
	if st.AwaitingInput == AwaitNone {
		// Nothing was waiting for this message: it opens the conversation
		// and is not consumed as data by the first handler.
		input = nil
	}
	st.AwaitingInput = AwaitNone

	var (
		replies []string
		saved   *model.Ticket
	)

	finish := func(control Control) (Result, error) {
		reply := strings.Join(replies, "\n\n")
		st.AppendAssistant(reply)
		if err := e.checkpoints.Save(ctx, st.Identity, st); err != nil {
			return Result{}, fmt.Errorf("checkpointing %s: %w: %w", st.Identity, ErrPersistence, err)
		}
		return Result{Reply: reply, Control: control, Ticket: saved}, nil
	}

	for hops := 0; ; hops++ {
		if hops >= maxHopsPerAdvance {
			return e.recoverRouting(ctx, st,
				fmt.Errorf("%w %s: advance exceeded %d hops", ErrRouting, st.CurrentStep, maxHopsPerAdvance),
				&replies, finish)
		}

		handler, ok := e.handlers[st.CurrentStep]
		if !ok {
			return e.recoverRouting(ctx, st,
				fmt.Errorf("%w %s: no handler registered", ErrRouting, st.CurrentStep),
				&replies, finish)
		}

		eff, err := handler.Run(ctx, st, input)
		input = nil

		if err != nil {
			switch {
			case errors.Is(err, ErrClassification):
				slog.WarnContext(ctx, "classification failed, re-asking description",
					"identity", st.Identity, "error", err)
				st.Error = err.Error()
				st.Candidates = nil
				st.SelectedCode = ""
				replies = append(replies, msgClassificationFailed())
				st.CurrentStep = StepCollectDescription
				continue

			case errors.Is(err, ErrMedia):
				slog.WarnContext(ctx, "media processing failed, re-asking description",
					"identity", st.Identity, "error", err)
				st.Error = err.Error()
				replies = append(replies, msgMediaFailed())
				st.CurrentStep = StepCollectDescription
				continue

			case errors.Is(err, ErrPersistence) && st.CurrentStep == StepSave:
				// Draft and missing_fields stay intact so a retry loses
				// nothing; the operator can answer "1" again.
				slog.ErrorContext(ctx, "ticket save failed",
					"identity", st.Identity, "error", err)
				st.Error = err.Error()
				replies = append(replies, msgSaveFailed())
				st.CurrentStep = StepProcessConfirmation
				st.AwaitingInput = AwaitConfirmation
				return finish(ControlPaused)

			default:
				return Result{}, err
			}
		}

		if eff.Ticket != nil {
			saved = eff.Ticket
		}
		if eff.Reply != "" {
			replies = append(replies, eff.Reply)
		}

		if eff.Await != AwaitNone {
			if st.Retries >= maxRetries {
				slog.WarnContext(ctx, "too many unrecognized replies, cancelling ticket",
					"identity", st.Identity, "step", st.CurrentStep, "retries", st.Retries)
				replies = append(replies, msgTooManyRetries())
				st.ResetTicket()
				return finish(ControlTerminated)
			}
			st.AwaitingInput = eff.Await
			return finish(ControlPaused)
		}

		route, ok := e.routes[st.CurrentStep]
		if !ok {
			return e.recoverRouting(ctx, st,
				fmt.Errorf("%w %s: no router registered", ErrRouting, st.CurrentStep),
				&replies, finish)
		}

		next := route(st)
		if next == StepEnd {
			st.ResetTicket()
			return finish(ControlTerminated)
		}
		if _, ok := e.handlers[next]; !ok {
			return e.recoverRouting(ctx, st,
				fmt.Errorf("%w %s: router chose unknown step %s", ErrRouting, st.CurrentStep, next),
				&replies, finish)
		}
		st.CurrentStep = next
	}
}

// recoverRouting handles the should-be-unreachable routing failures: log
// loudly, reset to the greeting, and never leave the conversation stuck.
func (e *Engine) recoverRouting(ctx context.Context, st *State, err error, replies *[]string, finish func(Control) (Result, error)) (Result, error) {
	slog.ErrorContext(ctx, "routing failure, resetting conversation",
		"identity", st.Identity, "step", st.CurrentStep, "error", err)
	st.Error = err.Error()
	*replies = append(*replies, msgInternalError())
	st.ResetTicket()
	return finish(ControlTerminated)
}
