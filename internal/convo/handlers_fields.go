package convo

import (
	"context"
	"strings"
)

// fieldsHandler asks for missing required fields one at a time, looping
// until the queue is empty. Entering with an empty queue falls straight
// through to the confirmation summary without prompting.
type fieldsHandler struct{}

func (h *fieldsHandler) Name() Step { return StepCollectFields }

func (h *fieldsHandler) Run(_ context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		if len(st.MissingFields) == 0 {
			st.CurrentField = ""
			return Effect{}, nil
		}
		st.CurrentField = st.MissingFields[0]
		return Effect{Reply: msgFieldQuestion(lookupFieldSpec(st.CurrentField)), Await: AwaitFieldValue}, nil
	}

	answer := strings.TrimSpace(in.Text)
	if answer == "" {
		st.Retries++
		return Effect{Reply: msgFieldEmpty(), Await: AwaitFieldValue}, nil
	}

	st.SetField(st.CurrentField, answer)
	st.Retries = 0
	return Effect{}, nil
}

// summaryHandler renders the deterministic draft summary and the 3-way
// menu. Never pauses; process_confirmation owns the reply.
type summaryHandler struct{}

func (h *summaryHandler) Name() Step { return StepConfirmation }

func (h *summaryHandler) Run(_ context.Context, st *State, _ *Input) (Effect, error) {
	st.Decision = DecisionNone
	st.Confirmed = nil
	return Effect{Reply: msgSummary(st.Draft, len(st.Attachments))}, nil
}

// decisionHandler interprets the confirm / edit / cancel reply.
type decisionHandler struct{}

func (h *decisionHandler) Name() Step { return StepProcessConfirmation }

var (
	affirmWords = []string{"1", "sí", "si", "confirmo", "confirmar", "guardar", "ok", "correcto"}
	editWords   = []string{"2", "editar", "cambiar", "modificar", "corregir"}
	cancelWords = []string{"3", "cancelar", "cancela", "no"}
)

func (h *decisionHandler) Run(_ context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		return Effect{Await: AwaitConfirmation}, nil
	}

	reply := strings.ToLower(strings.TrimSpace(in.Text))

	switch {
	case matchesAny(reply, affirmWords):
		yes := true
		st.Confirmed = &yes
		st.Decision = DecisionSave
		st.Retries = 0
		return Effect{}, nil

	case matchesAny(reply, editWords):
		no := false
		st.Confirmed = &no
		st.Decision = DecisionEdit
		st.Retries = 0
		return Effect{Reply: msgEditWhichField()}, nil

	case matchesAny(reply, cancelWords):
		no := false
		st.Confirmed = &no
		st.Decision = DecisionCancel
		st.Retries = 0
		return Effect{Reply: msgCancelled()}, nil

	default:
		st.Retries++
		return Effect{Reply: msgConfirmNotUnderstood(), Await: AwaitConfirmation}, nil
	}
}

func matchesAny(reply string, words []string) bool {
	for _, w := range words {
		if reply == w {
			return true
		}
	}
	// Longer replies like "sí, confirmo" still count.
	for _, field := range strings.FieldsFunc(reply, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!'
	}) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

// editHandler maps the operator's field name onto a canonical field and
// pushes it back to the front of the missing queue for re-collection.
type editHandler struct{}

func (h *editHandler) Name() Step { return StepEdit }

func (h *editHandler) Run(_ context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		return Effect{Await: AwaitEditField}, nil
	}

	name, ok := CanonicalField(in.Text)
	if !ok {
		st.Retries++
		return Effect{Reply: msgEditFieldUnknown(), Await: AwaitEditField}, nil
	}

	st.MissingFields = append([]string{name}, st.MissingFields...)
	st.CurrentField = ""
	st.Decision = DecisionNone
	st.Confirmed = nil
	st.Retries = 0
	return Effect{}, nil
}
