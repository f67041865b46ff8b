package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const maxCandidates = 3

// classifyHandler sends the accumulated description plus the catalog to the
// classifier and presents the candidates. Never pauses; routing sends the
// flow to confirmation or back to description collection.
type classifyHandler struct {
	classifier Classifier
	catalog    CatalogReader
}

func (h *classifyHandler) Name() Step { return StepClassify }

func (h *classifyHandler) Run(ctx context.Context, st *State, _ *Input) (Effect, error) {
	candidates, err := h.classifier.Classify(ctx, st.PendingDescription, h.catalog.PromptText())
	if err != nil {
		return Effect{}, fmt.Errorf("classifying description: %w: %w", ErrClassification, err)
	}
	if len(candidates) == 0 {
		return Effect{}, fmt.Errorf("%w: classifier returned no candidates", ErrClassification)
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	st.Candidates = candidates
	st.SelectedCode = ""

	slog.InfoContext(ctx, "incident classified",
		"identity", st.Identity,
		"candidates", len(candidates),
		"top_code", candidates[0].Code)

	return Effect{Reply: msgCandidates(candidates)}, nil
}

// confirmClassificationHandler waits for the operator to pick a candidate,
// then copies the catalog template into the draft and computes the missing
// required fields.
type confirmClassificationHandler struct {
	catalog     CatalogReader
	interpreter ChoiceInterpreter
}

func (h *confirmClassificationHandler) Name() Step { return StepConfirmClassification }

func (h *confirmClassificationHandler) Run(ctx context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		return Effect{Await: AwaitClassChoice}, nil
	}

	reply := strings.ToLower(strings.TrimSpace(in.Text))

	if isNoneReply(reply) {
		st.Candidates = nil
		st.SelectedCode = ""
		st.Retries = 0
		return Effect{Reply: msgNoneRetryDescription()}, nil
	}

	idx, ok := parseChoice(reply, len(st.Candidates))
	if !ok && h.interpreter != nil {
		// Free-form reply: let the model map it onto the options. An
		// undeterminable reply falls through to the re-prompt; only an
		// explicit rejection clears the candidates.
		interpreted, err := h.interpreter.Interpret(ctx, in.Text, st.Candidates)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "choice interpretation failed", "identity", st.Identity, "error", err)
		case interpreted == ChoiceNone:
			st.Candidates = nil
			st.SelectedCode = ""
			st.Retries = 0
			return Effect{Reply: msgNoneRetryDescription()}, nil
		case interpreted >= 0 && interpreted < len(st.Candidates):
			idx, ok = interpreted, true
		}
	}
	if !ok {
		st.Retries++
		return Effect{Reply: msgChoiceNotUnderstood(len(st.Candidates)), Await: AwaitClassChoice}, nil
	}

	code := st.Candidates[idx].Code
	entry, found := h.catalog.Lookup(code)
	if !found {
		// The classifier invented a code outside the catalog.
		slog.WarnContext(ctx, "classifier suggested unknown code", "identity", st.Identity, "code", code)
		st.Retries++
		return Effect{Reply: msgChoiceNotUnderstood(len(st.Candidates)), Await: AwaitClassChoice}, nil
	}

	st.SelectedCode = entry.Code
	st.Draft["code"] = entry.Code
	st.Draft["name"] = entry.Name
	st.Draft["category"] = string(entry.Category)
	st.Draft["subcategory"] = entry.Subcategory
	st.Draft["severity"] = string(entry.Severity)
	st.Draft["immediate_action"] = entry.SuggestedAction
	st.Draft["description"] = st.PendingDescription

	required := entry.RequiredFields
	if len(required) == 0 {
		required = DefaultRequiredFields()
	}
	st.MissingFields = missingRequired(required, st.Draft)
	st.Retries = 0

	return Effect{Reply: msgSelected(entry)}, nil
}

func parseChoice(reply string, options int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(reply, ".")))
	if err != nil || n < 1 || n > options {
		return 0, false
	}
	return n - 1, true
}

func isNoneReply(reply string) bool {
	for _, w := range []string{"ninguno", "ninguna", "none", "otro", "no aplica"} {
		if strings.Contains(reply, w) {
			return true
		}
	}
	return reply == "no"
}
