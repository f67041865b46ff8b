package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fieldops.app/incidentbot/internal/model"
)

// saveHandler builds the finished ticket and commits it, its attachments,
// and any learned profile update in a single durable write. The draft is
// only cleared afterwards (by the engine's terminal reset), so a failed
// save can be retried without losing data.
type saveHandler struct {
	tickets TicketStore
}

func (h *saveHandler) Name() Step { return StepSave }

func (h *saveHandler) Run(ctx context.Context, st *State, _ *Input) (Effect, error) {
	ticket := ticketFromDraft(st)

	learned := learnedProfile(st.Profile, ticket)

	if err := h.tickets.Save(ctx, ticket, st.Attachments, learned); err != nil {
		return Effect{}, fmt.Errorf("saving ticket for %s: %w: %w", st.Identity, ErrPersistence, err)
	}

	if learned != nil {
		st.Profile = learned
	}

	slog.InfoContext(ctx, "ticket saved",
		"identity", st.Identity,
		"ticket_id", ticket.ID,
		"code", ticket.Code,
		"severity", ticket.Severity)

	return Effect{Reply: msgSaved(ticket), Ticket: ticket}, nil
}

func ticketFromDraft(st *State) *model.Ticket {
	d := st.Draft
	t := &model.Ticket{
		Code:            d["code"],
		Name:            d["name"],
		Category:        model.Category(d["category"]),
		Subcategory:     d["subcategory"],
		Severity:        model.Severity(d["severity"]),
		ReportedBy:      st.Identity,
		ReportedAt:      time.Now().UTC(),
		Plant:           d["plant"],
		Line:            d["line"],
		WorkCell:        d["work_cell"],
		Shift:           d["shift"],
		Description:     d["description"],
		ImmediateAction: d["immediate_action"],
		Status:          model.TicketStatusOpen,
	}
	if v := strings.TrimSpace(d["machine"]); v != "" {
		t.Machine = &v
	}
	if v := strings.TrimSpace(d["lot_number"]); v != "" {
		t.LotNumber = &v
	}
	if v := strings.TrimSpace(d["production_order"]); v != "" {
		t.ProductionOrder = &v
	}
	return t
}

// learnedProfile returns an updated profile when the ticket taught us a
// line or shift the profile was missing, nil otherwise.
func learnedProfile(profile *model.Profile, t *model.Ticket) *model.Profile {
	if profile == nil {
		return nil
	}
	updated := *profile
	changed := false
	if updated.Line == "" && t.Line != "" {
		updated.Line = t.Line
		changed = true
	}
	if updated.Shift == "" && t.Shift != "" {
		updated.Shift = t.Shift
		changed = true
	}
	if !changed {
		return nil
	}
	updated.UpdatedAt = time.Now().UTC()
	return &updated
}
