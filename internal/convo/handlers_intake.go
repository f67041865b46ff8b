package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fieldops.app/incidentbot/internal/model"
)

const recentTicketsShown = 5

// greetingHandler looks up the operator's profile and greets. Never pauses:
// routing decides whether registration or description collection comes next.
type greetingHandler struct {
	profiles ProfileStore
	tickets  TicketStore
}

func (h *greetingHandler) Name() Step { return StepGreeting }

func (h *greetingHandler) Run(ctx context.Context, st *State, _ *Input) (Effect, error) {
	profile, err := h.profiles.Get(ctx, st.Identity)
	if err != nil {
		return Effect{}, fmt.Errorf("loading profile for %s: %w: %w", st.Identity, ErrPersistence, err)
	}

	st.Draft["reported_by"] = st.Identity

	if profile == nil || profile.Name == "" {
		st.Profile = nil
		return Effect{Reply: msgGreetingNew()}, nil
	}

	st.Profile = profile
	if profile.Line != "" {
		st.Draft["line"] = profile.Line
	}
	if profile.Shift != "" {
		st.Draft["shift"] = profile.Shift
	}

	recent, err := h.tickets.ListRecent(ctx, st.Identity, recentTicketsShown)
	if err != nil {
		// A greeting without the recent list is better than no greeting.
		slog.WarnContext(ctx, "failed to list recent tickets", "identity", st.Identity, "error", err)
		recent = nil
	}

	return Effect{Reply: msgGreetingKnown(profile.Name, recent)}, nil
}

// registerHandler collects the operator's name, extracts a profile from the
// free-text reply, and persists it.
type registerHandler struct {
	profiles  ProfileStore
	extractor ProfileExtractor
}

func (h *registerHandler) Name() Step { return StepRegisterUser }

func (h *registerHandler) Run(ctx context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		// The question was already asked by the greeting (or our own re-ask).
		return Effect{Await: AwaitName}, nil
	}

	extracted, err := h.extractor.Extract(ctx, in.Text)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			st.Retries++
			st.Error = err.Error()
			return Effect{Reply: msgNameNotUnderstood(), Await: AwaitName}, nil
		}
		return Effect{}, fmt.Errorf("extracting profile: %w", err)
	}
	if strings.TrimSpace(extracted.Name) == "" {
		st.Retries++
		return Effect{Reply: msgNameNotUnderstood(), Await: AwaitName}, nil
	}

	now := time.Now().UTC()
	profile := &model.Profile{
		Identity:  st.Identity,
		Name:      strings.TrimSpace(extracted.Name),
		Area:      extracted.Area,
		Shift:     extracted.Shift,
		Line:      extracted.Line,
		Role:      extracted.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.profiles.Upsert(ctx, profile); err != nil {
		return Effect{}, fmt.Errorf("saving profile for %s: %w: %w", st.Identity, ErrPersistence, err)
	}

	st.Profile = profile
	st.Retries = 0
	if profile.Line != "" {
		st.Draft["line"] = profile.Line
	}
	if profile.Shift != "" {
		st.Draft["shift"] = profile.Shift
	}

	return Effect{Reply: msgRegistered(profile.Name)}, nil
}

// describeHandler accumulates the incident description. Text, transcribed
// audio, and described images all contribute; attachments are kept on the
// state until save time.
type describeHandler struct{}

func (h *describeHandler) Name() Step { return StepCollectDescription }

func (h *describeHandler) Run(_ context.Context, st *State, in *Input) (Effect, error) {
	if in == nil {
		return Effect{Await: AwaitDescription}, nil
	}

	contribution := in.descriptionText()
	if contribution == "" {
		st.Retries++
		return Effect{Reply: msgDescriptionEmpty(), Await: AwaitDescription}, nil
	}

	if st.PendingDescription == "" {
		st.PendingDescription = contribution
	} else {
		st.PendingDescription += "\n" + contribution
	}
	st.Attachments = append(st.Attachments, in.Media...)
	st.Retries = 0

	if len(in.Media) > 0 {
		// Media contributions keep the description open: the operator may
		// still add detail. A plain text message moves on to classification.
		return Effect{Reply: msgMediaReceived(in.Media), Await: AwaitDescription}, nil
	}

	return Effect{}, nil
}
