// Package handler orchestrates one build event end to end: fetch the
// module's metadata, evaluate the rule set, and dispatch destination
// tags (or log the intent in dry-run mode).
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/modtag/modtag/internal/audit"
	"github.com/modtag/modtag/internal/engine"
	"github.com/modtag/modtag/internal/errs"
	"github.com/modtag/modtag/internal/koji"
	"github.com/modtag/modtag/internal/modulemd"
	"github.com/modtag/modtag/internal/rules"
	"github.com/modtag/modtag/internal/telemetry"
)

// BuildEvent is a module build state-change event as delivered by the
// message bus.
type BuildEvent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Stream  string `json:"stream"`
	Version string `json:"version"`
	Context string `json:"context"`
	State   string `json:"state_name"`
}

// NSVC returns the four-part module build identifier.
func (e BuildEvent) NSVC() string {
	return fmt.Sprintf("%s-%s-%s-%s", e.Name, e.Stream, e.Version, e.Context)
}

// NVR returns the build identifier used by the tagging backend. The
// stream is normalized by replacing dashes with underscores so the
// release field stays parseable.
func (e BuildEvent) NVR() string {
	stream := strings.ReplaceAll(e.Stream, "-", "_")
	return fmt.Sprintf("%s-%s-%s.%s", e.Name, stream, e.Version, e.Context)
}

// ModulemdFetcher retrieves raw modulemd content for a module build.
type ModulemdFetcher interface {
	ModulemdText(ctx context.Context, name, stream, version, mcontext string) ([]byte, error)
}

// TagDispatcher applies destination tags to a build.
type TagDispatcher interface {
	ApplyTags(ctx context.Context, nvr string, tags []string) ([]koji.TagResult, error)
}

// Handler processes build events against a fixed rule set. It is
// stateless across events; nothing is carried from one Handle call to
// the next.
type Handler struct {
	rules      []rules.Rule
	fetcher    ModulemdFetcher
	dispatcher TagDispatcher
	sink       audit.Sink
	dryRun     bool
	logger     zerolog.Logger
}

// New creates a Handler. sink may be nil when no audit trail is wanted.
func New(defs []rules.Rule, fetcher ModulemdFetcher, dispatcher TagDispatcher,
	sink audit.Sink, dryRun bool, logger zerolog.Logger) *Handler {
	return &Handler{
		rules:      defs,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		sink:       sink,
		dryRun:     dryRun,
		logger:     logger,
	}
}

// Handle processes one build event. A metadata retrieval failure drops
// the event and returns nil; upstream redelivery, if any, is the bus's
// concern. Malformed modulemd surfaces as an error.
func (h *Handler) Handle(ctx context.Context, event BuildEvent) error {
	nsvc := event.NSVC()
	logger := h.logger.With().Str("nsvc", nsvc).Logger()

	text, err := h.fetcher.ModulemdText(ctx, event.Name, event.Stream, event.Version, event.Context)
	if err != nil {
		// Drop this event and keep serving the next ones.
		logger.Error().Err(err).Msg("failed to retrieve modulemd")
		telemetry.EventsTotal.WithLabelValues("retrieval_failed").Inc()
		return nil
	}

	doc, err := modulemd.Parse(text)
	if err != nil {
		telemetry.EventsTotal.WithLabelValues("parse_failed").Inc()
		return errs.Wrap(errs.Invalid, fmt.Errorf("%s: %w", nsvc, err))
	}
	logger.Debug().Msg("modulemd downloaded and parsed")

	start := time.Now()
	outcomes := engine.EvaluateAll(h.rules, doc)
	telemetry.EvalDuration.Observe(time.Since(start).Seconds())
	for _, o := range outcomes {
		telemetry.RuleMatchesTotal.WithLabelValues(o.Rule).Inc()
	}

	if len(outcomes) == 0 {
		logger.Info().Msg("module build does not match any rule")
		telemetry.EventsTotal.WithLabelValues("no_match").Inc()
		return nil
	}

	nvr := event.NVR()
	tags := engine.DestTags(outcomes)
	logger.Debug().Str("nvr", nvr).Strs("tags", tags).Msg("tagging build")

	if h.dryRun {
		logger.Info().Str("nvr", nvr).Strs("tags", tags).Msg("dry-run: skipping tag dispatch")
		telemetry.EventsTotal.WithLabelValues("dry_run").Inc()
		h.record(ctx, logger, event, outcomes, tags, audit.ResultDryRun, "")
		return nil
	}

	results, err := h.dispatcher.ApplyTags(ctx, nvr, tags)
	if err != nil {
		logger.Error().Err(err).Str("nvr", nvr).Msg("tag dispatch failed")
		telemetry.EventsTotal.WithLabelValues("dispatch_failed").Inc()
		h.record(ctx, logger, event, outcomes, tags, audit.ResultFailed, err.Error())
		return errs.Wrap(errs.Transient, err)
	}

	result := audit.ResultApplied
	var firstErr string
	for _, r := range results {
		if r.Err != nil {
			result = audit.ResultPartial
			if firstErr == "" {
				firstErr = r.Err.Error()
			}
			telemetry.TagsAppliedTotal.WithLabelValues("failed").Inc()
			continue
		}
		telemetry.TagsAppliedTotal.WithLabelValues("ok").Inc()
	}
	telemetry.EventsTotal.WithLabelValues("tagged").Inc()
	h.record(ctx, logger, event, outcomes, tags, result, firstErr)
	return nil
}

// record persists the tagging decision. Audit failures are logged and
// otherwise ignored; they must never fail the event.
func (h *Handler) record(ctx context.Context, logger zerolog.Logger, event BuildEvent,
	outcomes []engine.Outcome, tags []string, result, errMsg string) {
	if h.sink == nil {
		return
	}
	ruleIDs := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		ruleIDs = append(ruleIDs, o.Rule)
	}
	action := audit.Action{
		ID:        uuid.New(),
		NSVC:      event.NSVC(),
		NVR:       event.NVR(),
		RuleIDs:   ruleIDs,
		Tags:      tags,
		DryRun:    h.dryRun,
		Result:    result,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.sink.Record(ctx, action); err != nil {
		logger.Warn().Err(err).Msg("failed to record tag action")
	}
}
