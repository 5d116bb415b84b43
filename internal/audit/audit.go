// Package audit records tagging decisions so operators can answer
// "why was this build tagged" after the fact.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result classifies the overall outcome of one tagging decision.
const (
	ResultApplied = "applied" // every tag assignment succeeded
	ResultPartial = "partial" // at least one tag assignment failed
	ResultFailed  = "failed"  // no tag was assigned (e.g. session failure)
	ResultDryRun  = "dry-run" // tags computed but not dispatched
)

// Action is one recorded tagging decision for a module build.
type Action struct {
	ID        uuid.UUID `json:"id"`
	NSVC      string    `json:"nsvc"`
	NVR       string    `json:"nvr"`
	RuleIDs   []string  `json:"ruleIds"`
	Tags      []string  `json:"tags"`
	DryRun    bool      `json:"dryRun"`
	Result    string    `json:"result"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink persists tagging actions. Implementations must be safe for
// concurrent use. Recording is best-effort from the handler's point of
// view: a sink failure never blocks tagging.
type Sink interface {
	// Record persists one action.
	Record(ctx context.Context, action Action) error

	// Recent returns up to limit actions, newest first.
	Recent(ctx context.Context, limit int) ([]Action, error)

	// Close releases any resources held by the sink.
	Close() error
}
