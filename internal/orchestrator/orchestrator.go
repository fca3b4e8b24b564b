// Package orchestrator drives the two-round extraction exchange with the
// external AI collaborator: round 1 ships a sanitized daily package and
// receives a context request, round 2 ships the requested sanitized context
// and receives typed extraction results, which are then merged into the
// knowledge base.
//
// One run is active per day at a time. Runs are tagged with a run ID so a
// response arriving after the caller abandoned the run is discarded instead
// of merged.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/lifebank/internal/collaborator"
	"github.com/fyrsmithlabs/lifebank/internal/merge"
	"github.com/fyrsmithlabs/lifebank/internal/sanitize"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// Common orchestration errors.
var (
	// ErrRunActive is returned when a run for the day is already in a
	// non-terminal state.
	ErrRunActive = errors.New("extraction run already active for day")

	// ErrRunStale is returned when a response arrives for a run that is no
	// longer the active run for its day.
	ErrRunStale = errors.New("extraction run superseded")
)

// State is the lifecycle state of a run.
type State string

const (
	StateIdle            State = "idle"
	StateRound1Sent      State = "round1_sent"
	StateAwaitingContext State = "awaiting_context"
	StateRound2Sent      State = "round2_sent"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// terminal reports whether a state ends the run.
func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Run is one extraction attempt for one day.
type Run struct {
	ID          string                `json:"id"`
	DayID       string                `json:"day_id"`
	State       State                 `json:"state"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at,omitempty"`
	Error       *wire.APIErrorInfo    `json:"error,omitempty"`
	BuildReport *sanitize.BuildReport `json:"build_report,omitempty"`
	MergeReport *merge.Report         `json:"merge_report,omitempty"`
}

// Sanitizer is the slice of sanitize.Sanitizer the orchestrator needs.
type Sanitizer interface {
	BuildDailyPackage(ctx context.Context, dayID string) (*wire.DailyExtractionPackage, *sanitize.BuildReport, error)
	BuildContext(ctx context.Context, requested []wire.ContextRequestItem, nodes sanitize.NodeSource) (*wire.SanitizedContext, error)
}

// Merger applies extraction results to the knowledge base.
type Merger interface {
	Apply(ctx context.Context, resp *wire.ExtractionResponse) (*merge.Report, error)
}

// Orchestrator coordinates runs across days.
type Orchestrator struct {
	sanitizer Sanitizer
	transport collaborator.Collaborator
	merger    Merger
	nodes     sanitize.NodeSource
	logger    *zap.Logger
	metrics   *metrics

	mu   sync.Mutex
	runs map[string]*Run // active or most recent run per day
}

// New creates an orchestrator.
func New(s Sanitizer, t collaborator.Collaborator, m Merger, nodes sanitize.NodeSource, logger *zap.Logger) (*Orchestrator, error) {
	if s == nil || t == nil || m == nil {
		return nil, fmt.Errorf("sanitizer, transport and merger are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sanitizer: s,
		transport: t,
		merger:    m,
		nodes:     nodes,
		logger:    logger,
		metrics:   newMetrics(),
		runs:      make(map[string]*Run),
	}, nil
}

// RunForDay executes the full pipeline for one day and returns the
// terminal run record. The returned error is nil for a Failed run that
// ended cleanly (the failure is carried in Run.Error); errors are reserved
// for refusals such as a duplicate run.
func (o *Orchestrator) RunForDay(ctx context.Context, dayID string) (*Run, error) {
	if dayID == "" {
		return nil, fmt.Errorf("day ID cannot be empty")
	}

	run, err := o.begin(dayID)
	if err != nil {
		return nil, err
	}
	o.metrics.runsStarted.Inc()
	log := o.logger.With(zap.String("day_id", dayID), zap.String("run_id", run.ID))

	// Round 1: ship the sanitized day.
	pkg, buildReport, err := o.sanitizer.BuildDailyPackage(ctx, dayID)
	if err != nil {
		return o.fail(run, "SANITIZE", err), nil
	}
	run.BuildReport = buildReport

	o.transition(run, StateRound1Sent)
	round1Start := time.Now()
	reply, err := o.transport.ProposeContext(ctx, pkg)
	o.metrics.roundSeconds.WithLabelValues("round1").Observe(time.Since(round1Start).Seconds())
	if err != nil {
		return o.fail(run, "TRANSPORT", err), nil
	}
	if err := o.ensureCurrent(run); err != nil {
		return run, err
	}

	var resp *wire.ExtractionResponse
	switch {
	case reply.Response != nil:
		// The collaborator extracted immediately; round 2 is skipped.
		resp = reply.Response
		log.Debug("collaborator responded without context request")

	case reply.ContextRequest != nil:
		o.transition(run, StateAwaitingContext)
		sc, err := o.sanitizer.BuildContext(ctx, reply.ContextRequest.RequestedContexts, o.nodes)
		if err != nil {
			return o.fail(run, "SANITIZE", err), nil
		}

		o.transition(run, StateRound2Sent)
		round2Start := time.Now()
		resp, err = o.transport.Extract(ctx, dayID, sc)
		o.metrics.roundSeconds.WithLabelValues("round2").Observe(time.Since(round2Start).Seconds())
		if err != nil {
			return o.fail(run, "TRANSPORT", err), nil
		}
		if err := o.ensureCurrent(run); err != nil {
			return run, err
		}

	default:
		return o.fail(run, "PROTOCOL", collaborator.ErrMalformedReply), nil
	}

	if !resp.Success {
		// Carried failure: no partial merge.
		apiErr := resp.Error
		if apiErr == nil {
			apiErr = &wire.APIErrorInfo{Code: "UNKNOWN", Message: "collaborator reported failure"}
		}
		o.finish(run, StateFailed, apiErr)
		log.Warn("extraction run failed remotely",
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message))
		return run, nil
	}

	report, err := o.merger.Apply(ctx, resp)
	if err != nil {
		return o.fail(run, "MERGE", err), nil
	}
	run.MergeReport = report

	o.finish(run, StateCompleted, nil)
	o.metrics.runsCompleted.Inc()
	o.metrics.resultsMerged.Add(float64(report.Created + report.Updated))
	log.Info("extraction run completed",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", len(report.Skipped)))
	return run, nil
}

// RunForDays runs extraction for several independent days, overlapping
// network latency up to the given concurrency. Order across days is not
// guaranteed; within a day the pipeline is strictly sequential.
func (o *Orchestrator) RunForDays(ctx context.Context, dayIDs []string, concurrency int) ([]*Run, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	runs := make([]*Run, len(dayIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, dayID := range dayIDs {
		g.Go(func() error {
			run, err := o.RunForDay(ctx, dayID)
			if err != nil {
				return fmt.Errorf("day %s: %w", dayID, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Cancel abandons the active run for a day. In-flight responses for the
// canceled run will be discarded when they arrive.
func (o *Orchestrator) Cancel(dayID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[dayID]
	if !ok || run.State.terminal() {
		return false
	}
	run.State = StateFailed
	run.CompletedAt = time.Now()
	run.Error = &wire.APIErrorInfo{Code: "CANCELED", Message: "run abandoned by caller"}
	return true
}

// Status returns the active or most recent run for a day.
func (o *Orchestrator) Status(dayID string) (*Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[dayID]
	if !ok {
		return nil, false
	}
	cp := *run
	return &cp, true
}

// begin registers a new run, rejecting days with an active run.
func (o *Orchestrator) begin(dayID string) (*Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if prev, ok := o.runs[dayID]; ok && !prev.State.terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunActive, dayID)
	}

	run := &Run{
		ID:        uuid.New().String(),
		DayID:     dayID,
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	o.runs[dayID] = run
	return run, nil
}

// ensureCurrent verifies the run is still the active run for its day.
// A canceled or superseded run must not proceed to merge.
func (o *Orchestrator) ensureCurrent(run *Run) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.runs[run.DayID]
	if !ok || current.ID != run.ID || current.State.terminal() {
		o.metrics.staleDiscards.Inc()
		o.logger.Warn("discarding response for stale run",
			zap.String("day_id", run.DayID),
			zap.String("run_id", run.ID))
		return fmt.Errorf("%w: %s", ErrRunStale, run.DayID)
	}
	return nil
}

// transition moves the run forward.
func (o *Orchestrator) transition(run *Run, next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run.State = next
}

// finish moves the run to a terminal state.
func (o *Orchestrator) finish(run *Run, state State, apiErr *wire.APIErrorInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if run.State.terminal() {
		return
	}
	run.State = state
	run.CompletedAt = time.Now()
	run.Error = apiErr
}

// fail finishes the run with a local error.
func (o *Orchestrator) fail(run *Run, code string, err error) *Run {
	o.finish(run, StateFailed, &wire.APIErrorInfo{Code: code, Message: err.Error()})
	o.metrics.runsFailed.WithLabelValues(code).Inc()
	o.logger.Error("extraction run failed",
		zap.String("day_id", run.DayID),
		zap.String("run_id", run.ID),
		zap.String("code", code),
		zap.Error(err))
	return run
}
