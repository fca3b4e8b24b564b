package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/collaborator"
	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/merge"
	"github.com/fyrsmithlabs/lifebank/internal/sanitize"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

type fakeSanitizer struct {
	pkgErr     error
	contextErr error
}

func (f *fakeSanitizer) BuildDailyPackage(_ context.Context, dayID string) (*wire.DailyExtractionPackage, *sanitize.BuildReport, error) {
	if f.pkgErr != nil {
		return nil, nil, f.pkgErr
	}
	return &wire.DailyExtractionPackage{DayID: dayID}, &sanitize.BuildReport{DayID: dayID}, nil
}

func (f *fakeSanitizer) BuildContext(_ context.Context, _ []wire.ContextRequestItem, _ sanitize.NodeSource) (*wire.SanitizedContext, error) {
	if f.contextErr != nil {
		return nil, f.contextErr
	}
	return &wire.SanitizedContext{}, nil
}

type fakeCollaborator struct {
	mu sync.Mutex

	roundOne    *wire.RoundOneReply
	roundOneErr error
	response    *wire.ExtractionResponse
	extractErr  error

	proposeCalls int
	extractCalls int

	// onExtract runs inside Extract before returning, with the run already
	// past round 1. Used to cancel mid-flight.
	onExtract func()
}

func (f *fakeCollaborator) ProposeContext(_ context.Context, pkg *wire.DailyExtractionPackage) (*wire.RoundOneReply, error) {
	f.mu.Lock()
	f.proposeCalls++
	f.mu.Unlock()
	if f.roundOneErr != nil {
		return nil, f.roundOneErr
	}
	if f.roundOne != nil {
		return f.roundOne, nil
	}
	return &wire.RoundOneReply{
		ContextRequest: &wire.ContextRequest{
			Summary: "recap of " + pkg.DayID,
			RequestedContexts: []wire.ContextRequestItem{
				{Type: wire.ContextUserProfile},
			},
		},
	}, nil
}

func (f *fakeCollaborator) Extract(_ context.Context, dayID string, _ *wire.SanitizedContext) (*wire.ExtractionResponse, error) {
	f.mu.Lock()
	f.extractCalls++
	hook := f.onExtract
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if f.response != nil {
		resp := *f.response
		resp.DayID = dayID
		return &resp, nil
	}
	return &wire.ExtractionResponse{Success: true, DayID: dayID}, nil
}

type fakeMerger struct {
	mu      sync.Mutex
	applied []*wire.ExtractionResponse
	err     error
}

func (f *fakeMerger) Apply(_ context.Context, resp *wire.ExtractionResponse) (*merge.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, resp)
	return &merge.Report{DayID: resp.DayID, Created: len(resp.Results)}, nil
}

func (f *fakeMerger) applyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

type emptyNodes struct{}

func (emptyNodes) FindByOwner(_, _ string) []*knowledge.Node { return nil }

func newTestOrchestrator(t *testing.T, c collaborator.Collaborator, m Merger) *Orchestrator {
	t.Helper()
	o, err := New(&fakeSanitizer{}, c, m, emptyNodes{}, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestRunForDay_TwoRoundsCompleted(t *testing.T) {
	c := &fakeCollaborator{
		response: &wire.ExtractionResponse{
			Success: true,
			Results: []wire.ExtractedResult{{Type: wire.ResultKnowledgeNode, Target: "user"}},
		},
	}
	m := &fakeMerger{}
	o := newTestOrchestrator(t, c, m)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run.State)
	assert.Equal(t, 1, c.proposeCalls)
	assert.Equal(t, 1, c.extractCalls)
	assert.Equal(t, 1, m.applyCount())
	require.NotNil(t, run.MergeReport)
	assert.Equal(t, 1, run.MergeReport.Created)
	assert.False(t, run.CompletedAt.IsZero())
}

func TestRunForDay_ImmediateResponseSkipsRoundTwo(t *testing.T) {
	c := &fakeCollaborator{
		roundOne: &wire.RoundOneReply{
			Response: &wire.ExtractionResponse{Success: true, DayID: "2026-08-30"},
		},
	}
	m := &fakeMerger{}
	o := newTestOrchestrator(t, c, m)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run.State)
	assert.Equal(t, 0, c.extractCalls, "round 2 is skipped")
	assert.Equal(t, 1, m.applyCount())
}

func TestRunForDay_RemoteFailureNeverMerges(t *testing.T) {
	c := &fakeCollaborator{
		response: &wire.ExtractionResponse{
			Success: false,
			Error:   &wire.APIErrorInfo{Code: "RATE_LIMIT", Message: "slow down"},
		},
	}
	m := &fakeMerger{}
	o := newTestOrchestrator(t, c, m)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err, "a cleanly failed run is not a caller error")
	assert.Equal(t, StateFailed, run.State)
	require.NotNil(t, run.Error)
	assert.Equal(t, "RATE_LIMIT", run.Error.Code)
	assert.Equal(t, 0, m.applyCount(), "failed responses never reach the merger")
}

func TestRunForDay_TransportErrorFails(t *testing.T) {
	c := &fakeCollaborator{extractErr: collaborator.ErrUnavailable}
	m := &fakeMerger{}
	o := newTestOrchestrator(t, c, m)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, "TRANSPORT", run.Error.Code)
	assert.Equal(t, 0, m.applyCount())
}

func TestRunForDay_SanitizeErrorFails(t *testing.T) {
	o, err := New(&fakeSanitizer{pkgErr: errors.New("day not found")}, &fakeCollaborator{}, &fakeMerger{}, emptyNodes{}, zap.NewNop())
	require.NoError(t, err)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, "SANITIZE", run.Error.Code)
}

func TestRunForDay_EmptyRoundOneReplyIsProtocolFailure(t *testing.T) {
	c := &fakeCollaborator{roundOne: &wire.RoundOneReply{}}
	o := newTestOrchestrator(t, c, &fakeMerger{})

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, "PROTOCOL", run.Error.Code)
}

func TestRunForDay_RejectsConcurrentRunSameDay(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c := &fakeCollaborator{
		onExtract: func() {
			close(started)
			<-release
		},
	}
	o := newTestOrchestrator(t, c, &fakeMerger{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.RunForDay(context.Background(), "2026-08-30")
	}()
	<-started

	_, err := o.RunForDay(context.Background(), "2026-08-30")
	assert.ErrorIs(t, err, ErrRunActive)

	close(release)
	<-done
}

func TestRunForDay_CancelDiscardsInFlightResponse(t *testing.T) {
	m := &fakeMerger{}
	var o *Orchestrator
	c := &fakeCollaborator{
		response: &wire.ExtractionResponse{Success: true},
	}
	c.onExtract = func() {
		o.Cancel("2026-08-30")
	}
	o = newTestOrchestrator(t, c, m)

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	assert.ErrorIs(t, err, ErrRunStale)
	assert.Equal(t, 0, m.applyCount(), "stale response must not be merged")

	status, ok := o.Status("2026-08-30")
	require.True(t, ok)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "CANCELED", status.Error.Code)
	_ = run
}

func TestCancel(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCollaborator{}, &fakeMerger{})
	assert.False(t, o.Cancel("no-such-day"))

	run, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.State)
	assert.False(t, o.Cancel("2026-08-30"), "terminal runs cannot be canceled")
}

func TestRunAfterTerminalRunIsAllowed(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCollaborator{}, &fakeMerger{})

	first, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	second, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StateCompleted, second.State)
}

func TestRunForDays(t *testing.T) {
	m := &fakeMerger{}
	o := newTestOrchestrator(t, &fakeCollaborator{}, m)

	days := []string{"2026-08-28", "2026-08-29", "2026-08-30"}
	runs, err := o.RunForDays(context.Background(), days, 2)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		assert.Equal(t, days[i], run.DayID)
		assert.Equal(t, StateCompleted, run.State)
	}
	assert.Equal(t, 3, m.applyCount())
}

func TestStatus(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCollaborator{}, &fakeMerger{})

	_, ok := o.Status("2026-08-30")
	assert.False(t, ok)

	_, err := o.RunForDay(context.Background(), "2026-08-30")
	require.NoError(t, err)

	status, ok := o.Status("2026-08-30")
	require.True(t, ok)
	assert.Equal(t, "2026-08-30", status.DayID)
}
