package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/hardware"
	"scentpanel/internal/metrics"
	"scentpanel/internal/repository"
	"scentpanel/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type workflowFixture struct {
	sim          *hardware.Simulator
	orchestrator *WorkflowOrchestrator
	engine       *ProgressEngine
	store        repository.AnalysisStore
	ratings      repository.RatingsRepo
}

func newWorkflowFixture(t *testing.T, settle, valveOpen time.Duration) *workflowFixture {
	t.Helper()

	kv := store.NewMemoryKV()
	analysisStore := repository.NewKVAnalysisStore(kv, zap.NewNop())
	ratings := repository.NewKVRatingsRepo(kv, zap.NewNop())
	sim := hardware.NewSimulatorWithDelays(settle, valveOpen, zap.NewNop())
	engine := NewProgressEngine(analysisStore, zap.NewNop())

	orchestrator := NewWorkflowOrchestrator(
		sim,
		engine,
		analysisStore,
		ratings,
		5*time.Millisecond,
		20,
		metrics.New(),
		zap.NewNop(),
	)
	return &workflowFixture{
		sim:          sim,
		orchestrator: orchestrator,
		engine:       engine,
		store:        analysisStore,
		ratings:      ratings,
	}
}

func stepNames(steps []StepLog) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Step)
	}
	return names
}

func TestArriveRunsFullSequence(t *testing.T) {
	f := newWorkflowFixture(t, 10*time.Millisecond, 10*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1, 2, 3}, []string{"p-01"}, true)

	_, room, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	result, steps, err := f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	require.Equal(t, room, result.RoomNumber)
	require.Equal(t, []string{"status", "pressurize", "wait-ready", "select", "open"}, stepNames(steps))
	for _, s := range steps {
		require.Empty(t, s.Error)
		require.False(t, s.At.IsZero())
	}

	state, err := f.sim.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, room, state.SelectedRoom)
}

func TestArriveSkipsPressurizeWhenReady(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{4}, []string{"p-01"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	// Pre-pressurize the rig.
	_, err = f.sim.Pressurize(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, _ := f.sim.Status(context.Background())
		return st.Phase == hardware.PhaseReady
	}, time.Second, time.Millisecond)

	_, steps, err := f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	require.Equal(t, []string{"status", "select", "open"}, stepNames(steps))
}

func TestArriveFailsWhenNeverReady(t *testing.T) {
	// Settle takes far longer than the whole polling budget.
	f := newWorkflowFixture(t, time.Minute, 5*time.Millisecond)
	f.orchestrator.pollAttempts = 3
	f.orchestrator.pollInterval = time.Millisecond
	a := seedAnalysis(t, f.store, []int{1}, []string{"p-01"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	_, steps, err := f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.ErrorIs(t, err, ErrPressurizeTimeout)
	require.Equal(t, "wait-ready", steps[len(steps)-1].Step)
	require.NotEmpty(t, steps[len(steps)-1].Error)

	// The failed arrival released the rig for the next attempt.
	require.NoError(t, f.orchestrator.tryAcquire("p-02"))
}

func TestArriveRequiresProgress(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1}, []string{"p-01"}, true)

	_, _, err := f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.ErrorIs(t, err, ErrNoProgress)
}

func TestArriveRigBusy(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1, 2}, []string{"p-01", "p-02"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	_, _, err = f.engine.StartTesting(context.Background(), a.AnalysisID, "p-02")
	require.NoError(t, err)

	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	// Second panelist cannot drive the rig mid-sequence.
	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-02")
	require.ErrorIs(t, err, ErrRigBusy)

	// The holder may re-run their own arrival (page reload).
	_, err = f.sim.Standby(context.Background())
	require.NoError(t, err)
	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
}

func TestSubmitRatingCompletesAndReleases(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1, 2}, []string{"p-01", "p-02"}, true)

	_, room, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	result, err := f.orchestrator.SubmitRating(context.Background(), &domain.Rating{
		AnalysisID:   a.AnalysisID,
		TesterID:     "p-01",
		RoomNumber:   room,
		Intensity:    6.5,
		Pleasantness: -1.2,
		Descriptor:   domain.DescriptorEarthy,
		Description:  "damp cellar",
	})
	require.NoError(t, err)
	require.False(t, result.IsComplete)
	require.NotNil(t, result.NextRoomNumber)
	require.NotEmpty(t, result.Rating.ResponseID)
	require.Equal(t, fmt.Sprintf("S-00%d", room), result.Rating.SampleRef)

	// The rig is back in standby and free for the next panelist.
	state, err := f.sim.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, hardware.PhaseStandby, state.Phase)
	require.NoError(t, f.orchestrator.tryAcquire("p-02"))
	f.orchestrator.release("p-02")

	ratings, err := f.ratings.ListByAnalysis(context.Background(), a.AnalysisID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
}

func TestSubmitRatingValidates(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1}, []string{"p-01"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)

	_, err = f.orchestrator.SubmitRating(context.Background(), &domain.Rating{
		AnalysisID:   a.AnalysisID,
		TesterID:     "p-01",
		RoomNumber:   1,
		Intensity:    10.7, // out of range
		Pleasantness: 0,
		Descriptor:   domain.DescriptorNeutral,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSubmitRatingUnknownRoom(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{1}, []string{"p-01"}, true)

	_, err := f.orchestrator.SubmitRating(context.Background(), &domain.Rating{
		AnalysisID:   a.AnalysisID,
		TesterID:     "p-01",
		RoomNumber:   5,
		Intensity:    5,
		Pleasantness: 0,
		Descriptor:   domain.DescriptorNeutral,
	})
	require.ErrorIs(t, err, ErrRoomNotAssigned)
}

func TestSubmitRatingWithoutArrivalLeavesRigAlone(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, time.Minute)
	a := seedAnalysis(t, f.store, []int{1, 2}, []string{"p-01", "p-02"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	_, room2, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-02")
	require.NoError(t, err)

	// p-01 is mid-sequence with the valve open.
	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	state, err := f.sim.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, hardware.PhaseValveOpened, state.Phase)

	// p-02 submits without ever arriving: the rating is recorded, but
	// the rig must not be reset out from under p-01.
	_, err = f.orchestrator.SubmitRating(context.Background(), &domain.Rating{
		AnalysisID:   a.AnalysisID,
		TesterID:     "p-02",
		RoomNumber:   room2,
		Intensity:    4,
		Pleasantness: 1,
		Descriptor:   domain.DescriptorNeutral,
	})
	require.NoError(t, err)

	state, err = f.sim.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, hardware.PhaseValveOpened, state.Phase)
	require.ErrorIs(t, f.orchestrator.tryAcquire("p-02"), ErrRigBusy)

	ratings, err := f.ratings.ListByAnalysis(context.Background(), a.AnalysisID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
}

func TestArriveAfterAllRoomsComplete(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Millisecond, 5*time.Millisecond)
	a := seedAnalysis(t, f.store, []int{3}, []string{"p-01"}, true)

	_, _, err := f.engine.StartTesting(context.Background(), a.AnalysisID, "p-01")
	require.NoError(t, err)
	result, err := f.engine.CompleteRoom(context.Background(), a.AnalysisID, "p-01", 3)
	require.NoError(t, err)
	require.True(t, result.IsComplete)

	_, _, err = f.orchestrator.ArriveAtRoom(context.Background(), a.AnalysisID, "p-01")
	require.ErrorIs(t, err, ErrAlreadyComplete)
}
