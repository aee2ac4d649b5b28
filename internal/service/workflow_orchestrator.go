package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/hardware"
	"scentpanel/internal/metrics"
	"scentpanel/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StepLog one timestamped orchestrator step, kept for operability and
// returned to the UI alongside the outcome.
type StepLog struct {
	Step  string    `json:"step"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// ArrivalResult successful room-arrival sequence.
type ArrivalResult struct {
	RoomNumber int       `json:"room_number"`
	Steps      []StepLog `json:"steps"`
}

// SubmissionResult outcome of a rating submission.
type SubmissionResult struct {
	Rating         *domain.Rating `json:"rating"`
	NextRoomNumber *int           `json:"next_room_number,omitempty"`
	IsComplete     bool           `json:"is_complete"`
}

// WorkflowOrchestrator ties a panelist's "I am at room N" action to the
// controller's pressurize/select/open sequence, and the rating
// submission to completion plus standby.
//
// The rig is a single shared endpoint, so the orchestrator admits one
// panelist at a time: arrival takes the holder token, submission (or an
// arrival failure) releases it.
type WorkflowOrchestrator struct {
	controller hardware.Controller
	engine     *ProgressEngine
	store      repository.AnalysisStore
	ratings    repository.RatingsRepo
	m          *metrics.Metrics
	logger     *zap.Logger

	pollInterval time.Duration
	pollAttempts int
	now          func() time.Time

	mu     sync.Mutex
	holder string // tester ID currently driving the rig, "" = free
}

func NewWorkflowOrchestrator(
	controller hardware.Controller,
	engine *ProgressEngine,
	store repository.AnalysisStore,
	ratings repository.RatingsRepo,
	pollInterval time.Duration,
	pollAttempts int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WorkflowOrchestrator {
	return &WorkflowOrchestrator{
		controller:   controller,
		engine:       engine,
		store:        store,
		ratings:      ratings,
		m:            m,
		logger:       logger,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		now:          time.Now,
	}
}

// tryAcquire takes the rig for testerID. Re-entrant for the holder.
func (o *WorkflowOrchestrator) tryAcquire(testerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.holder != "" && o.holder != testerID {
		return ErrRigBusy
	}
	if o.holder == "" {
		o.m.ActiveWorkflows.Inc()
	}
	o.holder = testerID
	return nil
}

func (o *WorkflowOrchestrator) release(testerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.holder == testerID {
		o.holder = ""
		o.m.ActiveWorkflows.Dec()
	}
}

func (o *WorkflowOrchestrator) holds(testerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.holder == testerID
}

func (o *WorkflowOrchestrator) step(steps *[]StepLog, name string, err error) {
	entry := StepLog{Step: name, At: o.now()}
	if err != nil {
		entry.Error = err.Error()
	}
	*steps = append(*steps, entry)
	o.m.RecordWorkflowStep(name, err)

	if err != nil {
		o.logger.Warn("Room-visit step failed", zap.String("step", name), zap.Error(err))
	} else {
		o.logger.Debug("Room-visit step done", zap.String("step", name))
	}
}

// ArriveAtRoom runs the hardware sequence for the panelist's current
// assignment: status, pressurize with bounded readiness polling, select,
// open. The first failing step aborts and its reason is surfaced
// verbatim; the step log always comes back with the error.
func (o *WorkflowOrchestrator) ArriveAtRoom(ctx context.Context, analysisID, testerID string) (*ArrivalResult, []StepLog, error) {
	var steps []StepLog

	a, err := o.store.Get(ctx, analysisID)
	if err != nil {
		return nil, steps, err
	}
	p, ok := a.TesterProgress[testerID]
	if !ok {
		return nil, steps, ErrNoProgress
	}
	if p.CurrentRoomNumber == nil {
		return nil, steps, ErrAlreadyComplete
	}
	room := *p.CurrentRoomNumber

	if err := o.tryAcquire(testerID); err != nil {
		return nil, steps, err
	}

	status, err := o.controller.Status(ctx)
	o.step(&steps, "status", err)
	if err != nil {
		o.release(testerID)
		return nil, steps, err
	}

	if status.Phase == hardware.PhaseStandby {
		_, err = o.controller.Pressurize(ctx)
		o.step(&steps, "pressurize", err)
		if err != nil {
			o.release(testerID)
			return nil, steps, err
		}

		err = o.waitForReady(ctx)
		o.step(&steps, "wait-ready", err)
		if err != nil {
			o.release(testerID)
			return nil, steps, err
		}
	}

	_, err = o.controller.SelectRoom(ctx, room)
	o.step(&steps, "select", err)
	if err != nil {
		o.release(testerID)
		return nil, steps, err
	}

	_, err = o.controller.OpenRoom(ctx)
	o.step(&steps, "open", err)
	if err != nil {
		o.release(testerID)
		return nil, steps, err
	}

	o.logger.Info("Panelist admitted to room",
		zap.String("analysis_id", analysisID),
		zap.String("tester_id", testerID),
		zap.Int("room", room),
	)
	return &ArrivalResult{RoomNumber: room, Steps: steps}, steps, nil
}

// waitForReady polls the controller at the configured interval until it
// reports ready. Exhausting the attempts fails the workflow: proceeding
// would only defer the same failure to the select step with a less
// actionable message.
func (o *WorkflowOrchestrator) waitForReady(ctx context.Context) error {
	for attempt := 0; attempt < o.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.pollInterval):
		}

		status, err := o.controller.Status(ctx)
		if err != nil {
			return err
		}
		if status.Phase == hardware.PhaseReady {
			return nil
		}
	}
	o.logger.Warn("Readiness polling exhausted",
		zap.Int("attempts", o.pollAttempts),
		zap.Duration("interval", o.pollInterval),
	)
	return ErrPressurizeTimeout
}

// SubmitRating stores the rating, marks the room complete, and returns
// the rig to standby. A standby failure is logged but never blocks the
// panelist from moving on.
func (o *WorkflowOrchestrator) SubmitRating(ctx context.Context, r *domain.Rating) (*SubmissionResult, error) {
	a, err := o.store.Get(ctx, r.AnalysisID)
	if err != nil {
		return nil, err
	}
	if !a.HasRoom(r.RoomNumber) {
		return nil, fmt.Errorf("room %d: %w", r.RoomNumber, ErrRoomNotAssigned)
	}
	for _, ra := range a.RoomAssignments {
		if ra.RoomNumber == r.RoomNumber {
			r.SampleRef = ra.SampleRef
		}
	}

	r.ResponseID = uuid.NewString()
	r.SubmittedAt = o.now()
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if err := o.ratings.Append(ctx, r); err != nil {
		return nil, err
	}

	completion, err := o.engine.CompleteRoom(ctx, r.AnalysisID, r.TesterID, r.RoomNumber)
	if err != nil {
		return nil, err
	}

	// Release the physical room, but only when this panelist is the one
	// driving the rig: a submission without a prior arrival (the manual
	// completion path) must not reset another panelist's live sequence.
	if o.holds(r.TesterID) {
		// Degraded mode: the next arrival will recover the rig via
		// status/standby if this fails.
		if _, err := o.controller.Standby(ctx); err != nil {
			o.logger.Warn("Failed to return rig to standby after submission",
				zap.String("analysis_id", r.AnalysisID),
				zap.String("tester_id", r.TesterID),
				zap.Error(err),
			)
		}
		o.release(r.TesterID)
	}

	return &SubmissionResult{
		Rating:         r,
		NextRoomNumber: completion.NextRoomNumber,
		IsComplete:     completion.IsComplete,
	}, nil
}
