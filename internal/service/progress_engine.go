package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/repository"

	"go.uber.org/zap"
)

// CompletionResult outcome of marking a room complete.
type CompletionResult struct {
	NextRoomNumber *int `json:"next_room_number,omitempty"`
	IsComplete     bool `json:"is_complete"`
}

// ProgressEngine decides which room each panelist visits next: a uniform
// random room on first entry, then a uniform random pick among the rooms
// not yet completed, until every room is done.
type ProgressEngine struct {
	store  repository.AnalysisStore
	logger *zap.Logger

	now func() time.Time
	// pick returns a uniform index in [0, n). Swapped in tests.
	pick func(n int) int
}

func NewProgressEngine(store repository.AnalysisStore, logger *zap.Logger) *ProgressEngine {
	return &ProgressEngine{
		store:  store,
		logger: logger,
		now:    time.Now,
		pick:   rand.IntN,
	}
}

// StartTesting enters (or resumes) a panelist in the analysis and
// returns the room to go to. First entry picks a random room so the
// panel does not queue up at room 1; re-entry returns the stored
// assignment unchanged, so a reloaded page never re-randomizes.
func (e *ProgressEngine) StartTesting(ctx context.Context, analysisID, testerID string) (*domain.Analysis, int, error) {
	var assigned int
	a, err := e.store.Mutate(ctx, analysisID, func(a *domain.Analysis) error {
		if !a.HasPanelist(testerID) {
			return ErrNotEnrolled
		}
		if !a.IsActive {
			return ErrNotActive
		}
		if a.Expired(e.now()) {
			return ErrExpired
		}

		now := e.now()
		p, ok := a.TesterProgress[testerID]
		if !ok {
			rooms := a.RoomNumbers()
			room := rooms[e.pick(len(rooms))]
			p = &domain.Progress{
				TesterID:             testerID,
				CompletedRoomNumbers: []int{},
				CurrentRoomNumber:    &room,
				StartedAt:            now,
				LastUpdatedAt:        now,
			}
			a.TesterProgress[testerID] = p
			e.logger.Info("Panelist started testing",
				zap.String("analysis_id", analysisID),
				zap.String("tester_id", testerID),
				zap.Int("assigned_room", room),
			)
		} else {
			p.LastUpdatedAt = now
		}

		if p.CurrentRoomNumber != nil {
			assigned = *p.CurrentRoomNumber
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return a, assigned, nil
}

// CompleteRoom marks roomNumber finished for the panelist and assigns
// the next one. Marking is idempotent: a room already in the completed
// list is not appended again.
func (e *ProgressEngine) CompleteRoom(ctx context.Context, analysisID, testerID string, roomNumber int) (*CompletionResult, error) {
	result := &CompletionResult{}
	_, err := e.store.Mutate(ctx, analysisID, func(a *domain.Analysis) error {
		p, ok := a.TesterProgress[testerID]
		if !ok {
			return ErrNoProgress
		}
		if !a.HasRoom(roomNumber) {
			return fmt.Errorf("room %d: %w", roomNumber, ErrRoomNotAssigned)
		}

		if !p.HasCompleted(roomNumber) {
			p.CompletedRoomNumbers = append(p.CompletedRoomNumbers, roomNumber)
		}

		if a.IsComplete(p) {
			p.CurrentRoomNumber = nil
			result.IsComplete = true
			e.logger.Info("Panelist completed all rooms",
				zap.String("analysis_id", analysisID),
				zap.String("tester_id", testerID),
			)
		} else {
			remaining := a.RemainingRooms(p)
			next := remaining[e.pick(len(remaining))]
			p.CurrentRoomNumber = &next
			result.NextRoomNumber = &next
		}

		p.LastUpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
