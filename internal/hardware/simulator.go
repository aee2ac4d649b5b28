package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSettleDelay pressurizing -> ready.
	DefaultSettleDelay = 2 * time.Second
	// DefaultValveOpenDelay valve_opened -> ready.
	DefaultValveOpenDelay = 3 * time.Second
)

// Simulator in-process stand-in for the room rig. One mutable state
// record behind a mutex; the delayed transitions run on cancellable
// timers guarded by a generation counter, so Standby or a repeated
// Pressurize/OpenRoom can never race a stale timer into the state.
type Simulator struct {
	mu sync.Mutex

	phase        Phase
	pressure     float64
	selectedRoom int
	lastErr      string

	settleDelay    time.Duration
	valveOpenDelay time.Duration

	gen   uint64
	timer *time.Timer

	logger   *zap.Logger
	listener PhaseListener
}

// NewSimulator builds a simulator with the production rig timings.
func NewSimulator(logger *zap.Logger) *Simulator {
	return NewSimulatorWithDelays(DefaultSettleDelay, DefaultValveOpenDelay, logger)
}

// NewSimulatorWithDelays is used by tests and by deployments whose rig
// timing differs from the defaults.
func NewSimulatorWithDelays(settle, valveOpen time.Duration, logger *zap.Logger) *Simulator {
	return &Simulator{
		phase:          PhaseStandby,
		lastErr:        NoErrorSentinel,
		settleDelay:    settle,
		valveOpenDelay: valveOpen,
		logger:         logger,
	}
}

// SetPhaseListener registers the telemetry hook. Call before use.
func (s *Simulator) SetPhaseListener(l PhaseListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// snapshotLocked caller holds s.mu.
func (s *Simulator) snapshotLocked() RoomState {
	return RoomState{
		Connected:    true,
		Phase:        s.phase,
		Pressure:     s.pressure,
		SelectedRoom: s.selectedRoom,
	}
}

// setPhaseLocked caller holds s.mu.
func (s *Simulator) setPhaseLocked(to Phase) {
	from := s.phase
	if from == to {
		return
	}
	s.phase = to
	if s.listener != nil {
		s.listener(from, to, s.snapshotLocked())
	}
}

// cancelTimerLocked invalidates any pending transition. Caller holds s.mu.
func (s *Simulator) cancelTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleLocked arms a transition that only fires if no other state
// change happened in between. Caller holds s.mu.
func (s *Simulator) scheduleLocked(d time.Duration, fire func()) {
	s.cancelTimerLocked()
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		fire()
	})
}

// failLocked records a precondition violation. Caller holds s.mu.
func (s *Simulator) failLocked(op, reason string) error {
	s.cancelTimerLocked()
	s.lastErr = reason
	s.setPhaseLocked(PhaseError)
	s.logger.Warn("Room controller precondition violated",
		zap.String("op", op),
		zap.String("reason", reason),
	)
	return &PreconditionError{Op: op, Reason: reason}
}

func (s *Simulator) Status(_ context.Context) (RoomState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *Simulator) LastError(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr, nil
}

func (s *Simulator) Pressurize(_ context.Context) (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseReady:
		// Already at pressure.
		return s.phase, nil
	case PhaseStandby:
		s.setPhaseLocked(PhasePressurizing)
		s.scheduleLocked(s.settleDelay, func() {
			s.pressure = PressureTarget
			s.setPhaseLocked(PhaseReady)
		})
		return s.phase, nil
	default:
		return PhaseError, s.failLocked("pressurize",
			fmt.Sprintf("cannot pressurize from phase %q", s.phase))
	}
}

func (s *Simulator) SelectRoom(_ context.Context, room int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room < 1 || room > 8 {
		return NoRoomSelected, s.failLocked("select",
			fmt.Sprintf("room %d out of range 1..8", room))
	}
	if s.phase != PhaseReady {
		return NoRoomSelected, s.failLocked("select",
			fmt.Sprintf("cannot select a room from phase %q", s.phase))
	}
	s.selectedRoom = room
	return room, nil
}

func (s *Simulator) ClearSelection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedRoom = NoRoomSelected
	return nil
}

func (s *Simulator) OpenRoom(_ context.Context) (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedRoom == NoRoomSelected {
		return PhaseError, s.failLocked("open", "no room selected")
	}
	if s.phase != PhaseReady {
		return PhaseError, s.failLocked("open",
			fmt.Sprintf("cannot open a valve from phase %q", s.phase))
	}
	s.setPhaseLocked(PhaseValveOpened)
	s.scheduleLocked(s.valveOpenDelay, func() {
		s.setPhaseLocked(PhaseReady)
	})
	return s.phase, nil
}

func (s *Simulator) Standby(_ context.Context) (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimerLocked()
	s.selectedRoom = NoRoomSelected
	s.pressure = 0
	s.setPhaseLocked(PhaseStandby)
	return s.phase, nil
}
