package hardware

import "context"

// Phase operating state of the room controller rig.
type Phase string

const (
	PhaseStandby      Phase = "standby"
	PhasePressurizing Phase = "pressurizing"
	PhaseReady        Phase = "ready"
	PhaseValveOpened  Phase = "valve_opened"
	PhaseError        Phase = "error"
)

const (
	// NoRoomSelected selected_room value when no valve is targeted.
	NoRoomSelected = 0

	// NoErrorSentinel literal returned by LastError when nothing is recorded.
	NoErrorSentinel = "no error"

	// PressureTarget pressure reading once the rig settles, in kPa.
	PressureTarget = 2.5
)

// RoomState snapshot of the rig as observed over the status operation.
type RoomState struct {
	Connected    bool    `json:"connected"`
	Phase        Phase   `json:"phase"`
	Pressure     float64 `json:"pressure"`
	SelectedRoom int     `json:"selected_room"` // 1..8, 0 = none
}

// PreconditionError an operation was invoked while the rig was in an
// incompatible phase. The rig is left in phase "error" and the reason is
// recorded as its last error; callers recover with Standby.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Op + ": " + e.Reason
}

// Controller uniform operation set over the room rig, backed by either
// the remote device or the in-process simulator.
type Controller interface {
	Status(ctx context.Context) (RoomState, error)
	LastError(ctx context.Context) (string, error)
	Pressurize(ctx context.Context) (Phase, error)
	SelectRoom(ctx context.Context, room int) (int, error)
	ClearSelection(ctx context.Context) error
	OpenRoom(ctx context.Context) (Phase, error)
	Standby(ctx context.Context) (Phase, error)
}

// PhaseListener receives every phase transition. Used for telemetry;
// implementations must not block.
type PhaseListener func(from, to Phase, state RoomState)
