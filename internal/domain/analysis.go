package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxRooms physical booths on the rig, numbered 1..8.
	MaxRooms = 8
	// MaxPanelists seats per analysis.
	MaxPanelists = 6

	// ActivationWindow how long panelists may keep testing after activation.
	ActivationWindow = 12 * time.Hour
)

// RoomAssignment binds one physical room to the sample presented in it.
// Immutable once the analysis is created.
type RoomAssignment struct {
	RoomNumber  int    `json:"room_number"`
	SampleRef   string `json:"sample_ref"`
	SampleLabel string `json:"sample_label"`
}

// Progress is one panelist's traversal through the analysis's room set.
// Created lazily on the panelist's first entry.
type Progress struct {
	TesterID             string    `json:"tester_id"`
	CompletedRoomNumbers []int     `json:"completed_room_numbers"`
	CurrentRoomNumber    *int      `json:"current_room_number,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	LastUpdatedAt        time.Time `json:"last_updated_at"`
}

// HasCompleted reports whether roomNumber is already in the completed list.
func (p *Progress) HasCompleted(roomNumber int) bool {
	for _, n := range p.CompletedRoomNumbers {
		if n == roomNumber {
			return true
		}
	}
	return false
}

// Analysis is one sensory-testing session: a fixed room→sample layout
// plus a roster of panelists, stored as a single JSON document.
type Analysis struct {
	AnalysisID  string `json:"analysis_id"`
	ProjectCode string `json:"project_code"`
	ProjectRef  string `json:"project_ref"`

	RoomAssignments []RoomAssignment `json:"room_assignments"`
	PanelistIDs     []string         `json:"panelist_ids"`

	CreatedAt   time.Time  `json:"created_at"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`

	// TesterProgress keyed by panelist ID; only panelists who have
	// started have an entry.
	TesterProgress map[string]*Progress `json:"tester_progress"`
}

// HasPanelist reports whether id is on the roster.
func (a *Analysis) HasPanelist(id string) bool {
	for _, p := range a.PanelistIDs {
		if p == id {
			return true
		}
	}
	return false
}

// HasRoom reports whether roomNumber is assigned in this analysis.
func (a *Analysis) HasRoom(roomNumber int) bool {
	for _, ra := range a.RoomAssignments {
		if ra.RoomNumber == roomNumber {
			return true
		}
	}
	return false
}

// RoomNumbers returns the assigned room numbers in layout order.
func (a *Analysis) RoomNumbers() []int {
	nums := make([]int, 0, len(a.RoomAssignments))
	for _, ra := range a.RoomAssignments {
		nums = append(nums, ra.RoomNumber)
	}
	return nums
}

// RemainingRooms returns the assigned rooms the given progress has not
// completed yet, in layout order.
func (a *Analysis) RemainingRooms(p *Progress) []int {
	var remaining []int
	for _, ra := range a.RoomAssignments {
		if !p.HasCompleted(ra.RoomNumber) {
			remaining = append(remaining, ra.RoomNumber)
		}
	}
	return remaining
}

// IsComplete reports whether the progress covers every assigned room.
func (a *Analysis) IsComplete(p *Progress) bool {
	return len(p.CompletedRoomNumbers) >= len(a.RoomAssignments)
}

// Expired reports whether the activation window has lapsed at the given
// instant. Derived, never stored.
func (a *Analysis) Expired(now time.Time) bool {
	return a.IsActive && a.ActivatedAt != nil && now.Sub(*a.ActivatedAt) > ActivationWindow
}

// ValidationError enumerates every violated field of a create/update.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Validate checks the structural invariants of the aggregate. All
// violations are collected so the coordinator sees them in one pass.
func (a *Analysis) Validate() error {
	var v []string
	if a.AnalysisID == "" {
		v = append(v, "analysis_id: must not be empty")
	}
	if a.ProjectCode == "" {
		v = append(v, "project_code: must not be empty")
	}

	if n := len(a.RoomAssignments); n < 1 || n > MaxRooms {
		v = append(v, fmt.Sprintf("room_assignments: count must be 1..%d, got %d", MaxRooms, n))
	}
	seenRooms := map[int]bool{}
	for _, ra := range a.RoomAssignments {
		if ra.RoomNumber < 1 || ra.RoomNumber > MaxRooms {
			v = append(v, fmt.Sprintf("room_assignments: room number %d out of range 1..%d", ra.RoomNumber, MaxRooms))
		}
		if seenRooms[ra.RoomNumber] {
			v = append(v, fmt.Sprintf("room_assignments: duplicate room number %d", ra.RoomNumber))
		}
		seenRooms[ra.RoomNumber] = true
		if ra.SampleRef == "" {
			v = append(v, fmt.Sprintf("room_assignments: room %d has no sample reference", ra.RoomNumber))
		}
	}

	if n := len(a.PanelistIDs); n < 1 || n > MaxPanelists {
		v = append(v, fmt.Sprintf("panelist_ids: count must be 1..%d, got %d", MaxPanelists, n))
	}
	seenPanelists := map[string]bool{}
	for _, id := range a.PanelistIDs {
		if id == "" {
			v = append(v, "panelist_ids: empty panelist id")
			continue
		}
		if seenPanelists[id] {
			v = append(v, "panelist_ids: duplicate panelist "+id)
		}
		seenPanelists[id] = true
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}
