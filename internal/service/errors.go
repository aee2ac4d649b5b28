package service

import "errors"

var (
	// ErrNotEnrolled the panelist is not on the analysis roster.
	ErrNotEnrolled = errors.New("panelist is not enrolled in this analysis")
	// ErrNotActive the analysis has not been activated yet.
	ErrNotActive = errors.New("analysis is not active")
	// ErrExpired the 12-hour testing window has lapsed.
	ErrExpired = errors.New("analysis testing window has expired")
	// ErrNoProgress the panelist has not started this analysis.
	ErrNoProgress = errors.New("panelist has not started testing")
	// ErrRoomNotAssigned the room number is not part of this analysis.
	ErrRoomNotAssigned = errors.New("room is not assigned in this analysis")
	// ErrAlreadyComplete the panelist has no room left to visit.
	ErrAlreadyComplete = errors.New("panelist has already completed all rooms")
	// ErrRigBusy another panelist currently holds the room rig.
	ErrRigBusy = errors.New("room system is busy with another panelist")
	// ErrPressurizeTimeout the rig never reported ready within the polling budget.
	ErrPressurizeTimeout = errors.New("room system did not reach ready in time")
)
