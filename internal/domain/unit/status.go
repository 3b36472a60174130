package unit

import (
	"errors"
	"strings"
)

// Status is either a roster status (available, maintenance) or a transient
// motion overlay (moving, stopped) applied to the active unit's shadow copy.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusMoving      Status = "moving"
	StatusStopped     Status = "stopped"
)

var ErrInvalidStatus = errors.New("invalid unit status")

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether the status is one of the known constants.
func (status Status) Valid() bool {
	switch status {
	case StatusAvailable, StatusMaintenance, StatusMoving, StatusStopped:
		return true
	default:
		return false
	}
}

// Roster reports whether the status can appear in the roster itself.
func (status Status) Roster() bool {
	return status == StatusAvailable || status == StatusMaintenance
}

func (status Status) String() string {
	return string(status)
}
