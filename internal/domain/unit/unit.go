package unit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-tracker/internal/domain/geo"
)

// Unit is a tracked vehicle as loaded from the roster.
type Unit struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Model    string         `json:"model"`
	Status   Status         `json:"status"`
	Location geo.Coordinate `json:"location"`
	LastSeen string         `json:"last_seen"`
}

var (
	ErrEmptyID   = errors.New("unit id cannot be empty")
	ErrEmptyName = errors.New("unit name cannot be empty")
)

// Validate checks invariants of a roster entry.
func (u Unit) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if !u.Status.Roster() {
		return ErrInvalidStatus
	}
	return u.Location.Validate()
}

// Requestable reports whether tracking may be requested for the unit.
func (u Unit) Requestable() bool {
	return u.Status == StatusAvailable
}

// SeenAgo renders an elapsed duration as the roster's "last seen" label.
func SeenAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d/time.Minute))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	}
	return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
}
