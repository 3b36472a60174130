package unit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracker/internal/domain/geo"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("  MAINTENANCE ")
	require.NoError(t, err)
	assert.Equal(t, StatusMaintenance, s)

	_, err = ParseStatus("parked")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUnitValidate(t *testing.T) {
	base := Unit{
		ID:       "1",
		Name:     "John Deere 8R 410",
		Model:    "8R Series",
		Status:   StatusAvailable,
		Location: geo.Coordinate{Lat: 40.7829, Lng: -73.9654},
	}
	require.NoError(t, base.Validate())

	noID := base
	noID.ID = " "
	assert.ErrorIs(t, noID.Validate(), ErrEmptyID)

	moving := base
	moving.Status = StatusMoving
	assert.ErrorIs(t, moving.Validate(), ErrInvalidStatus)

	badLoc := base
	badLoc.Location.Lat = math.NaN()
	assert.ErrorIs(t, badLoc.Validate(), geo.ErrInvalidLatitude)
}

func TestRequestable(t *testing.T) {
	assert.True(t, Unit{Status: StatusAvailable}.Requestable())
	assert.False(t, Unit{Status: StatusMaintenance}.Requestable())
}

func TestSeenAgo(t *testing.T) {
	assert.Equal(t, "just now", SeenAgo(10*time.Second))
	assert.Equal(t, "1 minute ago", SeenAgo(90*time.Second))
	assert.Equal(t, "5 minutes ago", SeenAgo(5*time.Minute+3*time.Second))
	assert.Equal(t, "3 hours ago", SeenAgo(3*time.Hour))
	assert.Equal(t, "2 days ago", SeenAgo(49*time.Hour))
}
