package path

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracker/internal/domain/geo"
)

var centralPark = geo.Coordinate{Lat: 40.7829, Lng: -73.9654}

func TestGenerate_Shape(t *testing.T) {
	for _, steps := range []int{1, 10, DefaultSteps, 240} {
		p, err := Generate(centralPark, WithSteps(steps))
		require.NoError(t, err)
		require.Len(t, p, steps+1)

		for i, s := range p {
			assert.GreaterOrEqual(t, s.Speed, 5.0, "sample %d", i)
			assert.LessOrEqual(t, s.Speed, 15.0, "sample %d", i)
			if i > 0 {
				assert.False(t, s.Timestamp.Before(p[i-1].Timestamp), "sample %d goes back in time", i)
			}
		}
	}
}

func TestGenerate_DefaultSixtyOneSamples(t *testing.T) {
	p, err := Generate(centralPark)
	require.NoError(t, err)
	assert.Len(t, p, 61)
}

func TestGenerate_KnownPoints(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p, err := Generate(centralPark, WithStartTime(start))
	require.NoError(t, err)

	first := p[0]
	assert.InDelta(t, 15.0, first.Speed, 1e-9)
	assert.InDelta(t, centralPark.Lat, first.Lat, 1e-12)
	assert.InDelta(t, centralPark.Lng+0.005, first.Lng, 1e-12)
	assert.Equal(t, start, first.Timestamp)

	// half way: angle 2π, radius shrunk by 15%
	mid := p[30]
	assert.InDelta(t, 15.0, mid.Speed, 1e-9)
	assert.InDelta(t, centralPark.Lat, mid.Lat, 1e-12)
	assert.InDelta(t, centralPark.Lng+0.005*0.85, mid.Lng, 1e-12)
	assert.Equal(t, start.Add(30*time.Second), mid.Timestamp)
}

func TestGenerate_Reproducible(t *testing.T) {
	a, err := Generate(centralPark, WithStartTime(time.Unix(100, 0)))
	require.NoError(t, err)
	b, err := Generate(centralPark, WithStartTime(time.Unix(500, 0)))
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Coordinate, b[i].Coordinate)
		assert.Equal(t, a[i].Speed, b[i].Speed)
		assert.Equal(t, 400*time.Second, b[i].Timestamp.Sub(a[i].Timestamp))
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(geo.Coordinate{Lat: math.NaN(), Lng: 0})
	assert.ErrorIs(t, err, ErrInvalidStart)
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)

	_, err = Generate(geo.Coordinate{Lat: 0, Lng: 200})
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = Generate(centralPark, WithSteps(0))
	assert.ErrorIs(t, err, ErrInvalidSteps)
}

func TestSpeedAt_Bounds(t *testing.T) {
	for a := 0.0; a < 4*math.Pi; a += 0.01 {
		s := SpeedAt(a)
		assert.True(t, s >= 5 && s <= 15, "speed %v at angle %v", s, a)
	}
}
