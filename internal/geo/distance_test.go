package geo

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		p := Point{Latitude: 19.0760, Longitude: 72.8777}
		assert.Equal(t, 0.0, DistanceMeters(p, p))
	})

	t.Run("symmetric", func(t *testing.T) {
		points := []Point{
			{Latitude: 0, Longitude: 0},
			{Latitude: 28.6139, Longitude: 77.2090},
			{Latitude: -33.8688, Longitude: 151.2093},
			{Latitude: 51.5074, Longitude: -0.1278},
		}
		for _, a := range points {
			for _, b := range points {
				assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
			}
		}
	})

	t.Run("equator offset of 0.0018 degrees is about 200m", func(t *testing.T) {
		d := DistanceMeters(Point{0, 0}, Point{0, 0.0018})
		assert.InDelta(t, 200.15, d, 0.1)
	})

	t.Run("known city pair", func(t *testing.T) {
		mumbai := Point{Latitude: 19.0760, Longitude: 72.8777}
		pune := Point{Latitude: 18.5204, Longitude: 73.8567}
		d := DistanceMeters(mumbai, pune)
		assert.InDelta(t, 120000, d, 2000)
	})
}

func TestWithin(t *testing.T) {
	origin := Point{0, 0}

	t.Run("inside radius", func(t *testing.T) {
		ok, d := Within(origin, Point{0, 0.0017}, 200)
		assert.True(t, ok)
		assert.Less(t, d, 200.0)
	})

	t.Run("just past radius", func(t *testing.T) {
		ok, d := Within(origin, Point{0, 0.0018}, 200)
		assert.False(t, ok)
		assert.Greater(t, d, 200.0)
	})

	t.Run("exact boundary is inside", func(t *testing.T) {
		d := DistanceMeters(origin, Point{0, 0.0018})
		ok, _ := Within(origin, Point{0, 0.0018}, d)
		assert.True(t, ok)
	})
}

func TestPointFromDecimal(t *testing.T) {
	p := PointFromDecimal(decimal.RequireFromString("12.34567891"), decimal.RequireFromString("-76.54321098"))
	assert.True(t, math.Abs(p.Latitude-12.34567891) < 1e-9)
	assert.True(t, math.Abs(p.Longitude+76.54321098) < 1e-9)
}
