package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSamePointIsZero(t *testing.T) {
	points := [][2]float64{{0, 0}, {51.4706, -0.4619}, {-33.9461, 151.1772}, {89.9, 179.9}}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{51.4706, -0.4619, 51.4720, -0.4600},
		{40.6413, -73.7781, 51.4700, -0.4543},
		{-33.9461, 151.1772, 1.3644, 103.9915},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1], p[2], p[3]), Distance(p[2], p[3], p[0], p[1]), 1e-6)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// Two points on the Heathrow apron.
	d := Distance(51.4706, -0.4619, 51.4720, -0.4600)
	assert.Greater(t, d, 150.0)
	assert.Less(t, d, 250.0)

	// One degree of latitude is roughly 111.2km.
	assert.InDelta(t, 111195, Distance(0, 0, 1, 0), 50)
}

func TestSizeCode(t *testing.T) {
	cases := map[float64]string{
		10.0:  "A",
		15.0:  "B",
		23.9:  "B",
		35.8:  "C",
		36.0:  "D",
		47.6:  "D",
		64.8:  "E",
		65.0:  "F",
		79.75: "F",
	}
	for wingspan, want := range cases {
		assert.Equal(t, want, SizeCode(wingspan), "wingspan %.2f", wingspan)
	}
}

func TestFitsStand(t *testing.T) {
	assert.True(t, FitsStand(79.75, 0), "unrestricted stand")
	assert.True(t, FitsStand(35.8, 36.0))
	assert.True(t, FitsStand(36.0, 36.0))
	assert.False(t, FitsStand(64.8, 36.0))
	assert.True(t, FitsStand(0, 24.0), "unknown aircraft fits anywhere")
}

func TestNormalizeStandName(t *testing.T) {
	cases := map[string]string{
		"A10":       "A10",
		"A010":      "A10",
		"A-10":      "A10",
		"Gate A10":  "A10",
		"gate a10":  "A10",
		"Stand 501": "501",
		"0501":      "501",
		"B32L":      "B32L",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStandName(in), "input %q", in)
	}
}
