// Package geo holds the distance and sizing math used to match aircraft to
// stands.
package geo

import (
	"math"
	"regexp"
	"strings"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371e3

// Distance returns the great-circle distance in meters between two
// coordinates using the Haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// SizeCode returns the ICAO Aerodrome Reference Code letter for a wingspan
// in meters.
func SizeCode(wingspanM float64) string {
	switch {
	case wingspanM < 15:
		return "A"
	case wingspanM < 24:
		return "B"
	case wingspanM < 36:
		return "C"
	case wingspanM < 52:
		return "D"
	case wingspanM < 65:
		return "E"
	default:
		return "F"
	}
}

// FitsStand reports whether an aircraft of the given wingspan can use a stand.
// A zero maxWingspanM means the stand has no restriction.
func FitsStand(wingspanM, maxWingspanM float64) bool {
	if maxWingspanM <= 0 {
		return true
	}
	return wingspanM <= maxWingspanM
}

var (
	standPrefixWords = regexp.MustCompile(`\b(GATE|STAND)\b`)
	standLeadingZero = regexp.MustCompile(`^([A-Z]*)0+(\d)`)
)

// NormalizeStandName folds the usual spellings of a stand ("Gate A-010",
// "stand a10", "A010") to a canonical form ("A10").
func NormalizeStandName(name string) string {
	s := strings.ToUpper(name)
	s = standPrefixWords.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.Join(strings.Fields(s), "")
	return standLeadingZero.ReplaceAllString(s, "$1$2")
}
