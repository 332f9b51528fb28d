// Package flightid parses free-text flight identifiers into airline and
// number components.
package flightid

import (
	"regexp"
	"strings"
)

// Parsed is the result of Normalize. Empty strings mean "not present".
type Parsed struct {
	FlightNumber string
	Callsign     string
	AirlineICAO  string
	AirlineIATA  string
}

var flightPattern = regexp.MustCompile(`^([A-Z]{2,3})(\d{1,4}[A-Z]?)$`)

var icaoToIata = map[string]string{
	"BAW": "BA", // British Airways
	"UAL": "UA", // United
	"AAL": "AA", // American
	"DAL": "DL", // Delta
	"AFR": "AF", // Air France
	"KLM": "KL",
	"DLH": "LH", // Lufthansa
	"UAE": "EK", // Emirates
	"QTR": "QR", // Qatar
	"SIA": "SQ", // Singapore
	"CPA": "CX", // Cathay Pacific
	"RYR": "FR", // Ryanair
	"EZY": "U2", // easyJet
}

var iataToIcao = func() map[string]string {
	m := make(map[string]string, len(icaoToIata))
	for icao, iata := range icaoToIata {
		m[iata] = icao
	}
	return m
}()

// Normalize parses identifiers such as "BA1489" (IATA flight number) or
// "BAW1489" (ICAO callsign). Input that matches neither shape is returned
// cleaned as a bare callsign.
func Normalize(input string) Parsed {
	cleaned := strings.ToUpper(strings.TrimSpace(input))

	m := flightPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return Parsed{Callsign: cleaned}
	}

	airline, number := m[1], m[2]
	if len(airline) == 2 {
		return Parsed{
			AirlineIATA:  airline,
			FlightNumber: airline + number,
		}
	}

	return Parsed{
		AirlineICAO:  airline,
		Callsign:     airline + number,
		FlightNumber: IcaoToIata(airline) + number,
	}
}

// IcaoToIata maps a 3-letter airline code to its 2-letter code. Unknown codes
// fall back to their first two characters.
func IcaoToIata(icao string) string {
	if iata, ok := icaoToIata[icao]; ok {
		return iata
	}
	if len(icao) < 2 {
		return icao
	}
	return icao[:2]
}

// IataToIcao maps a 2-letter airline code to its 3-letter code. Unknown codes
// get an "X" suffix.
func IataToIcao(iata string) string {
	if icao, ok := iataToIcao[iata]; ok {
		return icao
	}
	return iata + "X"
}
