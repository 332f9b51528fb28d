package ontology

import (
	"strings"
	"time"
)

// FlightInput is what a caller knows about a flight. At least one of
// FlightNumber or Callsign must be set.
type FlightInput struct {
	FlightNumber string     `json:"flight_number,omitempty"`
	Callsign     string     `json:"callsign,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Airport      string     `json:"airport,omitempty"`
}

// Identifier returns the identifier used for parsing: the flight number when
// present, otherwise the callsign. Blank values count as absent.
func (f FlightInput) Identifier() string {
	if fn := strings.TrimSpace(f.FlightNumber); fn != "" {
		return fn
	}
	return strings.TrimSpace(f.Callsign)
}

// NormalizedFlight is the parsed and enriched form of a FlightInput.
type NormalizedFlight struct {
	Callsign         string     `json:"callsign"`
	FlightNumber     string     `json:"flight_number"`
	AirlineICAO      string     `json:"airline_icao"`
	AirlineIATA      string     `json:"airline_iata,omitempty"`
	DepartureAirport string     `json:"departure_airport,omitempty"`
	ArrivalAirport   string     `json:"arrival_airport"`
	AircraftType     string     `json:"aircraft_type,omitempty"`
	ScheduledArrival *time.Time `json:"scheduled_arrival,omitempty"`
}

// FlightData is best-effort flight metadata returned by a data source.
type FlightData struct {
	Callsign         string     `json:"callsign,omitempty"`
	FlightNumber     string     `json:"flight_number,omitempty"`
	Origin           string     `json:"origin,omitempty"`
	Destination      string     `json:"destination,omitempty"`
	AircraftType     string     `json:"aircraft_type,omitempty"`
	Registration     string     `json:"registration,omitempty"`
	ScheduledArrival *time.Time `json:"scheduled_arrival,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
	Status           string     `json:"status,omitempty"`
}

// PositionData is a single position sample of an aircraft.
type PositionData struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	OnGround  bool      `json:"on_ground"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
}
