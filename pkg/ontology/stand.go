package ontology

import (
	"time"
)

type Airport struct {
	ID        string    `json:"icao" db:"id"`
	IATA      string    `json:"iata,omitempty" db:"iata"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city,omitempty" db:"city"`
	Country   string    `json:"country" db:"country"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Elevation *float64  `json:"elevation,omitempty" db:"elevation"`
	Timezone  string    `json:"timezone,omitempty" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Stand struct {
	ID                string   `json:"id" db:"id"`
	AirportID         string   `json:"airport_id" db:"airport_id"`
	StandName         string   `json:"name" db:"stand_name"`
	Terminal          string   `json:"terminal,omitempty" db:"terminal"`
	Gate              string   `json:"gate,omitempty" db:"gate"`
	Pier              string   `json:"pier,omitempty" db:"pier"`
	MaxWingspanM      *float64 `json:"max_wingspan_m,omitempty" db:"max_wingspan_m"`
	MaxLengthM        *float64 `json:"max_length_m,omitempty" db:"max_length_m"`
	AircraftSizeCode  string   `json:"aircraft_size_code,omitempty" db:"aircraft_size_code"`
	JetBridge         bool     `json:"jet_bridge" db:"jet_bridge"`
	ContactStand      bool     `json:"contact_stand" db:"contact_stand"`
	Latitude          *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64 `json:"longitude,omitempty" db:"longitude"`
	AirlinePreference string   `json:"airline_preference,omitempty" db:"airline_preference"`
	IsActive          bool     `json:"is_active" db:"is_active"`
}

// HasPosition reports whether the stand has surveyed coordinates.
func (s Stand) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// MaxWingspan returns the stand's wingspan limit, or 0 when unrestricted.
func (s Stand) MaxWingspan() float64 {
	if s.MaxWingspanM == nil {
		return 0
	}
	return *s.MaxWingspanM
}

// AirlineTerminalAssignment maps an airline to a terminal at an airport.
// Higher Priority wins.
type AirlineTerminalAssignment struct {
	ID          string `json:"id" db:"id"`
	AirportID   string `json:"airport_id" db:"airport_id"`
	AirlineICAO string `json:"airline_icao" db:"airline_icao"`
	AirlineIATA string `json:"airline_iata,omitempty" db:"airline_iata"`
	Terminal    string `json:"terminal" db:"terminal"`
	Pier        string `json:"pier,omitempty" db:"pier"`
	Priority    int    `json:"priority" db:"priority"`
}

// AirlineStandPattern records how often an airline has used a stand.
type AirlineStandPattern struct {
	ID               string    `json:"id" db:"id"`
	AirportID        string    `json:"airport_id" db:"airport_id"`
	AirlineICAO      string    `json:"airline_icao" db:"airline_icao"`
	StandName        string    `json:"stand_name" db:"stand_name"`
	UsageCount       int       `json:"usage_count" db:"usage_count"`
	ProbabilityScore float64   `json:"probability_score" db:"probability_score"`
	LastSeen         time.Time `json:"last_seen" db:"last_seen"`
}

type Aircraft struct {
	ICAOType     string   `json:"icao_type" db:"icao_type"`
	IATAType     string   `json:"iata_type,omitempty" db:"iata_type"`
	Manufacturer string   `json:"manufacturer,omitempty" db:"manufacturer"`
	Model        string   `json:"model,omitempty" db:"model"`
	WingspanM    *float64 `json:"wingspan_m,omitempty" db:"wingspan_m"`
	LengthM      *float64 `json:"length_m,omitempty" db:"length_m"`
	SizeCode     string   `json:"size_code,omitempty" db:"size_code"`
}
