package ontology

import (
	"time"
)

// FallbackStage identifies the strategy that produced a resolution. Lower is
// more trustworthy.
type FallbackStage int

const (
	StageHistoricalPosition FallbackStage = 1
	StageAirlinePattern     FallbackStage = 2
	StageTerminalAssignment FallbackStage = 3
	StageAircraftSize       FallbackStage = 4
)

var stageNames = map[FallbackStage]string{
	StageHistoricalPosition: "Historical ADS-B Position",
	StageAirlinePattern:     "Airline Stand Pattern",
	StageTerminalAssignment: "Terminal Assignment",
	StageAircraftSize:       "Aircraft Size Compatibility",
}

func (s FallbackStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// StandCandidate is a possible stand produced while evaluating one stage.
type StandCandidate struct {
	StandName  string
	Confidence float64
	Reason     string
	DistanceM  *float64
	Terminal   string
}

// ResolutionMetadata carries stage-specific evidence. Only the fields of the
// producing stage are set.
type ResolutionMetadata struct {
	Reason       string     `json:"reason,omitempty"`
	DistanceM    *float64   `json:"distance_m,omitempty"`
	UsageCount   *int       `json:"usage_count,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	Alternatives []string   `json:"alternatives,omitempty"`
	WingspanM    *float64   `json:"wingspan_m,omitempty"`
	SizeCode     string     `json:"size_code,omitempty"`
}

// StandResolution is the answer for a flight. It is cached and archived as
// produced and never modified afterwards.
type StandResolution struct {
	Stand             string              `json:"stand"`
	Confidence        float64             `json:"confidence"`
	FallbackStage     FallbackStage       `json:"fallback_stage"`
	FallbackStageName string              `json:"fallback_stage_name"`
	DataSources       []string            `json:"data_sources"`
	Terminal          string              `json:"terminal,omitempty"`
	Timestamp         time.Time           `json:"timestamp"`
	Metadata          *ResolutionMetadata `json:"metadata,omitempty"`
}

// FlightCacheRecord is the archived copy of a served resolution.
type FlightCacheRecord struct {
	ID               string    `json:"id" db:"id"`
	FlightIdentifier string    `json:"flight_identifier" db:"flight_identifier"`
	AirportID        string    `json:"airport_id" db:"airport_id"`
	ArrivalTimestamp time.Time `json:"arrival_timestamp" db:"arrival_timestamp"`
	ResolvedStand    string    `json:"resolved_stand" db:"resolved_stand"`
	Confidence       float64   `json:"confidence" db:"confidence"`
	FallbackLevel    int       `json:"fallback_level" db:"fallback_level"`
	DataSources      string    `json:"data_sources" db:"data_sources"`
	RawData          string    `json:"raw_data,omitempty" db:"raw_data"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
