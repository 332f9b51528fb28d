package ontology

import (
	"time"
)

const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// CrowdsourcedReport is a user-submitted observation of a stand in use.
type CrowdsourcedReport struct {
	ID               string    `json:"id" db:"id"`
	AirportID        string    `json:"airport_id" db:"airport_id"`
	StandName        string    `json:"stand_name" db:"stand_name"`
	FlightIdentifier string    `json:"flight_identifier,omitempty" db:"flight_identifier"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	ReporterID       string    `json:"reporter_id,omitempty" db:"reporter_id"`
	Notes            string    `json:"notes,omitempty" db:"notes"`
	ConfidenceScore  float64   `json:"confidence_score" db:"confidence_score"`
	Verified         bool      `json:"verified" db:"verified"`
	ModerationStatus string    `json:"moderation_status" db:"moderation_status"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type CreateReportRequest struct {
	AirportID        string    `json:"airport_id" validate:"required,min=3,max=4"`
	StandName        string    `json:"stand_name" validate:"required,min=1"`
	FlightIdentifier string    `json:"flight_identifier,omitempty"`
	Timestamp        time.Time `json:"timestamp" validate:"required"`
	ReporterID       string    `json:"reporter_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}
