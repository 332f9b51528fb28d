package shared

import (
	"time"
)

// API Response types
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Event types
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
}

// Health check
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
	Cache     interface{}       `json:"cache,omitempty"`
}

// Constants
const (
	// Event Types
	EventTypeResolved      = "resolved"
	EventTypeReportCreated = "report.created"

	// Event Sources
	SourceResolver      = "stand-resolver"
	SourceReportService = "report-service"

	// Health Status
	HealthOK       = "ok"
	HealthDegraded = "degraded"

	// Error Codes
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeStandUnresolved = "STAND_UNRESOLVED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// Resolution event data keys
const (
	DataFlightNumber = "flight_number"
	DataAirlineICAO  = "airline_icao"
	DataAirport      = "airport"
	DataStand        = "stand"
	DataStage        = "stage"
	DataConfidence   = "confidence"
	DataReportID     = "report_id"
)
