package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"stand-resolver/pkg/ontology"
)

// CreateReport inserts a crowdsourced report.
func (r *Repository) CreateReport(ctx context.Context, rep *ontology.CrowdsourcedReport) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO crowdsourced_reports (id, airport_id, stand_name, flight_identifier, timestamp,
			reporter_id, notes, confidence_score, verified, moderation_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rep.ID, rep.AirportID, rep.StandName, nullString(rep.FlightIdentifier), formatTime(rep.Timestamp),
		nullString(rep.ReporterID), nullString(rep.Notes), rep.ConfidenceScore, rep.Verified,
		rep.ModerationStatus, formatTime(rep.CreatedAt))
	if err != nil {
		return errors.Wrap(err, "failed to create report")
	}
	return nil
}

// ReportsByStatus lists an airport's reports with the given moderation
// status, newest first.
func (r *Repository) ReportsByStatus(ctx context.Context, airportID, status string, limit int) ([]ontology.CrowdsourcedReport, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT id, airport_id, stand_name, flight_identifier, timestamp, reporter_id, notes,
			confidence_score, verified, moderation_status, created_at
		FROM crowdsourced_reports
		WHERE airport_id = ? AND moderation_status = ?
		ORDER BY timestamp DESC
		LIMIT ?`),
		upper(airportID), status, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reports")
	}
	defer rows.Close()

	reports := []ontology.CrowdsourcedReport{}
	for rows.Next() {
		var (
			rep                     ontology.CrowdsourcedReport
			flight, reporter, notes sql.NullString
			ts, createdAt           string
		)
		if err := rows.Scan(&rep.ID, &rep.AirportID, &rep.StandName, &flight, &ts, &reporter, &notes,
			&rep.ConfidenceScore, &rep.Verified, &rep.ModerationStatus, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan report")
		}
		rep.FlightIdentifier = flight.String
		rep.ReporterID = reporter.String
		rep.Notes = notes.String
		rep.Timestamp = parseTime(ts)
		rep.CreatedAt = parseTime(createdAt)
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate reports")
	}
	return reports, nil
}
