package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stand-resolver/db"
	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
)

// AirlinePatterns returns an airline's stand usage at an airport, most
// probable first.
func (r *Repository) AirlinePatterns(ctx context.Context, airportID, icao string, limit int) ([]ontology.AirlineStandPattern, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT id, airport_id, airline_icao, stand_name, usage_count, probability_score, last_seen
		FROM airline_stand_patterns
		WHERE airport_id = ? AND airline_icao = ?
		ORDER BY probability_score DESC, usage_count DESC, stand_name
		LIMIT ?`),
		upper(airportID), upper(icao), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query airline patterns")
	}
	defer rows.Close()

	var patterns []ontology.AirlineStandPattern
	for rows.Next() {
		var (
			p        ontology.AirlineStandPattern
			lastSeen string
		)
		if err := rows.Scan(&p.ID, &p.AirportID, &p.AirlineICAO, &p.StandName,
			&p.UsageCount, &p.ProbabilityScore, &lastSeen); err != nil {
			return nil, errors.Wrap(err, "failed to scan airline pattern")
		}
		p.LastSeen = parseTime(lastSeen)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate airline patterns")
	}
	return patterns, nil
}

// RecordPatternObservation counts one more use of a stand by an airline and
// recomputes the airline's probability scores at that airport as each
// stand's share of the total usage.
func (r *Repository) RecordPatternObservation(ctx context.Context, airportID, icao, standName string, seenAt time.Time) error {
	airportID, icao = upper(airportID), upper(icao)
	if airportID == "" || icao == "" || standName == "" {
		return errors.New("airport, airline and stand are required")
	}
	seen := formatTime(seenAt)

	err := db.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(`
			UPDATE airline_stand_patterns SET usage_count = usage_count + 1, last_seen = ?
			WHERE airport_id = ? AND airline_icao = ? AND stand_name = ?`),
			seen, airportID, icao, standName)
		if err != nil {
			return errors.Wrap(err, "failed to update pattern")
		}

		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx, r.q(`
				INSERT INTO airline_stand_patterns (id, airport_id, airline_icao, stand_name, usage_count, probability_score, last_seen)
				VALUES (?, ?, ?, ?, 1, 0, ?)`),
				uuid.New().String(), airportID, icao, standName, seen); err != nil {
				return errors.Wrap(err, "failed to insert pattern")
			}
		}

		var total int
		if err := tx.QueryRowContext(ctx, r.q(`
			SELECT COALESCE(SUM(usage_count), 0) FROM airline_stand_patterns
			WHERE airport_id = ? AND airline_icao = ?`),
			airportID, icao).Scan(&total); err != nil {
			return errors.Wrap(err, "failed to total pattern usage")
		}
		if total == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, r.q(`
			UPDATE airline_stand_patterns SET probability_score = CAST(usage_count AS DOUBLE PRECISION) / ?
			WHERE airport_id = ? AND airline_icao = ?`),
			float64(total), airportID, icao); err != nil {
			return errors.Wrap(err, "failed to update pattern probabilities")
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug("pattern observation recorded",
		zap.String(logger.FieldAirport, airportID),
		zap.String("airline", icao),
		zap.String(logger.FieldStand, standName))
	return nil
}
