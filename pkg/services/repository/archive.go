package repository

import (
	"context"

	"github.com/cockroachdb/errors"

	"stand-resolver/pkg/ontology"
)

// ArchiveResolution stores a served resolution in flight_cache.
func (r *Repository) ArchiveResolution(ctx context.Context, rec ontology.FlightCacheRecord) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO flight_cache (id, flight_identifier, airport_id, arrival_timestamp, resolved_stand,
			confidence, fallback_level, data_sources, raw_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.FlightIdentifier, rec.AirportID, formatTime(rec.ArrivalTimestamp), rec.ResolvedStand,
		rec.Confidence, rec.FallbackLevel, rec.DataSources, nullString(rec.RawData),
		formatTime(rec.ExpiresAt), formatTime(rec.CreatedAt))
	if err != nil {
		return errors.Wrapf(err, "failed to archive resolution for %s", rec.FlightIdentifier)
	}
	return nil
}
