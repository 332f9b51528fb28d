package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stand-resolver/db"
	"stand-resolver/pkg/ontology"
)

var standCols = []string{"id", "airport_id", "stand_name", "terminal", "gate", "pier", "max_wingspan_m",
	"max_length_m", "aircraft_size_code", "jet_bridge", "contact_stand", "latitude", "longitude",
	"airline_preference", "is_active"}

func newMock(t *testing.T, driver string) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	return New(conn, driver, zaptest.NewLogger(t)), mock
}

func TestActiveStandsRebindsForPostgres(t *testing.T) {
	repo, mock := newMock(t, db.DriverPostgres)

	mock.ExpectQuery(`FROM stands WHERE airport_id = \$1 AND is_active = TRUE AND terminal = \$2 ORDER BY COALESCE\(terminal, ''\), stand_name`).
		WithArgs("EGLL", "5").
		WillReturnRows(sqlmock.NewRows(standCols).
			AddRow("egll-501", "EGLL", "501", "5", "A1", "A", 65.0, 74.0, "E", true, true, 51.4702, -0.4877, "BAW", true).
			AddRow("egll-510", "EGLL", "510", "5", nil, nil, nil, nil, nil, false, false, nil, nil, nil, true))

	stands, err := repo.ActiveStands(context.Background(), "egll", "5")
	require.NoError(t, err)
	require.Len(t, stands, 2)

	assert.Equal(t, "501", stands[0].StandName)
	assert.Equal(t, "BAW", stands[0].AirlinePreference)
	assert.True(t, stands[0].HasPosition())
	assert.InDelta(t, 65.0, stands[0].MaxWingspan(), 1e-9)

	assert.Empty(t, stands[1].Gate)
	assert.False(t, stands[1].HasPosition())
	assert.Zero(t, stands[1].MaxWingspan())
}

func TestActiveStandsAllTerminals(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)

	mock.ExpectQuery(`FROM stands WHERE airport_id = \? AND is_active = TRUE ORDER BY`).
		WithArgs("EGLL").
		WillReturnRows(sqlmock.NewRows(standCols))

	stands, err := repo.ActiveStands(context.Background(), "EGLL", "")
	require.NoError(t, err)
	assert.Empty(t, stands)
}

func TestActiveStandsQueryError(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)
	mock.ExpectQuery(`FROM stands`).WillReturnError(errors.New("disk I/O error"))

	_, err := repo.ActiveStands(context.Background(), "EGLL", "")
	assert.ErrorContains(t, err, "failed to query stands")
}

func TestTerminalAssignmentNoRows(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)

	mock.ExpectQuery(`FROM airline_terminal_assignments WHERE airport_id = \? AND \(airline_icao = \? OR airline_iata = \?\) ORDER BY priority DESC`).
		WithArgs("EGLL", nil, "BA").
		WillReturnError(sql.ErrNoRows)

	a, err := repo.TerminalAssignment(context.Background(), "EGLL", "", "ba")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestTerminalAssignmentWithoutCodes(t *testing.T) {
	repo, _ := newMock(t, db.DriverSQLite)

	a, err := repo.TerminalAssignment(context.Background(), "EGLL", "", "")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestAirlinePatternsOrderAndLimit(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)

	mock.ExpectQuery(`FROM airline_stand_patterns WHERE airport_id = \? AND airline_icao = \? ORDER BY probability_score DESC`).
		WithArgs("EGKK", "EZY", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "airport_id", "airline_icao", "stand_name", "usage_count", "probability_score", "last_seen"}).
			AddRow("p1", "EGKK", "EZY", "101", 8, 0.8, "2024-03-10T09:00:00Z").
			AddRow("p2", "EGKK", "EZY", "102", 2, 0.2, "2024-03-09T09:00:00Z"))

	patterns, err := repo.AirlinePatterns(context.Background(), "EGKK", "EZY", 0)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "101", patterns[0].StandName)
	assert.Equal(t, 8, patterns[0].UsageCount)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), patterns[0].LastSeen)
}

func TestRecordPatternObservationInsertsAndRecomputes(t *testing.T) {
	repo, mock := newMock(t, db.DriverPostgres)
	seen := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE airline_stand_patterns SET usage_count = usage_count \+ 1, last_seen = \$1`).
		WithArgs("2024-03-10T09:00:00Z", "EGLL", "BAW", "501").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO airline_stand_patterns`).
		WithArgs(sqlmock.AnyArg(), "EGLL", "BAW", "501", "2024-03-10T09:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(usage_count\), 0\) FROM airline_stand_patterns`).
		WithArgs("EGLL", "BAW").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(4))
	mock.ExpectExec(`UPDATE airline_stand_patterns SET probability_score = CAST\(usage_count AS DOUBLE PRECISION\) / \$1`).
		WithArgs(4.0, "EGLL", "BAW").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordPatternObservation(context.Background(), "egll", "baw", "501", seen))
}

func TestRecordPatternObservationRollsBack(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE airline_stand_patterns`).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := repo.RecordPatternObservation(context.Background(), "EGLL", "BAW", "501", time.Now())
	assert.ErrorContains(t, err, "failed to update pattern")
}

func TestRecordPatternObservationValidates(t *testing.T) {
	repo, _ := newMock(t, db.DriverSQLite)
	assert.Error(t, repo.RecordPatternObservation(context.Background(), "EGLL", "", "501", time.Now()))
}

func TestArchiveResolution(t *testing.T) {
	repo, mock := newMock(t, db.DriverSQLite)
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO flight_cache`).
		WithArgs("id-1", "BA1489", "EGLL", "2024-03-10T09:00:00Z", "B32", 0.95, 1, `["opensky"]`, nil,
			"2024-03-11T09:00:00Z", "2024-03-10T09:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ArchiveResolution(context.Background(), ontology.FlightCacheRecord{
		ID:               "id-1",
		FlightIdentifier: "BA1489",
		AirportID:        "EGLL",
		ArrivalTimestamp: at,
		ResolvedStand:    "B32",
		Confidence:       0.95,
		FallbackLevel:    1,
		DataSources:      `["opensky"]`,
		ExpiresAt:        at.Add(24 * time.Hour),
		CreatedAt:        at,
	})
	require.NoError(t, err)
}
