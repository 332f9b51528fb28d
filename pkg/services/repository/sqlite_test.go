package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stand-resolver/db"
	"stand-resolver/pkg/ontology"
)

func newSeeded(t *testing.T) *Repository {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "stands.db")

	svc, err := db.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Seed())

	return FromService(svc, zaptest.NewLogger(t))
}

func standNames(stands []ontology.Stand) []string {
	names := make([]string, 0, len(stands))
	for _, s := range stands {
		names = append(names, s.StandName)
	}
	return names
}

func TestSQLiteActiveStandsOrder(t *testing.T) {
	repo := newSeeded(t)
	ctx := context.Background()

	all, err := repo.ActiveStands(ctx, "EGLL", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"301", "501", "502", "510", "511", "512"}, standNames(all))

	t5, err := repo.ActiveStands(ctx, "EGLL", "5")
	require.NoError(t, err)
	assert.Len(t, t5, 5)
	assert.Equal(t, "BAW", t5[0].AirlinePreference)
	assert.True(t, t5[0].JetBridge)
}

func TestSQLiteAirportLookup(t *testing.T) {
	repo := newSeeded(t)
	ctx := context.Background()

	byIATA, err := repo.Airport(ctx, "lhr")
	require.NoError(t, err)
	require.NotNil(t, byIATA)
	assert.Equal(t, "EGLL", byIATA.ID)
	assert.Equal(t, "Europe/London", byIATA.Timezone)

	missing, err := repo.Airport(ctx, "KJFK")
	require.NoError(t, err)
	assert.Nil(t, missing)

	london, err := repo.SearchAirports(ctx, AirportQuery{Search: "london"})
	require.NoError(t, err)
	require.Len(t, london, 2)
	assert.Equal(t, "London Gatwick Airport", london[0].Name)

	byCode, err := repo.SearchAirports(ctx, AirportQuery{IATA: "man"})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "EGCC", byCode[0].ID)
}

func TestSQLiteTerminalAssignmentPriority(t *testing.T) {
	repo := newSeeded(t)
	ctx := context.Background()

	a, err := repo.TerminalAssignment(ctx, "EGLL", "", "BA")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "BAW", a.AirlineICAO)
	assert.Equal(t, "5", a.Terminal)

	none, err := repo.TerminalAssignment(ctx, "EGLL", "RYR", "FR")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLiteAircraft(t *testing.T) {
	repo := newSeeded(t)

	ac, err := repo.Aircraft(context.Background(), "b77w")
	require.NoError(t, err)
	require.NotNil(t, ac)
	require.NotNil(t, ac.WingspanM)
	assert.InDelta(t, 64.8, *ac.WingspanM, 1e-9)
	assert.Equal(t, "E", ac.SizeCode)

	unknown, err := repo.Aircraft(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestSQLitePatternLearning(t *testing.T) {
	repo := newSeeded(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordPatternObservation(ctx, "EGLL", "BAW", "501", base))
	require.NoError(t, repo.RecordPatternObservation(ctx, "EGLL", "BAW", "502", base.Add(time.Hour)))
	require.NoError(t, repo.RecordPatternObservation(ctx, "EGLL", "BAW", "501", base.Add(2*time.Hour)))

	patterns, err := repo.AirlinePatterns(ctx, "EGLL", "BAW", 3)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	assert.Equal(t, "501", patterns[0].StandName)
	assert.Equal(t, 2, patterns[0].UsageCount)
	assert.InDelta(t, 2.0/3.0, patterns[0].ProbabilityScore, 1e-9)
	assert.Equal(t, base.Add(2*time.Hour), patterns[0].LastSeen)

	assert.Equal(t, "502", patterns[1].StandName)
	assert.InDelta(t, 1.0/3.0, patterns[1].ProbabilityScore, 1e-9)
}

func TestSQLiteReports(t *testing.T) {
	repo := newSeeded(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, status := range []string{ontology.ModerationApproved, ontology.ModerationPending, ontology.ModerationApproved} {
		require.NoError(t, repo.CreateReport(ctx, &ontology.CrowdsourcedReport{
			ID:               []string{"r1", "r2", "r3"}[i],
			AirportID:        "EGLL",
			StandName:        "501",
			Timestamp:        at.Add(time.Duration(i) * time.Hour),
			ConfidenceScore:  0.5,
			ModerationStatus: status,
			CreatedAt:        at,
		}))
	}

	approved, err := repo.ReportsByStatus(ctx, "EGLL", ontology.ModerationApproved, 0)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, "r3", approved[0].ID)
	assert.Equal(t, "r1", approved[1].ID)
	assert.Empty(t, approved[0].Notes)

	empty, err := repo.ReportsByStatus(ctx, "EGKK", ontology.ModerationApproved, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestSQLiteArchive(t *testing.T) {
	repo := newSeeded(t)
	now := time.Now().UTC()

	require.NoError(t, repo.ArchiveResolution(context.Background(), ontology.FlightCacheRecord{
		ID:               "a1",
		FlightIdentifier: "BA1489",
		AirportID:        "EGLL",
		ArrivalTimestamp: now,
		ResolvedStand:    "501",
		Confidence:       0.7,
		FallbackLevel:    3,
		DataSources:      `["database"]`,
		RawData:          `{}`,
		ExpiresAt:        now.Add(time.Hour),
		CreatedAt:        now,
	}))

	var n int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM flight_cache WHERE resolved_stand = '501'`).Scan(&n))
	assert.Equal(t, 1, n)
}
