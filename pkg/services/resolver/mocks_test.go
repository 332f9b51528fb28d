package resolver

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/shared"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ActiveStands(ctx context.Context, airportID, terminal string) ([]ontology.Stand, error) {
	args := m.Called(ctx, airportID, terminal)
	stands, _ := args.Get(0).([]ontology.Stand)
	return stands, args.Error(1)
}

func (m *mockRepository) Airport(ctx context.Context, code string) (*ontology.Airport, error) {
	args := m.Called(ctx, code)
	a, _ := args.Get(0).(*ontology.Airport)
	return a, args.Error(1)
}

func (m *mockRepository) TerminalAssignment(ctx context.Context, airportID, icao, iata string) (*ontology.AirlineTerminalAssignment, error) {
	args := m.Called(ctx, airportID, icao, iata)
	a, _ := args.Get(0).(*ontology.AirlineTerminalAssignment)
	return a, args.Error(1)
}

func (m *mockRepository) AirlinePatterns(ctx context.Context, airportID, icao string, limit int) ([]ontology.AirlineStandPattern, error) {
	args := m.Called(ctx, airportID, icao, limit)
	p, _ := args.Get(0).([]ontology.AirlineStandPattern)
	return p, args.Error(1)
}

func (m *mockRepository) Aircraft(ctx context.Context, icaoType string) (*ontology.Aircraft, error) {
	args := m.Called(ctx, icaoType)
	a, _ := args.Get(0).(*ontology.Aircraft)
	return a, args.Error(1)
}

func (m *mockRepository) ArchiveResolution(ctx context.Context, rec ontology.FlightCacheRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mockAdapter struct {
	mock.Mock
	name string
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) FlightInfo(ctx context.Context, flight ontology.FlightInput) *ontology.FlightData {
	d, _ := m.Called(ctx, flight).Get(0).(*ontology.FlightData)
	return d
}

func (m *mockAdapter) HistoricalPosition(ctx context.Context, callsign, airport string, at time.Time) *ontology.PositionData {
	p, _ := m.Called(ctx, callsign, airport, at).Get(0).(*ontology.PositionData)
	return p
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, event shared.Event) error {
	return m.Called(ctx, event).Error(0)
}
