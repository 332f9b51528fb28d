package services

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/services/repository"
	"stand-resolver/pkg/shared"
)

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) CreateReport(ctx context.Context, rep *ontology.CrowdsourcedReport) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *mockReportStore) ReportsByStatus(ctx context.Context, airportID, status string, limit int) ([]ontology.CrowdsourcedReport, error) {
	args := m.Called(ctx, airportID, status, limit)
	reports, _ := args.Get(0).([]ontology.CrowdsourcedReport)
	return reports, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, event shared.Event) error {
	return m.Called(ctx, event).Error(0)
}

type mockAirportStore struct {
	mock.Mock
}

func (m *mockAirportStore) SearchAirports(ctx context.Context, q repository.AirportQuery) ([]ontology.Airport, error) {
	args := m.Called(ctx, q)
	airports, _ := args.Get(0).([]ontology.Airport)
	return airports, args.Error(1)
}

func (m *mockAirportStore) Airport(ctx context.Context, code string) (*ontology.Airport, error) {
	args := m.Called(ctx, code)
	a, _ := args.Get(0).(*ontology.Airport)
	return a, args.Error(1)
}

func (m *mockAirportStore) ActiveStands(ctx context.Context, airportID, terminal string) ([]ontology.Stand, error) {
	args := m.Called(ctx, airportID, terminal)
	stands, _ := args.Get(0).([]ontology.Stand)
	return stands, args.Error(1)
}

var reportTime = time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC)

func validRequest() *ontology.CreateReportRequest {
	return &ontology.CreateReportRequest{
		AirportID:        "egll",
		StandName:        "Stand 0501",
		FlightIdentifier: "ba123",
		Timestamp:        reportTime,
		Notes:            "seen from the window",
	}
}

func TestCreateReportNormalizesAndPublishes(t *testing.T) {
	store := new(mockReportStore)
	pub := new(mockPublisher)
	svc := NewReportService(store, pub, zaptest.NewLogger(t))
	svc.now = func() time.Time { return reportTime.Add(time.Minute) }

	store.On("CreateReport", mock.Anything, mock.AnythingOfType("*ontology.CrowdsourcedReport")).Return(nil)
	pub.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e shared.Event) bool {
		return e.Type == shared.EventTypeReportCreated &&
			e.Subject == "stands.reports.EGLL" &&
			e.Data[shared.DataStand] == "501"
	})).Return(nil)

	rep, err := svc.CreateReport(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "EGLL", rep.AirportID)
	assert.Equal(t, "501", rep.StandName)
	assert.Equal(t, "BA123", rep.FlightIdentifier)
	assert.Equal(t, ontology.ModerationPending, rep.ModerationStatus)
	assert.InDelta(t, 0.5, rep.ConfidenceScore, 1e-9)
	assert.False(t, rep.Verified)
	assert.Equal(t, reportTime.Add(time.Minute), rep.CreatedAt)

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateReportValidation(t *testing.T) {
	cases := map[string]func(r *ontology.CreateReportRequest){
		"short airport": func(r *ontology.CreateReportRequest) { r.AirportID = "EG" },
		"long airport":  func(r *ontology.CreateReportRequest) { r.AirportID = "EGLLX" },
		"no stand":      func(r *ontology.CreateReportRequest) { r.StandName = " stand " },
		"no timestamp":  func(r *ontology.CreateReportRequest) { r.Timestamp = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := new(mockReportStore)
			svc := NewReportService(store, nil, zaptest.NewLogger(t))

			req := validRequest()
			mutate(req)
			_, err := svc.CreateReport(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidReport))
			store.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReportPublishFailureIsAbsorbed(t *testing.T) {
	store := new(mockReportStore)
	pub := new(mockPublisher)
	svc := NewReportService(store, pub, zaptest.NewLogger(t))

	store.On("CreateReport", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishEvent", mock.Anything, mock.Anything).Return(errors.New("no responders"))

	rep, err := svc.CreateReport(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "501", rep.StandName)
}

func TestCreateReportStoreError(t *testing.T) {
	store := new(mockReportStore)
	pub := new(mockPublisher)
	svc := NewReportService(store, pub, zaptest.NewLogger(t))

	store.On("CreateReport", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.CreateReport(context.Background(), validRequest())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidReport))
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestApprovedReports(t *testing.T) {
	store := new(mockReportStore)
	svc := NewReportService(store, nil, zaptest.NewLogger(t))

	store.On("ReportsByStatus", mock.Anything, "EGLL", ontology.ModerationApproved, 100).
		Return([]ontology.CrowdsourcedReport{{ID: "r1"}}, nil)

	reports, err := svc.ApprovedReports(context.Background(), "EGLL")
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestStandsAt(t *testing.T) {
	store := new(mockAirportStore)
	svc := NewAirportService(store)

	store.On("Airport", mock.Anything, "LHR").Return(&ontology.Airport{ID: "EGLL", IATA: "LHR"}, nil)
	store.On("ActiveStands", mock.Anything, "EGLL", "").Return([]ontology.Stand{{StandName: "501"}, {StandName: "502"}}, nil)

	result, err := svc.StandsAt(context.Background(), " LHR ")
	require.NoError(t, err)
	assert.Equal(t, "EGLL", result.Airport.ID)
	assert.Equal(t, 2, result.Count)
}

func TestStandsAtUnknownAirport(t *testing.T) {
	store := new(mockAirportStore)
	svc := NewAirportService(store)

	store.On("Airport", mock.Anything, "ZZZZ").Return(nil, nil)

	_, err := svc.StandsAt(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, ErrAirportNotFound))
	store.AssertNotCalled(t, "ActiveStands", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchAirportsEmptyIsNotNil(t *testing.T) {
	store := new(mockAirportStore)
	svc := NewAirportService(store)

	store.On("SearchAirports", mock.Anything, repository.AirportQuery{Search: "nowhere"}).Return(nil, nil)

	airports, err := svc.SearchAirports(context.Background(), repository.AirportQuery{Search: "nowhere"})
	require.NoError(t, err)
	assert.NotNil(t, airports)
	assert.Empty(t, airports)
}
