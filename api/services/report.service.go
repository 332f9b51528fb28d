package services

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stand-resolver/pkg/geo"
	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/shared"
)

// ErrInvalidReport marks validation failures on submitted reports.
var ErrInvalidReport = errors.New("invalid report")

const (
	initialReportConfidence = 0.5
	approvedReportLimit     = 100
)

// ReportStore persists crowdsourced reports.
type ReportStore interface {
	CreateReport(ctx context.Context, rep *ontology.CrowdsourcedReport) error
	ReportsByStatus(ctx context.Context, airportID, status string, limit int) ([]ontology.CrowdsourcedReport, error)
}

// EventPublisher announces new reports to moderators.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event shared.Event) error
}

type ReportService struct {
	store     ReportStore
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewReportService builds the report service. publisher may be nil when
// messaging is disabled.
func NewReportService(store ReportStore, publisher EventPublisher, log *zap.Logger) *ReportService {
	return &ReportService{
		store:     store,
		publisher: publisher,
		log:       logger.OrNop(log).Named("reports"),
		now:       time.Now,
	}
}

func (s *ReportService) CreateReport(ctx context.Context, req *ontology.CreateReportRequest) (*ontology.CrowdsourcedReport, error) {
	if err := validateReport(req); err != nil {
		return nil, err
	}

	rep := &ontology.CrowdsourcedReport{
		ID:               uuid.New().String(),
		AirportID:        strings.ToUpper(strings.TrimSpace(req.AirportID)),
		StandName:        geo.NormalizeStandName(req.StandName),
		FlightIdentifier: strings.ToUpper(strings.TrimSpace(req.FlightIdentifier)),
		Timestamp:        req.Timestamp.UTC(),
		ReporterID:       req.ReporterID,
		Notes:            req.Notes,
		ConfidenceScore:  initialReportConfidence,
		ModerationStatus: ontology.ModerationPending,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.CreateReport(ctx, rep); err != nil {
		return nil, err
	}

	s.announce(ctx, rep)
	return rep, nil
}

// ApprovedReports lists moderated reports for an airport, newest first.
func (s *ReportService) ApprovedReports(ctx context.Context, airportID string) ([]ontology.CrowdsourcedReport, error) {
	return s.store.ReportsByStatus(ctx, airportID, ontology.ModerationApproved, approvedReportLimit)
}

func (s *ReportService) announce(ctx context.Context, rep *ontology.CrowdsourcedReport) {
	if s.publisher == nil {
		return
	}
	event := shared.Event{
		ID:      rep.ID,
		Type:    shared.EventTypeReportCreated,
		Subject: shared.ReportSubject(rep.AirportID),
		Data: map[string]interface{}{
			shared.DataReportID:     rep.ID,
			shared.DataAirport:      rep.AirportID,
			shared.DataStand:        rep.StandName,
			shared.DataFlightNumber: rep.FlightIdentifier,
		},
		Timestamp: rep.CreatedAt,
		Source:    shared.SourceReportService,
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.log.Warn("failed to publish report event",
			zap.String(logger.FieldSubject, event.Subject), zap.Error(err))
	}
}

func validateReport(req *ontology.CreateReportRequest) error {
	if req == nil {
		return errors.Mark(errors.New("report body required"), ErrInvalidReport)
	}
	if n := len(strings.TrimSpace(req.AirportID)); n < 3 || n > 4 {
		return errors.Mark(errors.Newf("airport_id %q must be 3 or 4 characters", req.AirportID), ErrInvalidReport)
	}
	if geo.NormalizeStandName(req.StandName) == "" {
		return errors.Mark(errors.New("stand_name is required"), ErrInvalidReport)
	}
	if req.Timestamp.IsZero() {
		return errors.Mark(errors.New("timestamp is required"), ErrInvalidReport)
	}
	return nil
}
