package workers

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/shared"
)

// ReportWorker surfaces new crowdsourced reports to moderators.
type ReportWorker struct {
	*BaseWorker
}

func NewReportWorker(js nats.JetStreamContext, log *zap.Logger) *ReportWorker {
	return &ReportWorker{
		BaseWorker: NewBaseWorker(
			"ReportWorker",
			js,
			shared.StreamReports,
			shared.ConsumerReportModeration,
			shared.SubjectReportsAll,
			log,
		),
	}
}

func (w *ReportWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *ReportWorker) handle(_ context.Context, msg *nats.Msg) error {
	var event shared.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.log.Warn("dropping malformed report event",
			zap.String(logger.FieldSubject, msg.Subject),
			zap.ByteString("raw", msg.Data),
			zap.Error(err))
		return nil
	}

	w.log.Info("crowdsourced report awaiting moderation",
		zap.String("report_id", stringOf(event.Data, shared.DataReportID)),
		zap.String(logger.FieldAirport, stringOf(event.Data, shared.DataAirport)),
		zap.String(logger.FieldStand, stringOf(event.Data, shared.DataStand)),
		zap.String(logger.FieldFlight, stringOf(event.Data, shared.DataFlightNumber)))
	return nil
}
