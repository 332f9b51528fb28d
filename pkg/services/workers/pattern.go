package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/shared"
)

// PatternRecorder stores an observed stand use.
type PatternRecorder interface {
	RecordPatternObservation(ctx context.Context, airportID, icao, standName string, seenAt time.Time) error
}

// PatternWorker turns position-confirmed resolutions into airline stand
// patterns. Resolutions from the other stages are skipped so the patterns
// are never fed their own guesses.
type PatternWorker struct {
	*BaseWorker
	patterns PatternRecorder
}

func NewPatternWorker(js nats.JetStreamContext, patterns PatternRecorder, log *zap.Logger) *PatternWorker {
	return &PatternWorker{
		BaseWorker: NewBaseWorker(
			"PatternWorker",
			js,
			shared.StreamResolutions,
			shared.ConsumerPatternLearner,
			shared.SubjectResolutionsAll,
			log,
		),
		patterns: patterns,
	}
}

func (w *PatternWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *PatternWorker) handle(ctx context.Context, msg *nats.Msg) error {
	var event shared.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Redelivery cannot fix a malformed payload.
		w.log.Warn("dropping malformed resolution event",
			zap.String(logger.FieldSubject, msg.Subject), zap.Error(err))
		return nil
	}
	return w.learn(ctx, event)
}

func (w *PatternWorker) learn(ctx context.Context, event shared.Event) error {
	if event.Type != shared.EventTypeResolved {
		return nil
	}
	if stageOf(event.Data) != ontology.StageHistoricalPosition {
		return nil
	}

	airport := stringOf(event.Data, shared.DataAirport)
	airline := stringOf(event.Data, shared.DataAirlineICAO)
	stand := stringOf(event.Data, shared.DataStand)
	if airport == "" || airline == "" || stand == "" {
		return nil
	}

	seen := event.Timestamp
	if seen.IsZero() {
		seen = time.Now().UTC()
	}

	if err := w.patterns.RecordPatternObservation(ctx, airport, airline, stand, seen); err != nil {
		return err
	}

	w.log.Info("learned stand pattern",
		zap.String(logger.FieldAirport, airport),
		zap.String("airline", airline),
		zap.String(logger.FieldStand, stand))
	return nil
}

// stageOf reads the stage number, which decodes from JSON as float64.
func stageOf(data map[string]interface{}) ontology.FallbackStage {
	switch v := data[shared.DataStage].(type) {
	case float64:
		return ontology.FallbackStage(v)
	case int:
		return ontology.FallbackStage(v)
	}
	return 0
}

func stringOf(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}
