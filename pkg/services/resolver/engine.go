// Package resolver maps a flight to the parking stand it is most likely to
// use at its arrival airport.
//
// Resolution runs a cascade of strategies in fixed order of trust: live
// position data, learned airline patterns, terminal assignments and finally
// aircraft size compatibility. The first strategy that yields a candidate
// wins; confidence never causes a later strategy to run.
package resolver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stand-resolver/pkg/flightid"
	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/services/sources"
	"stand-resolver/pkg/shared"
)

var (
	// ErrInvalidInput is returned when neither a flight number nor a callsign
	// is supplied.
	ErrInvalidInput = errors.New("flight number or callsign required")

	// ErrUnresolved is returned when no strategy produced a stand.
	ErrUnresolved = errors.New("unable to resolve stand for flight")
)

const defaultFlightCacheTTL = 24 * time.Hour

// Repository is the data the strategies read and the archive they write to.
// Single-row lookups return nil without error when nothing matches.
type Repository interface {
	ActiveStands(ctx context.Context, airportID, terminal string) ([]ontology.Stand, error)
	Airport(ctx context.Context, code string) (*ontology.Airport, error)
	TerminalAssignment(ctx context.Context, airportID, icao, iata string) (*ontology.AirlineTerminalAssignment, error)
	AirlinePatterns(ctx context.Context, airportID, icao string, limit int) ([]ontology.AirlineStandPattern, error)
	Aircraft(ctx context.Context, icaoType string) (*ontology.Aircraft, error)
	ArchiveResolution(ctx context.Context, rec ontology.FlightCacheRecord) error
}

// Cache stores resolutions between requests.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Publisher receives an event for every fresh resolution.
type Publisher interface {
	PublishEvent(ctx context.Context, event shared.Event) error
}

type Options struct {
	Repository Repository
	Sources    *sources.Manager
	// Cache is optional; without it every call runs the cascade.
	Cache Cache
	// FlightCacheTTL is how long a resolution is cached and archived for.
	FlightCacheTTL time.Duration
	// Publisher is optional.
	Publisher Publisher
	Logger    *zap.Logger
}

type stage struct {
	num ontology.FallbackStage
	run func(ctx context.Context, f *ontology.NormalizedFlight) *ontology.StandResolution
}

// Engine resolves flights to stands. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	repo      Repository
	sources   *sources.Manager
	cache     Cache
	ttl       time.Duration
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
	stages    []stage
}

func New(opts Options) *Engine {
	if opts.FlightCacheTTL <= 0 {
		opts.FlightCacheTTL = defaultFlightCacheTTL
	}

	e := &Engine{
		repo:      opts.Repository,
		sources:   opts.Sources,
		cache:     opts.Cache,
		ttl:       opts.FlightCacheTTL,
		publisher: opts.Publisher,
		log:       logger.OrNop(opts.Logger).Named("resolver"),
		now:       time.Now,
	}
	e.stages = []stage{
		{ontology.StageHistoricalPosition, e.historicalPosition},
		{ontology.StageAirlinePattern, e.airlinePattern},
		{ontology.StageTerminalAssignment, e.terminalAssignment},
		{ontology.StageAircraftSize, e.aircraftSize},
	}
	return e
}

// Resolve returns the most likely stand for a flight. Only ErrInvalidInput
// and ErrUnresolved are returned; provider, cache and archive failures are
// logged and absorbed.
func (e *Engine) Resolve(ctx context.Context, in ontology.FlightInput) (*ontology.StandResolution, error) {
	if strings.TrimSpace(in.Identifier()) == "" {
		return nil, errors.WithHint(ErrInvalidInput, "supply a flight number or callsign")
	}

	start := e.now()
	flight := e.normalize(ctx, in)
	key := CacheKey(flight)
	log := e.log.With(
		zap.String(logger.FieldFlight, flight.FlightNumber),
		zap.String(logger.FieldAirport, flight.ArrivalAirport))

	if e.cache != nil {
		var cached ontology.StandResolution
		if e.cache.Get(ctx, key, &cached) {
			log.Debug("returning cached resolution", zap.String(logger.FieldCacheKey, key))
			return &cached, nil
		}
	}

	for _, st := range e.stages {
		res := st.run(ctx, flight)
		if res == nil {
			log.Debug("stage produced no candidate", zap.Int(logger.FieldStage, int(st.num)))
			continue
		}

		res.FallbackStage = st.num
		res.FallbackStageName = st.num.String()
		res.Timestamp = e.now().UTC()

		e.store(ctx, flight, key, res)

		log.Info("stand resolved",
			zap.String(logger.FieldStand, res.Stand),
			zap.Int(logger.FieldStage, int(st.num)),
			zap.Float64(logger.FieldConfidence, res.Confidence),
			zap.Int64(logger.FieldDurationMS, e.now().Sub(start).Milliseconds()))
		return res, nil
	}

	log.Info("stand unresolved")
	return nil, errors.Wrapf(ErrUnresolved, "flight %s at %q", flight.FlightNumber, flight.ArrivalAirport)
}

// CacheKey identifies a flight's resolution in the cache. Flights without a
// known schedule share the literal "today" date component.
func CacheKey(f *ontology.NormalizedFlight) string {
	date := "today"
	if f.ScheduledArrival != nil {
		date = f.ScheduledArrival.UTC().Format("2006-01-02")
	}
	return "stand:" + f.FlightNumber + ":" + f.ArrivalAirport + ":" + date
}

// normalize parses the identifier and enriches it from the first data source
// that knows the flight.
func (e *Engine) normalize(ctx context.Context, in ontology.FlightInput) *ontology.NormalizedFlight {
	raw := clean(in.Identifier())
	parsed := flightid.Normalize(raw)

	query := ontology.FlightInput{
		FlightNumber: firstNonEmpty(clean(in.FlightNumber), parsed.FlightNumber),
		Callsign:     firstNonEmpty(clean(in.Callsign), parsed.Callsign),
		Date:         in.Date,
		Airport:      clean(in.Airport),
	}

	var data *ontology.FlightData
	for _, a := range e.sources.Adapters() {
		if data = a.FlightInfo(ctx, query); data != nil {
			e.log.Debug("flight data found", zap.String(logger.FieldSource, a.Name()))
			break
		}
	}
	if data == nil {
		data = &ontology.FlightData{}
	}

	f := &ontology.NormalizedFlight{
		Callsign:         firstNonEmpty(parsed.Callsign, data.Callsign, raw),
		FlightNumber:     firstNonEmpty(parsed.FlightNumber, data.FlightNumber, raw),
		AirlineICAO:      parsed.AirlineICAO,
		AirlineIATA:      parsed.AirlineIATA,
		DepartureAirport: data.Origin,
		AircraftType:     clean(data.AircraftType),
		ScheduledArrival: data.ScheduledArrival,
	}
	if f.AirlineICAO == "" && data.Callsign != "" {
		f.AirlineICAO = flightid.Normalize(data.Callsign).AirlineICAO
	}
	if f.ScheduledArrival == nil {
		f.ScheduledArrival = in.Date
	}

	f.ArrivalAirport = e.canonicalAirport(ctx, firstNonEmpty(query.Airport, clean(data.Destination)))

	return f
}

// canonicalAirport maps an IATA airport code onto the ICAO code stands are
// keyed by. Unknown codes are returned unchanged.
func (e *Engine) canonicalAirport(ctx context.Context, code string) string {
	if code == "" {
		return code
	}
	airport, err := e.repo.Airport(ctx, code)
	if err != nil {
		e.log.Warn("airport lookup failed", zap.String(logger.FieldAirport, code), zap.Error(err))
		return code
	}
	if airport == nil {
		return code
	}
	return airport.ID
}

// store caches, archives and announces a fresh resolution.
func (e *Engine) store(ctx context.Context, f *ontology.NormalizedFlight, key string, res *ontology.StandResolution) {
	if e.cache != nil {
		if err := e.cache.Set(ctx, key, res, e.ttl); err != nil {
			e.log.Warn("failed to cache resolution", zap.String(logger.FieldCacheKey, key), zap.Error(err))
		}
	}

	if err := e.repo.ArchiveResolution(ctx, e.archiveRecord(f, res)); err != nil {
		e.log.Error("failed to archive resolution",
			zap.String(logger.FieldFlight, f.FlightNumber), zap.Error(err))
	}

	if e.publisher == nil {
		return
	}
	event := shared.Event{
		ID:      uuid.New().String(),
		Type:    shared.EventTypeResolved,
		Subject: shared.ResolutionSubject(f.ArrivalAirport),
		Data: map[string]interface{}{
			shared.DataFlightNumber: f.FlightNumber,
			shared.DataAirlineICAO:  f.AirlineICAO,
			shared.DataAirport:      f.ArrivalAirport,
			shared.DataStand:        res.Stand,
			shared.DataStage:        int(res.FallbackStage),
			shared.DataConfidence:   res.Confidence,
		},
		Timestamp: res.Timestamp,
		Source:    shared.SourceResolver,
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		e.log.Warn("failed to publish resolution event",
			zap.String(logger.FieldSubject, event.Subject), zap.Error(err))
	}
}

func (e *Engine) archiveRecord(f *ontology.NormalizedFlight, res *ontology.StandResolution) ontology.FlightCacheRecord {
	now := e.now().UTC()
	arrival := now
	if f.ScheduledArrival != nil {
		arrival = f.ScheduledArrival.UTC()
	}

	sourcesJSON, _ := json.Marshal(res.DataSources)
	var raw string
	if res.Metadata != nil {
		b, _ := json.Marshal(res.Metadata)
		raw = string(b)
	}

	return ontology.FlightCacheRecord{
		ID:               uuid.New().String(),
		FlightIdentifier: f.FlightNumber,
		AirportID:        f.ArrivalAirport,
		ArrivalTimestamp: arrival,
		ResolvedStand:    res.Stand,
		Confidence:       res.Confidence,
		FallbackLevel:    int(res.FallbackStage),
		DataSources:      string(sourcesJSON),
		RawData:          raw,
		ExpiresAt:        now.Add(e.ttl),
		CreatedAt:        now,
	}
}

func clean(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
