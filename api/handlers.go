package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"stand-resolver/api/middleware"
	"stand-resolver/api/services"
	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/services/cache"
	"stand-resolver/pkg/services/repository"
	"stand-resolver/pkg/services/resolver"
	"stand-resolver/pkg/shared"
)

const (
	requestTimeout = 30 * time.Second
	healthTimeout  = 2 * time.Second
	maxBodyBytes   = 1 << 20
)

// Resolver answers stand queries.
type Resolver interface {
	Resolve(ctx context.Context, in ontology.FlightInput) (*ontology.StandResolution, error)
}

// DatabaseHealth reports whether the database is reachable.
type DatabaseHealth interface {
	Health(ctx context.Context) error
}

// MessagingHealth reports whether the message broker is usable.
type MessagingHealth interface {
	HealthCheck() error
}

// CacheStats exposes cache occupancy for the health endpoint.
type CacheStats interface {
	Stats() cache.Stats
}

// Options wires the handlers. NATS and Cache are optional.
type Options struct {
	Resolver   Resolver
	Airports   *services.AirportService
	Reports    *services.ReportService
	Database   DatabaseHealth
	NATS       MessagingHealth
	Cache      CacheStats
	CORSOrigin string
	Version    string
	Logger     *zap.Logger
}

type Handlers struct {
	resolver Resolver
	airports *services.AirportService
	reports  *services.ReportService
	db       DatabaseHealth
	nats     MessagingHealth
	cache    CacheStats
	origin   string
	version  string
	started  time.Time
	log      *zap.Logger
}

func NewHandlers(opts Options) *Handlers {
	return &Handlers{
		resolver: opts.Resolver,
		airports: opts.Airports,
		reports:  opts.Reports,
		db:       opts.Database,
		nats:     opts.NATS,
		cache:    opts.Cache,
		origin:   opts.CORSOrigin,
		version:  opts.Version,
		started:  time.Now(),
		log:      logger.OrNop(opts.Logger).Named("api"),
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.CORS(h.origin))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stand", h.GetStand)

		r.Get("/airports", h.ListAirports)
		r.Get("/airports/{icao}/stands", h.ListStands)

		r.Post("/crowdsource/reports", h.CreateReport)
		r.Get("/crowdsource/reports/{airportId}", h.ListReports)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusNotFound, shared.ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})
	return r
}

func (h *Handlers) GetStand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := ontology.FlightInput{
		FlightNumber: strings.TrimSpace(q.Get("flight")),
		Callsign:     strings.TrimSpace(q.Get("callsign")),
		Airport:      strings.TrimSpace(q.Get("airport")),
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			sendError(w, http.StatusBadRequest, shared.ErrCodeInvalidRequest, "date must be YYYY-MM-DD or RFC3339")
			return
		}
		in.Date = &date
	}

	res, err := h.resolver.Resolve(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidInput):
			sendErrorDetails(w, http.StatusBadRequest, shared.ErrCodeInvalidRequest,
				resolver.ErrInvalidInput.Error(), strings.Join(errors.GetAllHints(err), "; "))
		case errors.Is(err, resolver.ErrUnresolved):
			sendError(w, http.StatusNotFound, shared.ErrCodeStandUnresolved, err.Error())
		default:
			h.internalError(w, "stand resolution failed", err)
		}
		return
	}

	sendSuccess(w, http.StatusOK, res)
}

func (h *Handlers) ListAirports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	airports, err := h.airports.SearchAirports(r.Context(), repository.AirportQuery{
		ICAO:   q.Get("icao"),
		IATA:   q.Get("iata"),
		Search: q.Get("search"),
	})
	if err != nil {
		h.internalError(w, "airport search failed", err)
		return
	}

	sendSuccess(w, http.StatusOK, airports)
}

func (h *Handlers) ListStands(w http.ResponseWriter, r *http.Request) {
	result, err := h.airports.StandsAt(r.Context(), chi.URLParam(r, "icao"))
	if err != nil {
		if errors.Is(err, services.ErrAirportNotFound) {
			sendError(w, http.StatusNotFound, shared.ErrCodeNotFound, err.Error())
			return
		}
		h.internalError(w, "stand listing failed", err)
		return
	}

	sendSuccess(w, http.StatusOK, result)
}

func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateReportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, shared.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	report, err := h.reports.CreateReport(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidReport) {
			sendError(w, http.StatusBadRequest, shared.ErrCodeInvalidRequest, err.Error())
			return
		}
		h.internalError(w, "report creation failed", err)
		return
	}

	sendSuccess(w, http.StatusCreated, report)
}

func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ApprovedReports(r.Context(), chi.URLParam(r, "airportId"))
	if err != nil {
		h.internalError(w, "report listing failed", err)
		return
	}

	sendSuccess(w, http.StatusOK, reports)
}

// HealthCheck reports database and broker reachability. A missing broker
// degrades the service; an unreachable database fails it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	health := shared.HealthStatus{
		Status:    shared.HealthOK,
		Service:   shared.SourceResolver,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]string),
	}

	statusCode := http.StatusOK
	if err := h.db.Health(ctx); err != nil {
		health.Status = shared.HealthDegraded
		health.Details["database"] = "unhealthy: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	} else {
		health.Details["database"] = "healthy"
	}

	if h.nats == nil {
		health.Details["nats"] = "disabled"
	} else if err := h.nats.HealthCheck(); err != nil {
		health.Status = shared.HealthDegraded
		health.Details["nats"] = "unhealthy: " + err.Error()
	} else {
		health.Details["nats"] = "healthy"
	}

	if h.cache != nil {
		health.Cache = h.cache.Stats()
	}

	sendSuccess(w, statusCode, health)
}

func (h *Handlers) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	sendError(w, http.StatusInternalServerError, shared.ErrCodeInternal, msg)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse date %q", raw)
	}
	return t, nil
}

// Helper functions
func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: true,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, statusCode int, code, message string) {
	sendErrorDetails(w, statusCode, code, message, "")
}

func sendErrorDetails(w http.ResponseWriter, statusCode int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}
