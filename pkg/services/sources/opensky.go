package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
)

const (
	OpenSkyName = "OpenSky Network"

	openSkyBaseURL = "https://opensky-network.org/api"

	// OpenSky rate limits for /states/all:
	// - Anonymous: 10 seconds between calls
	// - Authenticated: 5 seconds between calls
	openSkyAnonInterval = 10 * time.Second
	openSkyAuthInterval = 5 * time.Second

	// Track lookups start this long before the reference time.
	trackLookback = 10 * time.Minute

	// The unfiltered /states/all feed is several megabytes.
	openSkyMaxBodyBytes = 64 << 20

	// Callsign to transponder address mappings learned from live states.
	transponderCacheSize = 4096
	transponderTTL       = 6 * time.Hour
)

var icao24Pattern = regexp.MustCompile(`^[0-9a-f]{6}$`)

// OpenSky queries the free OpenSky Network REST API. Credentials are optional.
type OpenSky struct {
	client
	username string
	password string
	states   *rate.Limiter

	// transponders remembers callsign to icao24 mappings seen in live states.
	transponders *expirable.LRU[string, string]
}

// NewOpenSky creates an OpenSky adapter. Empty credentials use anonymous
// access.
func NewOpenSky(username, password string, opts ...Option) *OpenSky {
	interval := openSkyAnonInterval
	if username != "" && password != "" {
		interval = openSkyAuthInterval
	}
	c := newClient(OpenSkyName, openSkyBaseURL, opts)
	c.maxBody = openSkyMaxBodyBytes
	return &OpenSky{
		client:       c,
		username:     username,
		password:     password,
		states:       rate.NewLimiter(rate.Every(interval), 1),
		transponders: expirable.NewLRU[string, string](transponderCacheSize, nil, transponderTTL),
	}
}

func (o *OpenSky) Name() string { return OpenSkyName }

// openSkyStates mirrors the JSON shape returned by /states/all.
type openSkyStates struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

// openSkyTrack mirrors /tracks/all. Path rows are
// [time, latitude, longitude, baro_altitude, true_track, on_ground].
type openSkyTrack struct {
	ICAO24    string          `json:"icao24"`
	StartTime int64           `json:"startTime"`
	EndTime   int64           `json:"endTime"`
	Callsign  string          `json:"callsign"`
	Path      [][]interface{} `json:"path"`
}

func (o *OpenSky) header() http.Header {
	h := http.Header{}
	if o.username != "" && o.password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(o.username + ":" + o.password))
		h.Set("Authorization", "Basic "+auth)
	}
	return h
}

// liveState finds the current state vector broadcasting the callsign.
func (o *OpenSky) liveState(ctx context.Context, callsign string) []interface{} {
	if !o.states.Allow() {
		o.log.Debug("skipping state lookup, rate limit interval not elapsed",
			zap.String(logger.FieldCallsign, callsign))
		return nil
	}

	var data openSkyStates
	if !o.fetch(ctx, o.baseURL+"/states/all", o.header(), &data) {
		return nil
	}

	for _, s := range data.States {
		if len(s) < 17 {
			continue
		}
		if strings.TrimSpace(stringAt(s, 1)) == callsign {
			if icao24 := strings.ToLower(stringAt(s, 0)); icao24 != "" {
				o.transponders.Add(callsign, icao24)
			}
			return s
		}
	}
	return nil
}

// FlightInfo looks the callsign up among live state vectors.
func (o *OpenSky) FlightInfo(ctx context.Context, flight ontology.FlightInput) *ontology.FlightData {
	callsign := strings.ToUpper(strings.TrimSpace(flight.Callsign))
	if callsign == "" {
		return nil
	}

	state := o.liveState(ctx, callsign)
	if state == nil {
		return nil
	}

	return &ontology.FlightData{
		Callsign:     orDefault(strings.TrimSpace(stringAt(state, 1)), callsign),
		Registration: stringAt(state, 0),
	}
}

// HistoricalPosition returns the last on-ground sample of the aircraft's
// track, which is the one closest to where it parked.
func (o *OpenSky) HistoricalPosition(ctx context.Context, callsign, airport string, at time.Time) *ontology.PositionData {
	callsign = strings.ToUpper(strings.TrimSpace(callsign))
	if callsign == "" {
		return nil
	}

	icao24 := o.transponder(ctx, callsign)
	if icao24 == "" {
		return nil
	}

	q := url.Values{}
	q.Set("icao24", icao24)
	q.Set("time", fmt.Sprintf("%d", at.Add(-trackLookback).Unix()))

	var track openSkyTrack
	if !o.fetch(ctx, o.baseURL+"/tracks/all?"+q.Encode(), o.header(), &track) {
		return nil
	}

	var last []interface{}
	for _, p := range track.Path {
		if len(p) < 6 {
			continue
		}
		if onGround, ok := p[5].(bool); ok && onGround {
			last = p
		}
	}
	if last == nil {
		o.log.Debug("no on-ground samples in track",
			zap.String(logger.FieldCallsign, callsign),
			zap.String(logger.FieldAirport, airport))
		return nil
	}

	lat, latOK := floatAt(last, 1)
	lon, lonOK := floatAt(last, 2)
	ts, _ := floatAt(last, 0)
	if !latOK || !lonOK {
		return nil
	}

	pos := &ontology.PositionData{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Unix(int64(ts), 0).UTC(),
		OnGround:  true,
	}
	if alt, ok := floatAt(last, 3); ok {
		pos.Altitude = &alt
	}
	if heading, ok := floatAt(last, 4); ok {
		pos.Heading = &heading
	}
	return pos
}

// transponder maps a callsign to the address tracks are keyed by: a
// remembered mapping first, then the live states, then input that already is
// an address.
func (o *OpenSky) transponder(ctx context.Context, callsign string) string {
	if icao24, ok := o.transponders.Get(callsign); ok {
		return icao24
	}
	if state := o.liveState(ctx, callsign); state != nil {
		return strings.ToLower(stringAt(state, 0))
	}
	if lower := strings.ToLower(callsign); icao24Pattern.MatchString(lower) {
		return lower
	}
	return ""
}

func stringAt(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func floatAt(row []interface{}, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	f, ok := row[i].(float64)
	return f, ok
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
