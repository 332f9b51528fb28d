// Package sources contains the external flight data providers consulted
// during stand resolution.
//
// Adapters never return errors. Any failure (transport, non-2xx status,
// malformed payload, no match) is logged and reported as a nil result, since
// missing data is the normal case for most flights.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
)

const (
	defaultTimeout = 10 * time.Second

	// Default upper bound on a provider response body.
	maxBodyBytes = 8 << 20
)

// Adapter is a flight data provider.
type Adapter interface {
	Name() string
	FlightInfo(ctx context.Context, flight ontology.FlightInput) *ontology.FlightData
	HistoricalPosition(ctx context.Context, callsign, airport string, at time.Time) *ontology.PositionData
}

// Option configures an adapter.
type Option func(*client)

// WithBaseURL overrides the provider endpoint (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *client) { c.log = logger.OrNop(l) }
}

// client is the HTTP plumbing shared by all adapters.
type client struct {
	name    string
	baseURL string
	http    *http.Client
	log     *zap.Logger
	maxBody int64
}

func newClient(name, baseURL string, opts []Option) client {
	c := client{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zap.NewNop(),
		maxBody: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.log = c.log.With(zap.String(logger.FieldSource, name))
	return c
}

// statusError is returned by getJSON for non-2xx responses.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.code)
}

// getJSON performs a GET and decodes the JSON body into dst.
func (c *client) getJSON(ctx context.Context, url string, header http.Header, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "executing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBody))
		return &statusError{code: resp.StatusCode}
	}

	// Read one byte past the limit so truncation is reported as such rather
	// than as a generic decode failure.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if int64(len(body)) > c.maxBody {
		return errors.Newf("response exceeds %d bytes", c.maxBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrap(err, "parsing response")
	}
	return nil
}

// fetch wraps getJSON and reduces every failure to false after logging it.
func (c *client) fetch(ctx context.Context, url string, header http.Header, dst any) bool {
	err := c.getJSON(ctx, url, header, dst)
	if err == nil {
		return true
	}

	var se *statusError
	if errors.As(err, &se) {
		c.log.Warn("data source returned error status", zap.Int(logger.FieldStatus, se.code))
	} else {
		c.log.Warn("data source request failed", zap.Error(err))
	}
	return false
}
