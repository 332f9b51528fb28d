package sources

import (
	"time"

	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
)

// Credentials selects and authenticates the providers to use.
type Credentials struct {
	OpenSkyUsername     string
	OpenSkyPassword     string
	ADSBExchangeAPIKey  string
	AviationStackAPIKey string
	Timeout             time.Duration
}

// Manager holds the configured adapters in precedence order.
type Manager struct {
	adapters []Adapter
}

// NewManager builds the adapter list. OpenSky needs no key and is always
// included; commercial providers are added only when their key is set.
func NewManager(creds Credentials, log *zap.Logger) *Manager {
	log = logger.OrNop(log)
	opts := []Option{WithLogger(log), WithTimeout(creds.Timeout)}

	m := &Manager{}
	m.adapters = append(m.adapters, NewOpenSky(creds.OpenSkyUsername, creds.OpenSkyPassword, opts...))

	if creds.ADSBExchangeAPIKey != "" {
		m.adapters = append(m.adapters, NewADSBExchange(creds.ADSBExchangeAPIKey, opts...))
	}
	if creds.AviationStackAPIKey != "" {
		m.adapters = append(m.adapters, NewAviationStack(creds.AviationStackAPIKey, opts...))
	}

	names := make([]string, 0, len(m.adapters))
	for _, a := range m.adapters {
		names = append(names, a.Name())
	}
	log.Info("data sources configured", zap.Strings("sources", names))

	return m
}

// NewManagerWith builds a manager from explicit adapters, in the given order.
func NewManagerWith(adapters ...Adapter) *Manager {
	return &Manager{adapters: append([]Adapter(nil), adapters...)}
}

// Adapters returns the adapters in precedence order. The slice is a copy.
func (m *Manager) Adapters() []Adapter {
	if m == nil {
		return nil
	}
	return append([]Adapter(nil), m.adapters...)
}

// Adapter returns the adapter with the given name.
func (m *Manager) Adapter(name string) (Adapter, bool) {
	for _, a := range m.Adapters() {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}
