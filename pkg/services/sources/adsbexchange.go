package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stand-resolver/pkg/ontology"
)

const (
	ADSBExchangeName = "ADS-B Exchange"

	adsbExchangeBaseURL = "https://adsbexchange-com1.p.rapidapi.com/v2"
	adsbExchangeHost    = "adsbexchange-com1.p.rapidapi.com"
)

// ADSBExchange queries the ADS-B Exchange API through RapidAPI.
type ADSBExchange struct {
	client
	apiKey string
}

func NewADSBExchange(apiKey string, opts ...Option) *ADSBExchange {
	return &ADSBExchange{
		client: newClient(ADSBExchangeName, adsbExchangeBaseURL, opts),
		apiKey: apiKey,
	}
}

func (a *ADSBExchange) Name() string { return ADSBExchangeName }

// adsbResponse mirrors the readsb-style aircraft list.
type adsbResponse struct {
	AC []struct {
		Flight   string   `json:"flight"`
		Reg      string   `json:"r"`
		Type     string   `json:"t"`
		Lat      *float64 `json:"lat"`
		Lon      *float64 `json:"lon"`
		AltBaro  any      `json:"alt_baro"` // number, or "ground"
		GS       *float64 `json:"gs"`
		Track    *float64 `json:"track"`
		Category string   `json:"category"`
		Seen     *float64 `json:"seen"`
	} `json:"ac"`
	Total int   `json:"total"`
	CTime int64 `json:"ctime"`
	PTime int64 `json:"ptime"`
}

func (a *ADSBExchange) FlightInfo(ctx context.Context, flight ontology.FlightInput) *ontology.FlightData {
	if a.apiKey == "" {
		a.log.Warn("ADS-B Exchange API key not configured")
		return nil
	}

	callsign := strings.ToUpper(strings.TrimSpace(flight.Callsign))
	if callsign == "" {
		return nil
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", a.apiKey)
	header.Set("X-RapidAPI-Host", adsbExchangeHost)

	var data adsbResponse
	if !a.fetch(ctx, a.baseURL+"/callsign/"+url.PathEscape(callsign)+"/", header, &data) {
		return nil
	}
	if len(data.AC) == 0 {
		return nil
	}

	ac := data.AC[0]
	return &ontology.FlightData{
		Callsign:     orDefault(strings.TrimSpace(ac.Flight), callsign),
		AircraftType: ac.Type,
		Registration: ac.Reg,
	}
}

// HistoricalPosition is not available on the free tier.
func (a *ADSBExchange) HistoricalPosition(ctx context.Context, callsign, airport string, at time.Time) *ontology.PositionData {
	a.log.Debug("historical position lookup not available in free tier")
	return nil
}
