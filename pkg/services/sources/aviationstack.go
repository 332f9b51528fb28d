package sources

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"stand-resolver/pkg/ontology"
)

const (
	AviationStackName = "AviationStack"

	aviationStackBaseURL = "http://api.aviationstack.com/v1"
)

// AviationStack queries scheduled flight data. It has no position tracking.
type AviationStack struct {
	client
	apiKey string
}

func NewAviationStack(apiKey string, opts ...Option) *AviationStack {
	return &AviationStack{
		client: newClient(AviationStackName, aviationStackBaseURL, opts),
		apiKey: apiKey,
	}
}

func (a *AviationStack) Name() string { return AviationStackName }

type aviationStackEndpoint struct {
	Airport   string `json:"airport"`
	Timezone  string `json:"timezone"`
	IATA      string `json:"iata"`
	ICAO      string `json:"icao"`
	Terminal  string `json:"terminal"`
	Gate      string `json:"gate"`
	Scheduled string `json:"scheduled"`
	Estimated string `json:"estimated"`
	Actual    string `json:"actual"`
}

type aviationStackResponse struct {
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Data []struct {
		FlightDate   string                `json:"flight_date"`
		FlightStatus string                `json:"flight_status"`
		Departure    aviationStackEndpoint `json:"departure"`
		Arrival      aviationStackEndpoint `json:"arrival"`
		Airline      struct {
			Name string `json:"name"`
			IATA string `json:"iata"`
			ICAO string `json:"icao"`
		} `json:"airline"`
		Flight struct {
			Number string `json:"number"`
			IATA   string `json:"iata"`
			ICAO   string `json:"icao"`
		} `json:"flight"`
		Aircraft *struct {
			Registration string `json:"registration"`
			IATA         string `json:"iata"`
			ICAO         string `json:"icao"`
			ICAO24       string `json:"icao24"`
		} `json:"aircraft"`
	} `json:"data"`
}

func (a *AviationStack) FlightInfo(ctx context.Context, flight ontology.FlightInput) *ontology.FlightData {
	if a.apiKey == "" {
		a.log.Warn("AviationStack API key not configured")
		return nil
	}

	flightNumber := strings.ToUpper(strings.TrimSpace(flight.Identifier()))
	if flightNumber == "" {
		return nil
	}

	q := url.Values{}
	q.Set("access_key", a.apiKey)
	q.Set("flight_iata", flightNumber)
	if flight.Date != nil {
		q.Set("flight_date", flight.Date.UTC().Format(time.DateOnly))
	}

	var data aviationStackResponse
	if !a.fetch(ctx, a.baseURL+"/flights?"+q.Encode(), nil, &data) {
		return nil
	}
	if len(data.Data) == 0 {
		return nil
	}

	f := data.Data[0]
	fd := &ontology.FlightData{
		Callsign:         orDefault(f.Flight.ICAO, f.Flight.IATA),
		FlightNumber:     f.Flight.IATA,
		Origin:           f.Departure.IATA,
		Destination:      f.Arrival.IATA,
		ScheduledArrival: a.parseTime(f.Arrival.Scheduled),
		ActualArrival:    a.parseTime(f.Arrival.Actual),
		Status:           f.FlightStatus,
	}
	if f.Aircraft != nil {
		fd.AircraftType = f.Aircraft.IATA
		fd.Registration = f.Aircraft.Registration
	}
	return fd
}

// HistoricalPosition is not offered by AviationStack.
func (a *AviationStack) HistoricalPosition(ctx context.Context, callsign, airport string, at time.Time) *ontology.PositionData {
	a.log.Debug("position tracking not available in AviationStack")
	return nil
}

func (a *AviationStack) parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		a.log.Debug("ignoring unparseable timestamp", zap.String("value", s), zap.Error(err))
		return nil
	}
	t = t.UTC()
	return &t
}
