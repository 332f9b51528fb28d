package services

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"stand-resolver/pkg/ontology"
	"stand-resolver/pkg/services/repository"
)

// ErrAirportNotFound is returned when an airport code matches nothing.
var ErrAirportNotFound = errors.New("airport not found")

// AirportStore is the read side of the airport reference data.
type AirportStore interface {
	SearchAirports(ctx context.Context, q repository.AirportQuery) ([]ontology.Airport, error)
	Airport(ctx context.Context, code string) (*ontology.Airport, error)
	ActiveStands(ctx context.Context, airportID, terminal string) ([]ontology.Stand, error)
}

// AirportStands is an airport together with its active stands.
type AirportStands struct {
	Airport ontology.Airport `json:"airport"`
	Stands  []ontology.Stand `json:"stands"`
	Count   int              `json:"count"`
}

type AirportService struct {
	store AirportStore
}

func NewAirportService(store AirportStore) *AirportService {
	return &AirportService{store: store}
}

// SearchAirports never returns a nil slice so an empty result encodes as [].
func (s *AirportService) SearchAirports(ctx context.Context, q repository.AirportQuery) ([]ontology.Airport, error) {
	airports, err := s.store.SearchAirports(ctx, q)
	if err != nil {
		return nil, err
	}
	if airports == nil {
		airports = []ontology.Airport{}
	}
	return airports, nil
}

// StandsAt lists the active stands of an airport given by ICAO or IATA code.
func (s *AirportService) StandsAt(ctx context.Context, code string) (*AirportStands, error) {
	code = strings.TrimSpace(code)
	airport, err := s.store.Airport(ctx, code)
	if err != nil {
		return nil, err
	}
	if airport == nil {
		return nil, errors.Wrapf(ErrAirportNotFound, "%q", code)
	}

	stands, err := s.store.ActiveStands(ctx, airport.ID, "")
	if err != nil {
		return nil, err
	}
	if stands == nil {
		stands = []ontology.Stand{}
	}
	return &AirportStands{Airport: *airport, Stands: stands, Count: len(stands)}, nil
}
