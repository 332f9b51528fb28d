package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"

	"stand-resolver/pkg/ontology"
)

// MaxAirportResults bounds SearchAirports.
const MaxAirportResults = 50

const standColumns = `id, airport_id, stand_name, terminal, gate, pier, max_wingspan_m, max_length_m,
		aircraft_size_code, jet_bridge, contact_stand, latitude, longitude, airline_preference, is_active`

const airportColumns = `id, iata, name, city, country, latitude, longitude, elevation, timezone, created_at, updated_at`

// ActiveStands lists the active stands at an airport ordered by terminal then
// stand name. An empty terminal means every terminal.
func (r *Repository) ActiveStands(ctx context.Context, airportID, terminal string) ([]ontology.Stand, error) {
	query := `SELECT ` + standColumns + ` FROM stands WHERE airport_id = ? AND is_active = TRUE`
	args := []any{upper(airportID)}
	if terminal != "" {
		query += ` AND terminal = ?`
		args = append(args, terminal)
	}
	query += ` ORDER BY COALESCE(terminal, ''), stand_name`

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stands")
	}
	defer rows.Close()

	var stands []ontology.Stand
	for rows.Next() {
		stand, err := scanStand(rows)
		if err != nil {
			return nil, err
		}
		stands = append(stands, *stand)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate stands")
	}
	return stands, nil
}

func scanStand(row scanner) (*ontology.Stand, error) {
	var (
		s                                    ontology.Stand
		terminal, gate, pier, sizeCode, pref sql.NullString
		maxWingspan, maxLength, lat, lon     sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.AirportID, &s.StandName, &terminal, &gate, &pier,
		&maxWingspan, &maxLength, &sizeCode, &s.JetBridge, &s.ContactStand,
		&lat, &lon, &pref, &s.IsActive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan stand")
	}

	s.Terminal = terminal.String
	s.Gate = gate.String
	s.Pier = pier.String
	s.AircraftSizeCode = sizeCode.String
	s.AirlinePreference = pref.String
	s.MaxWingspanM = floatPtr(maxWingspan)
	s.MaxLengthM = floatPtr(maxLength)
	s.Latitude = floatPtr(lat)
	s.Longitude = floatPtr(lon)
	return &s, nil
}

// Airport looks an airport up by ICAO or IATA code.
func (r *Repository) Airport(ctx context.Context, code string) (*ontology.Airport, error) {
	code = upper(code)
	if code == "" {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx,
		r.q(`SELECT `+airportColumns+` FROM airports WHERE id = ? OR iata = ? ORDER BY id LIMIT 1`),
		code, code)
	airport, err := scanAirport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return airport, nil
}

// AirportQuery filters SearchAirports. Fields are combined with AND; Search
// matches a substring of the name or city.
type AirportQuery struct {
	ICAO   string
	IATA   string
	Search string
}

// SearchAirports returns up to MaxAirportResults airports ordered by name.
func (r *Repository) SearchAirports(ctx context.Context, f AirportQuery) ([]ontology.Airport, error) {
	var (
		where []string
		args  []any
	)
	if f.ICAO != "" {
		where = append(where, "id = ?")
		args = append(args, upper(f.ICAO))
	}
	if f.IATA != "" {
		where = append(where, "iata = ?")
		args = append(args, upper(f.IATA))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(city) LIKE ?)")
		pattern := "%" + strings.ToLower(s) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + airportColumns + ` FROM airports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, MaxAirportResults)

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query airports")
	}
	defer rows.Close()

	var airports []ontology.Airport
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, err
		}
		airports = append(airports, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate airports")
	}
	return airports, nil
}

func scanAirport(row scanner) (*ontology.Airport, error) {
	var (
		a                    ontology.Airport
		iata, city, tz       sql.NullString
		elevation            sql.NullFloat64
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &iata, &a.Name, &city, &a.Country, &a.Latitude, &a.Longitude,
		&elevation, &tz, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan airport")
	}

	a.IATA = iata.String
	a.City = city.String
	a.Timezone = tz.String
	a.Elevation = floatPtr(elevation)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// TerminalAssignment returns the highest-priority terminal assignment for an
// airline matched by ICAO or IATA code.
func (r *Repository) TerminalAssignment(ctx context.Context, airportID, icao, iata string) (*ontology.AirlineTerminalAssignment, error) {
	icao, iata = upper(icao), upper(iata)
	if icao == "" && iata == "" {
		return nil, nil
	}

	var (
		a           ontology.AirlineTerminalAssignment
		aIata, pier sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT id, airport_id, airline_icao, airline_iata, terminal, pier, priority
		FROM airline_terminal_assignments
		WHERE airport_id = ? AND (airline_icao = ? OR airline_iata = ?)
		ORDER BY priority DESC, id
		LIMIT 1`),
		upper(airportID), nullString(icao), nullString(iata),
	).Scan(&a.ID, &a.AirportID, &a.AirlineICAO, &aIata, &a.Terminal, &pier, &a.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query terminal assignment")
	}

	a.AirlineIATA = aIata.String
	a.Pier = pier.String
	return &a, nil
}

// Aircraft looks up an aircraft type by ICAO designator.
func (r *Repository) Aircraft(ctx context.Context, icaoType string) (*ontology.Aircraft, error) {
	icaoType = upper(icaoType)
	if icaoType == "" {
		return nil, nil
	}

	var (
		a                                   ontology.Aircraft
		iataType, manufacturer, model, code sql.NullString
		wingspan, length                    sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT icao_type, iata_type, manufacturer, model, wingspan_m, length_m, size_code
		FROM aircraft WHERE icao_type = ?`), icaoType,
	).Scan(&a.ICAOType, &iataType, &manufacturer, &model, &wingspan, &length, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query aircraft")
	}

	a.IATAType = iataType.String
	a.Manufacturer = manufacturer.String
	a.Model = model.String
	a.SizeCode = code.String
	a.WingspanM = floatPtr(wingspan)
	a.LengthM = floatPtr(length)
	return &a, nil
}
