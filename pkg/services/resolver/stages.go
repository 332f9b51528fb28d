package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stand-resolver/pkg/geo"
	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/ontology"
)

const (
	// Stands further than this from the last ground position are ignored.
	maxStandDistanceM = 200.0

	patternLimit = 3

	terminalConfidence = 0.70
	sizeConfidence     = 0.50

	sourceDatabase = "database"
)

// positionConfidence grades a stand by its distance from the aircraft's
// last on-ground position.
func positionConfidence(distanceM float64) float64 {
	switch {
	case distanceM < 50:
		return 0.95
	case distanceM < 100:
		return 0.80
	case distanceM < 150:
		return 0.60
	default:
		return 0.40
	}
}

// historicalPosition matches the aircraft's last on-ground position against
// surveyed stand coordinates. Providers are asked in order and the first
// one with a stand in range wins.
func (e *Engine) historicalPosition(ctx context.Context, f *ontology.NormalizedFlight) *ontology.StandResolution {
	at := e.now()
	if f.ScheduledArrival != nil {
		at = *f.ScheduledArrival
	}

	var (
		stands []ontology.Stand
		loaded bool
	)
	for _, a := range e.sources.Adapters() {
		pos := a.HistoricalPosition(ctx, f.Callsign, f.ArrivalAirport, at)
		if pos == nil || !pos.OnGround {
			continue
		}

		if !loaded {
			var err error
			stands, err = e.repo.ActiveStands(ctx, f.ArrivalAirport, "")
			if err != nil {
				e.stageFailed(ontology.StageHistoricalPosition, err)
				return nil
			}
			loaded = true
		}

		best := nearestStand(pos, stands)
		if best == nil {
			continue
		}

		distance := *best.DistanceM
		return &ontology.StandResolution{
			Stand:       best.StandName,
			Confidence:  best.Confidence,
			DataSources: []string{a.Name()},
			Terminal:    best.Terminal,
			Metadata: &ontology.ResolutionMetadata{
				Reason:    best.Reason,
				DistanceM: &distance,
			},
		}
	}
	return nil
}

// nearestStand returns the highest-confidence stand within range of pos.
// Ties keep the stand listed first.
func nearestStand(pos *ontology.PositionData, stands []ontology.Stand) *ontology.StandCandidate {
	var best *ontology.StandCandidate
	for _, s := range stands {
		if !s.HasPosition() {
			continue
		}
		d := geo.Distance(pos.Latitude, pos.Longitude, *s.Latitude, *s.Longitude)
		if d >= maxStandDistanceM {
			continue
		}

		c := &ontology.StandCandidate{
			StandName:  s.StandName,
			Confidence: positionConfidence(d),
			Reason:     fmt.Sprintf("%.0fm from last known position", d),
			DistanceM:  &d,
			Terminal:   s.Terminal,
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// airlinePattern returns the stand the airline has historically used most.
func (e *Engine) airlinePattern(ctx context.Context, f *ontology.NormalizedFlight) *ontology.StandResolution {
	if f.AirlineICAO == "" {
		return nil
	}

	patterns, err := e.repo.AirlinePatterns(ctx, f.ArrivalAirport, f.AirlineICAO, patternLimit)
	if err != nil {
		e.stageFailed(ontology.StageAirlinePattern, err)
		return nil
	}
	if len(patterns) == 0 {
		return nil
	}

	best := patterns[0]
	usage := best.UsageCount
	lastSeen := best.LastSeen

	var alternatives []string
	for _, p := range patterns[1:] {
		alternatives = append(alternatives, p.StandName)
	}

	return &ontology.StandResolution{
		Stand:       best.StandName,
		Confidence:  best.ProbabilityScore,
		DataSources: []string{sourceDatabase},
		Metadata: &ontology.ResolutionMetadata{
			Reason:       fmt.Sprintf("used %d times by %s", usage, f.AirlineICAO),
			UsageCount:   &usage,
			LastSeen:     &lastSeen,
			Alternatives: alternatives,
		},
	}
}

// terminalAssignment picks a stand in the airline's assigned terminal,
// preferring one reserved for the airline.
func (e *Engine) terminalAssignment(ctx context.Context, f *ontology.NormalizedFlight) *ontology.StandResolution {
	if f.AirlineICAO == "" && f.AirlineIATA == "" {
		return nil
	}

	assignment, err := e.repo.TerminalAssignment(ctx, f.ArrivalAirport, f.AirlineICAO, f.AirlineIATA)
	if err != nil {
		e.stageFailed(ontology.StageTerminalAssignment, err)
		return nil
	}
	if assignment == nil {
		return nil
	}

	stands, err := e.repo.ActiveStands(ctx, f.ArrivalAirport, assignment.Terminal)
	if err != nil {
		e.stageFailed(ontology.StageTerminalAssignment, err)
		return nil
	}
	if len(stands) == 0 {
		return nil
	}

	airline := f.AirlineICAO
	if airline == "" {
		airline = assignment.AirlineICAO
	}
	selected := stands[0]
	for _, s := range stands {
		if s.AirlinePreference != "" && s.AirlinePreference == airline {
			selected = s
			break
		}
	}

	return &ontology.StandResolution{
		Stand:       selected.StandName,
		Confidence:  terminalConfidence,
		DataSources: []string{sourceDatabase},
		Terminal:    assignment.Terminal,
		Metadata: &ontology.ResolutionMetadata{
			Reason: fmt.Sprintf("%s is assigned to terminal %s", assignment.AirlineICAO, assignment.Terminal),
		},
	}
}

// aircraftSize picks the first active stand that can take the aircraft's
// wingspan. An unknown type has zero wingspan and fits any stand.
func (e *Engine) aircraftSize(ctx context.Context, f *ontology.NormalizedFlight) *ontology.StandResolution {
	var (
		wingspan float64
		sizeCode string
	)
	if f.AircraftType != "" {
		aircraft, err := e.repo.Aircraft(ctx, f.AircraftType)
		if err != nil {
			e.stageFailed(ontology.StageAircraftSize, err)
		}
		if aircraft != nil && aircraft.WingspanM != nil {
			wingspan = *aircraft.WingspanM
			sizeCode = aircraft.SizeCode
		}
	}
	if sizeCode == "" && wingspan > 0 {
		sizeCode = geo.SizeCode(wingspan)
	}

	stands, err := e.repo.ActiveStands(ctx, f.ArrivalAirport, "")
	if err != nil {
		e.stageFailed(ontology.StageAircraftSize, err)
		return nil
	}

	for _, s := range stands {
		if !geo.FitsStand(wingspan, s.MaxWingspan()) {
			continue
		}

		meta := &ontology.ResolutionMetadata{Reason: "no aircraft size restriction known"}
		if wingspan > 0 {
			w := wingspan
			meta.Reason = fmt.Sprintf("compatible with %.1fm wingspan", wingspan)
			meta.WingspanM = &w
			meta.SizeCode = sizeCode
		}
		return &ontology.StandResolution{
			Stand:       s.StandName,
			Confidence:  sizeConfidence,
			DataSources: []string{sourceDatabase},
			Terminal:    s.Terminal,
			Metadata:    meta,
		}
	}
	return nil
}

func (e *Engine) stageFailed(st ontology.FallbackStage, err error) {
	e.log.Warn("stage lookup failed",
		zap.Int(logger.FieldStage, int(st)),
		zap.String("stage_name", st.String()),
		zap.Error(err))
}
