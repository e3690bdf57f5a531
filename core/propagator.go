package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

// ErrPropagation is returned when SGP4 cannot produce a usable state.
var ErrPropagation = errors.New("propagation failed")

// Gravity selects the geopotential constants handed to SGP4.
type Gravity = satellite.Gravity

// Supported gravity models. WGS72 matches the constants the elements are fitted with.
const (
	GravityWGS72 = satellite.GravityWGS72
	GravityWGS84 = satellite.GravityWGS84
)

// ParseGravity maps a configuration name to a gravity model. Empty means WGS72.
func ParseGravity(name string) (Gravity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "wgs72":
		return GravityWGS72, nil
	case "wgs84":
		return GravityWGS84, nil
	default:
		return "", fmt.Errorf("unsupported gravity model %q (want wgs72 or wgs84)", name)
	}
}

// Radius limits for a propagated state to be considered physical (km).
const (
	minOrbitRadiusKm = 6000.0
	maxOrbitRadiusKm = 500000.0
)

// Propagator produces TEME states for one satellite using SGP4/SDP4.
type Propagator struct {
	rec model.SatelliteRecord
	sat satellite.Satellite
}

// NewPropagator initialises SGP4 from a parsed record. The record must come
// from ParseTLE so the lines are known to be well formed.
func NewPropagator(rec model.SatelliteRecord, gravity Gravity) (*Propagator, error) {
	if rec.Line1 == "" || rec.Line2 == "" {
		return nil, fmt.Errorf("%w: record %q has no element lines", ErrInvalidTLE, rec.Name)
	}
	if gravity == "" {
		gravity = GravityWGS72
	}
	sat := satellite.TLEToSat(rec.Line1, rec.Line2, gravity)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w: sgp4 init for NORAD %d: code=%d %s", ErrPropagation, rec.NoradID, sat.Error, sat.ErrorStr)
	}
	return &Propagator{rec: rec, sat: sat}, nil
}

// Record returns the element set the propagator was built from.
func (p *Propagator) Record() model.SatelliteRecord { return p.rec }

// Propagate returns the TEME position (km) and velocity (km/s) at epoch.
// go-satellite takes whole seconds, so sub-second parts of the epoch are dropped.
func (p *Propagator) Propagate(epoch timectrl.Epoch) (model.StateVector, error) {
	t := epoch.Time.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)

	r := model.Vector{X: pos.X, Y: pos.Y, Z: pos.Z}
	v := model.Vector{X: vel.X, Y: vel.Y, Z: vel.Z}
	if !r.Finite() || !v.Finite() {
		return model.StateVector{}, fmt.Errorf("%w: NORAD %d at %s: output is NaN/Inf", ErrPropagation, p.rec.NoradID, t.Format(time.RFC3339))
	}
	if mag := r.Norm(); mag < minOrbitRadiusKm || mag > maxOrbitRadiusKm {
		return model.StateVector{}, fmt.Errorf("%w: NORAD %d at %s: unreasonable radius %.1f km", ErrPropagation, p.rec.NoradID, t.Format(time.RFC3339), mag)
	}

	return model.StateVector{
		Frame:    model.FrameTEME,
		Epoch:    t.Truncate(time.Second),
		Position: r,
		Velocity: v,
	}, nil
}
