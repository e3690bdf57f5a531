package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/framecheck/model"
)

// ErrInvalidSite is returned for observer locations outside the valid ranges.
var ErrInvalidSite = errors.New("invalid observer site")

// minAltitudeM is the lowest accepted site altitude (below the deepest ocean trench).
const minAltitudeM = -12000.0

// Site is a ground observer fixed to the rotating Earth.
type Site struct {
	name string
	loc  model.Geodetic
	itrf model.Vector // km
}

// NewSite validates a geodetic location and precomputes its Earth-fixed position.
// Longitudes in [180, 360) are folded into [-180, 180).
func NewSite(name string, loc model.Geodetic) (*Site, error) {
	if math.IsNaN(loc.LatitudeDeg) || math.IsNaN(loc.LongitudeDeg) || math.IsNaN(loc.AltitudeM) {
		return nil, fmt.Errorf("%w: coordinates must be numbers", ErrInvalidSite)
	}
	if math.IsInf(loc.LatitudeDeg, 0) || math.IsInf(loc.LongitudeDeg, 0) || math.IsInf(loc.AltitudeM, 0) {
		return nil, fmt.Errorf("%w: coordinates must be finite", ErrInvalidSite)
	}
	if loc.LatitudeDeg < -90 || loc.LatitudeDeg > 90 {
		return nil, fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidSite, loc.LatitudeDeg)
	}
	if loc.LongitudeDeg < -180 || loc.LongitudeDeg >= 360 {
		return nil, fmt.Errorf("%w: longitude %v outside [-180, 360)", ErrInvalidSite, loc.LongitudeDeg)
	}
	if loc.AltitudeM < minAltitudeM {
		return nil, fmt.Errorf("%w: altitude %v m below %v m", ErrInvalidSite, loc.AltitudeM, minAltitudeM)
	}
	if loc.LongitudeDeg >= 180 {
		loc.LongitudeDeg -= 360
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("site(%.4f,%.4f)", loc.LatitudeDeg, loc.LongitudeDeg)
	}
	return &Site{name: name, loc: loc, itrf: GeodeticToITRF(loc)}, nil
}

// Name returns the site label.
func (s *Site) Name() string { return s.name }

// Location returns the validated geodetic location.
func (s *Site) Location() model.Geodetic { return s.loc }

// Observer returns the site as a report value.
func (s *Site) Observer() model.Observer {
	return model.Observer{Name: s.name, Location: s.loc}
}

// State returns the site position and velocity in the requested frame.
// In ITRF the site is at rest; in inertial frames it carries Earth rotation.
func (s *Site) State(fs *FrameSet, frame model.Frame) (model.StateVector, error) {
	itrf := model.StateVector{
		Frame:    model.FrameITRF,
		Epoch:    fs.Epoch.Time,
		Position: s.itrf,
	}
	return fs.Transform(itrf, frame)
}

// LookAngles returns azimuth, elevation, range and range rate of an ITRF state.
func (s *Site) LookAngles(sat model.StateVector) (model.LookAngles, error) {
	if sat.Frame != model.FrameITRF {
		return model.LookAngles{}, fmt.Errorf("look angles need an %s state, got %s", model.FrameITRF, sat.Frame)
	}
	return lookAngles(s.loc, s.itrf, sat.Position, sat.Velocity), nil
}

// Topocentric returns the geometric right ascension and declination of the
// satellite as seen from the site, referred to the ICRF axes. Light time and
// aberration are not applied.
func (s *Site) Topocentric(fs *FrameSet, sat model.StateVector) (model.Equatorial, error) {
	satICRF, err := fs.Transform(sat, model.FrameICRF)
	if err != nil {
		return model.Equatorial{}, err
	}
	siteICRF, err := s.State(fs, model.FrameICRF)
	if err != nil {
		return model.Equatorial{}, err
	}
	return equatorial(satICRF.Position.Sub(siteICRF.Position)), nil
}

// SubPoint returns the geodetic point directly beneath a state.
func SubPoint(fs *FrameSet, sat model.StateVector) (model.Geodetic, error) {
	itrf, err := fs.Transform(sat, model.FrameITRF)
	if err != nil {
		return model.Geodetic{}, err
	}
	return ITRFToGeodetic(itrf.Position), nil
}
