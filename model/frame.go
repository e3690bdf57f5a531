package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFrame is returned when a reference frame name cannot be resolved.
var ErrUnknownFrame = errors.New("unknown reference frame")

// Frame names a reference frame used in satellite tracking.
type Frame string

const (
	// FrameTEME is the True Equator Mean Equinox frame SGP4 produces.
	FrameTEME Frame = "TEME"
	// FrameITRF is the Earth-fixed terrestrial frame (polar motion ignored).
	FrameITRF Frame = "ITRF"
	// FrameICRF is the inertial celestial frame, realised here as J2000 mean equator.
	FrameICRF Frame = "ICRF"
)

// AllFrames lists the supported frames in report order.
var AllFrames = []Frame{FrameITRF, FrameICRF, FrameTEME}

// ParseFrame resolves a frame name or one of its common aliases.
func ParseFrame(name string) (Frame, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TEME", "ECI":
		return FrameTEME, nil
	case "ITRF", "ITRS", "ECEF":
		return FrameITRF, nil
	case "ICRF", "GCRF", "J2000", "EME2000":
		return FrameICRF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFrame, name)
	}
}

// ParseFrames parses a list of frame names, dropping duplicates while keeping order.
func ParseFrames(names []string) ([]Frame, error) {
	out := make([]Frame, 0, len(names))
	seen := make(map[Frame]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, err := ParseFrame(n)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

func (f Frame) String() string { return string(f) }
