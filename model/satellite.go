package model

import "time"

// Classification is the security classification character of a TLE.
type Classification byte

const (
	ClassUnclassified Classification = 'U'
	ClassClassified   Classification = 'C'
	ClassSecret       Classification = 'S'
)

// SatelliteRecord is a parsed two-line element set plus its common name.
// The raw lines are kept so the record can be handed to an SGP4 implementation.
type SatelliteRecord struct {
	Name           string         `json:"name"`
	NoradID        int            `json:"norad_id"`
	Classification Classification `json:"-"`
	IntlDesignator string         `json:"intl_designator,omitempty"`
	ElementEpoch   time.Time      `json:"element_epoch"`
	Line1          string         `json:"line1"`
	Line2          string         `json:"line2"`

	InclinationDeg   float64 `json:"inclination_deg"`
	RAANDeg          float64 `json:"raan_deg"`
	Eccentricity     float64 `json:"eccentricity"`
	ArgPerigeeDeg    float64 `json:"arg_perigee_deg"`
	MeanAnomalyDeg   float64 `json:"mean_anomaly_deg"`
	MeanMotionRevDay float64 `json:"mean_motion_rev_day"`
	MeanMotionDot    float64 `json:"mean_motion_dot"`  // rev/day^2, divided by 2
	MeanMotionDDot   float64 `json:"mean_motion_ddot"` // rev/day^3, divided by 6
	BStar            float64 `json:"bstar"`            // 1/earth radii
	RevolutionNumber int     `json:"revolution_number"`
}

// PeriodMinutes returns the orbital period derived from the mean motion.
func (r SatelliteRecord) PeriodMinutes() float64 {
	if r.MeanMotionRevDay <= 0 {
		return 0
	}
	return 1440.0 / r.MeanMotionRevDay
}

// DeepSpace reports whether SGP4 selects the deep-space (SDP4) branch,
// i.e. the period is 225 minutes or longer.
func (r SatelliteRecord) DeepSpace() bool {
	return r.PeriodMinutes() >= 225
}
