package model

import "time"

// LookAngles are the horizontal coordinates of a target seen from a site.
type LookAngles struct {
	AzimuthDeg   float64 `json:"azimuth_deg"` // 0 = north, clockwise
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
	RangeRateKmS float64 `json:"range_rate_km_s"`
}

// Equatorial holds right ascension and declination of a direction.
type Equatorial struct {
	RightAscensionDeg float64 `json:"ra_deg"`
	DeclinationDeg    float64 `json:"dec_deg"`
	DistanceKm        float64 `json:"distance_km"`
}

// FrameDelta compares the norms of the same physical state expressed in two frames.
// Rotations preserve length, so position deltas should be numerically zero; velocity
// deltas between rotating and inertial frames carry the Earth-rotation term.
type FrameDelta struct {
	From                 Frame   `json:"from"`
	To                   Frame   `json:"to"`
	PositionNormDeltaKm  float64 `json:"position_norm_delta_km"`
	VelocityNormDeltaKmS float64 `json:"velocity_norm_delta_km_s"`
}

// BaselineDelta is the difference between this run and a stored prior run.
type BaselineDelta struct {
	Frame           Frame   `json:"frame"`
	PositionDeltaKm Vector  `json:"position_delta_km"`
	VelocityDeltaKm Vector  `json:"velocity_delta_km_s"`
	MagnitudeKm     float64 `json:"magnitude_km"`
}

// Observer names a ground site.
type Observer struct {
	Name     string   `json:"name"`
	Location Geodetic `json:"location"`
}

// Report is the full output of one diagnostic run.
type Report struct {
	Satellite   SatelliteRecord       `json:"satellite"`
	Observer    Observer              `json:"observer"`
	Epoch       time.Time             `json:"epoch"`
	Topocentric Equatorial            `json:"topocentric"`
	Look        LookAngles            `json:"look_angles"`
	SubPoint    Geodetic              `json:"sub_point"`
	States      map[Frame]StateVector `json:"states"`
	FrameDeltas []FrameDelta          `json:"frame_deltas"`

	BaselineSavedAt *time.Time      `json:"baseline_saved_at,omitempty"`
	BaselineDeltas  []BaselineDelta `json:"baseline_deltas,omitempty"`
}

// Frames returns the frames present in the report in canonical order.
func (r *Report) Frames() []Frame {
	out := make([]Frame, 0, len(r.States))
	for _, f := range AllFrames {
		if _, ok := r.States[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
