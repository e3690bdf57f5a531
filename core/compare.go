package core

import (
	"math"

	"github.com/signalsfoundry/framecheck/model"
)

// FrameDeltas compares position and velocity magnitudes for every pair of
// frames present in states, in canonical frame order.
func FrameDeltas(states map[model.Frame]model.StateVector) []model.FrameDelta {
	var present []model.Frame
	for _, f := range model.AllFrames {
		if _, ok := states[f]; ok {
			present = append(present, f)
		}
	}

	var out []model.FrameDelta
	for i := 0; i < len(present); i++ {
		for j := i + 1; j < len(present); j++ {
			a, b := states[present[i]], states[present[j]]
			out = append(out, model.FrameDelta{
				From:                 present[i],
				To:                   present[j],
				PositionNormDeltaKm:  a.Position.Norm() - b.Position.Norm(),
				VelocityNormDeltaKmS: a.Velocity.Norm() - b.Velocity.Norm(),
			})
		}
	}
	return out
}

// CompareBaseline fills report.BaselineDeltas with the component-wise
// difference (current minus prior) for every frame the two reports share.
// It returns the largest position difference in km, or 0 when nothing overlaps.
func CompareBaseline(report, prior *model.Report) float64 {
	if report == nil || prior == nil {
		return 0
	}
	report.BaselineDeltas = nil

	var worst float64
	for _, f := range report.Frames() {
		old, ok := prior.States[f]
		if !ok {
			continue
		}
		cur := report.States[f]
		dr := cur.Position.Sub(old.Position)
		report.BaselineDeltas = append(report.BaselineDeltas, model.BaselineDelta{
			Frame:           f,
			PositionDeltaKm: dr,
			VelocityDeltaKm: cur.Velocity.Sub(old.Velocity),
			MagnitudeKm:     dr.Norm(),
		})
		worst = math.Max(worst, dr.Norm())
	}
	return worst
}
