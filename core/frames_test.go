package core

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

var obsTime = time.Date(2024, time.August, 26, 22, 34, 20, 0, time.UTC)

func sampleTEME() model.StateVector {
	return model.StateVector{
		Frame:    model.FrameTEME,
		Epoch:    obsTime,
		Position: model.Vector{X: -4120.5, Y: 15230.25, Z: 6012.75},
		Velocity: model.Vector{X: -2.875, Y: -0.812, Z: 1.104},
	}
}

func vecClose(a, b model.Vector, tol float64) bool {
	return floats.EqualApprox([]float64{a.X, a.Y, a.Z}, []float64{b.X, b.Y, b.Z}, tol)
}

func TestFrameRoundTrips(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	teme := sampleTEME()

	for _, f := range []model.Frame{model.FrameITRF, model.FrameICRF} {
		out, err := fs.Transform(teme, f)
		if err != nil {
			t.Fatalf("TEME->%s: %v", f, err)
		}
		if out.Frame != f {
			t.Fatalf("Frame = %s, want %s", out.Frame, f)
		}
		back, err := fs.Transform(out, model.FrameTEME)
		if err != nil {
			t.Fatalf("%s->TEME: %v", f, err)
		}
		if !vecClose(back.Position, teme.Position, 1e-8) || !vecClose(back.Velocity, teme.Velocity, 1e-11) {
			t.Fatalf("round trip via %s drifted: %+v vs %+v", f, back, teme)
		}
		if d := math.Abs(out.Position.Norm() - teme.Position.Norm()); d > 1e-8 {
			t.Fatalf("TEME->%s changed the position norm by %g km", f, d)
		}
	}

	// ITRF <-> ICRF goes through TEME and must also invert cleanly.
	icrf, _ := fs.Transform(teme, model.FrameICRF)
	itrf, err := fs.Transform(icrf, model.FrameITRF)
	if err != nil {
		t.Fatalf("ICRF->ITRF: %v", err)
	}
	icrf2, _ := fs.Transform(itrf, model.FrameICRF)
	if !vecClose(icrf.Position, icrf2.Position, 1e-8) || !vecClose(icrf.Velocity, icrf2.Velocity, 1e-11) {
		t.Fatalf("ICRF->ITRF->ICRF drifted")
	}
}

func TestFrameRotationsOrthonormal(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	id := mat.NewDiagDense(3, []float64{1, 1, 1})

	for name, m := range map[string]mat.Matrix{
		"TEME->ITRF": fs.temeToITRF,
		"TEME->ICRF": fs.temeToICRF,
	} {
		var mmT mat.Dense
		mmT.Mul(m, m.T())
		if !mat.EqualApprox(&mmT, id, 1e-12) {
			t.Fatalf("%s is not orthonormal:\n%v", name, mat.Formatted(&mmT))
		}
		if det := mat.Det(m); math.Abs(det-1) > 1e-12 {
			t.Fatalf("%s determinant = %v, want 1", name, det)
		}
	}
}

func TestGMSTMatchesSGP4Library(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	want := satellite.GSTimeFromDate(2024, 8, 26, 22, 34, 20)

	diff := math.Remainder(fs.GMST-want, 2*math.Pi)
	if math.Abs(diff) > 1e-6 {
		t.Fatalf("GMST = %.9f rad, go-satellite = %.9f rad", fs.GMST, want)
	}
}

func TestNutationMagnitude(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	arcsec := math.Pi / (180 * 3600)
	if math.Abs(fs.DeltaPsi) > 20*arcsec || math.Abs(fs.DeltaEps) > 10*arcsec {
		t.Fatalf("nutation out of range: dpsi=%g deps=%g rad", fs.DeltaPsi, fs.DeltaEps)
	}
	if obl := fs.MeanObliq / arcsec / 3600; obl < 23.43 || obl > 23.44 {
		t.Fatalf("mean obliquity %.5f deg", obl)
	}
}

func TestPrecessionIdentityAtJ2000(t *testing.T) {
	p := precessionMatrix(j2000Year, j2000Year)
	if !mat.EqualApprox(p, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12) {
		t.Fatalf("precession over zero interval is not identity:\n%v", mat.Formatted(p))
	}
}

func TestITRFRestBecomesRotationInICRF(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	rest := model.StateVector{
		Frame:    model.FrameITRF,
		Epoch:    obsTime,
		Position: model.Vector{X: 6378.137},
	}
	icrf, err := fs.Transform(rest, model.FrameICRF)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := OmegaEarth * 6378.137
	if got := icrf.Velocity.Norm(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("equatorial surface speed = %v km/s, want %v", got, want)
	}
}

func TestTransformUnknownFrame(t *testing.T) {
	fs := NewFrameSet(timectrl.FromTime(obsTime))
	if _, err := fs.Transform(sampleTEME(), model.Frame("GALACTIC")); err == nil {
		t.Fatal("expected an error for an unknown target frame")
	}
}
