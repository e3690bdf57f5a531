package core

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

func mustRecord(t *testing.T, name, l1, l2 string) model.SatelliteRecord {
	t.Helper()
	rec, err := ParseTLE(name, l1, l2)
	if err != nil {
		t.Fatalf("ParseTLE(%s): %v", name, err)
	}
	return rec
}

func TestPropagatorLowEarthOrbit(t *testing.T) {
	rec := mustRecord(t, issName, issLine1, issLine2)
	prop, err := NewPropagator(rec, "")
	if err != nil {
		t.Fatalf("NewPropagator: %v", err)
	}

	epoch := timectrl.FromTime(rec.ElementEpoch.Add(30 * time.Minute))
	sv, err := prop.Propagate(epoch)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if sv.Frame != model.FrameTEME {
		t.Fatalf("Frame = %s, want TEME", sv.Frame)
	}
	if r := sv.Position.Norm(); r < 6600 || r > 6900 {
		t.Fatalf("radius %.1f km outside LEO band", r)
	}
	if v := sv.Velocity.Norm(); v < 7.4 || v > 7.9 {
		t.Fatalf("speed %.3f km/s outside LEO band", v)
	}
	if sv.Epoch.Nanosecond() != 0 {
		t.Fatalf("Epoch %s should be truncated to whole seconds", sv.Epoch)
	}
}

func TestPropagatorDeterministic(t *testing.T) {
	rec := mustRecord(t, czName, czLine1, czLine2)
	epoch := timectrl.FromTime(time.Date(2024, time.August, 26, 22, 34, 20, 0, time.UTC))

	var first model.StateVector
	for i := 0; i < 3; i++ {
		prop, err := NewPropagator(rec, GravityWGS72)
		if err != nil {
			t.Fatalf("NewPropagator: %v", err)
		}
		sv, err := prop.Propagate(epoch)
		if err != nil {
			t.Fatalf("Propagate: %v", err)
		}
		if i == 0 {
			first = sv
			continue
		}
		if sv.Position != first.Position || sv.Velocity != first.Velocity {
			t.Fatalf("run %d differs: %+v vs %+v", i, sv, first)
		}
	}
	if r := first.Position.Norm(); r < 6600 || r > 60000 {
		t.Fatalf("radius %.1f km outside the transfer orbit", r)
	}
}

func TestNewPropagatorRequiresLines(t *testing.T) {
	_, err := NewPropagator(model.SatelliteRecord{Name: "empty"}, "")
	if !errors.Is(err, ErrInvalidTLE) {
		t.Fatalf("err = %v, want ErrInvalidTLE", err)
	}
}

func TestParseGravity(t *testing.T) {
	for in, want := range map[string]Gravity{"": GravityWGS72, "WGS72": GravityWGS72, " wgs84 ": GravityWGS84} {
		got, err := ParseGravity(in)
		if err != nil || got != want {
			t.Fatalf("ParseGravity(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseGravity("egm96"); err == nil {
		t.Fatal("expected an error for an unknown model")
	}
}
