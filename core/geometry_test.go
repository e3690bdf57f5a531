package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/framecheck/model"
)

func TestGeodeticToITRF_EquatorAndPole(t *testing.T) {
	eq := GeodeticToITRF(model.Geodetic{})
	if math.Abs(eq.X-wgs84A) > 1e-9 || math.Abs(eq.Y) > 1e-9 || math.Abs(eq.Z) > 1e-9 {
		t.Errorf("equator/prime meridian = %+v, want (%v, 0, 0)", eq, wgs84A)
	}

	polarRadius := wgs84A * (1 - wgs84F)
	pole := GeodeticToITRF(model.Geodetic{LatitudeDeg: 90})
	if math.Hypot(pole.X, pole.Y) > 1e-9 || math.Abs(pole.Z-polarRadius) > 1e-6 {
		t.Errorf("north pole = %+v, want z = %v", pole, polarRadius)
	}

	east := GeodeticToITRF(model.Geodetic{LongitudeDeg: 90, AltitudeM: 1000})
	if math.Abs(east.Y-(wgs84A+1)) > 1e-9 || math.Abs(east.X) > 1e-9 {
		t.Errorf("90E at 1 km = %+v", east)
	}
}

func TestITRFToGeodetic_Pole(t *testing.T) {
	g := ITRFToGeodetic(model.Vector{Z: wgs84A*(1-wgs84F) + 2})
	if math.Abs(g.LatitudeDeg-90) > 1e-9 || math.Abs(g.AltitudeM-2000) > 1e-3 {
		t.Errorf("pole geodetic = %+v, want lat 90 alt 2000 m", g)
	}
}

func TestEquatorialWrapsRightAscension(t *testing.T) {
	e := equatorial(model.Vector{X: 1, Y: -1})
	if math.Abs(e.RightAscensionDeg-315) > 1e-9 || math.Abs(e.DeclinationDeg) > 1e-12 {
		t.Errorf("equatorial = %+v, want ra 315 dec 0", e)
	}
	if math.Abs(e.DistanceKm-math.Sqrt2) > 1e-12 {
		t.Errorf("distance = %v, want sqrt(2)", e.DistanceKm)
	}

	up := equatorial(model.Vector{Z: 3})
	if math.Abs(up.DeclinationDeg-90) > 1e-12 {
		t.Errorf("declination of +z = %v, want 90", up.DeclinationDeg)
	}

	if zero := equatorial(model.Vector{}); zero != (model.Equatorial{}) {
		t.Errorf("zero vector = %+v, want zero value", zero)
	}
}

func TestLookAnglesCoincidentTarget(t *testing.T) {
	site := model.Geodetic{LatitudeDeg: 10, LongitudeDeg: 20}
	r := GeodeticToITRF(site)
	la := lookAngles(site, r, r, model.Vector{})
	if la.ElevationDeg != 90 || la.RangeKm != 0 {
		t.Errorf("coincident target = %+v, want elevation 90 range 0", la)
	}
}
