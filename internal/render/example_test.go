package render_test

import (
	"os"
	"time"

	"github.com/signalsfoundry/framecheck/internal/render"
	"github.com/signalsfoundry/framecheck/model"
)

func exampleReport() *model.Report {
	epoch := time.Date(2024, time.August, 26, 22, 34, 20, 0, time.UTC)
	saved := time.Date(2024, time.August, 27, 8, 0, 0, 0, time.UTC)
	return &model.Report{
		Satellite: model.SatelliteRecord{
			Name:         "CZ-3C DEB",
			NoradID:      39348,
			ElementEpoch: time.Date(2024, time.August, 25, 21, 57, 7, 0, time.UTC),
		},
		Observer: model.Observer{
			Name:     "K88",
			Location: model.Geodetic{LatitudeDeg: 47.91748, LongitudeDeg: 19.89367, AltitudeM: 984},
		},
		Epoch:       epoch,
		Topocentric: model.Equatorial{RightAscensionDeg: 331.598, DeclinationDeg: 11.8474, DistanceKm: 20000.125},
		Look:        model.LookAngles{AzimuthDeg: 100.25, ElevationDeg: 35.5, RangeKm: 20000.125, RangeRateKmS: -1.25},
		SubPoint:    model.Geodetic{LatitudeDeg: 10.5, LongitudeDeg: 20.25, AltitudeM: 14000000},
		States: map[model.Frame]model.StateVector{
			model.FrameITRF: {
				Frame:    model.FrameITRF,
				Epoch:    epoch,
				Position: model.Vector{X: 1000.5, Y: -7000.25, Z: 3000},
				Velocity: model.Vector{X: 1, Y: -2, Z: 0.5},
			},
			model.FrameICRF: {
				Frame:    model.FrameICRF,
				Epoch:    epoch,
				Position: model.Vector{X: -4120.5, Y: 15230.25, Z: 6012.75},
				Velocity: model.Vector{X: -2.875, Y: -0.8125, Z: 1.125},
			},
		},
		FrameDeltas: []model.FrameDelta{
			{From: model.FrameITRF, To: model.FrameICRF, PositionNormDeltaKm: 1e-9, VelocityNormDeltaKmS: -0.9011},
		},
		BaselineSavedAt: &saved,
		BaselineDeltas: []model.BaselineDelta{{
			Frame:           model.FrameICRF,
			PositionDeltaKm: model.Vector{X: 0.5, Y: -0.25},
			VelocityDeltaKm: model.Vector{X: 0.001},
			MagnitudeKm:     0.559017,
		}},
	}
}

func ExampleText() {
	_ = render.Text(os.Stdout, exampleReport())
	// Output:
	// CZ-3C DEB (NORAD 39348) at 2024-08-26T22:34:20Z
	// observer K88 lat 47.91748 lon 19.89367 alt 984 m
	// elements epoch 2024-08-25T21:57:07Z (24.6 h before)
	//
	// Topocentric RA/Dec: 331.5980 11.8474 deg (range 20000.125 km)
	// Az/El: 100.2500 35.5000 deg, range rate -1.2500 km/s
	// Sub-point: lat 10.5000 lon 20.2500 alt 14000.000 km
	//
	//   frame          x km          y km         z km       vx km/s       vy km/s      vz km/s        |r| km     |v| km/s
	//    ITRF   1000.500000  -7000.250000  3000.000000   1.000000000  -2.000000000  0.500000000   7681.438688  2.291287847
	//    ICRF  -4120.500000  15230.250000  6012.750000  -2.875000000  -0.812500000  1.125000000  16884.673461  3.192398197
	//
	// Frame differences (norm of first minus norm of second)
	//   ITRF-ICRF: position 1.000e-09 km, velocity -9.011000e-01 km/s
	//
	// Baseline saved 2024-08-27T08:00:00Z
	//   ICRF: dr (0.500000, -0.250000, 0.000000) km |dr| 0.559017 km, dv (0.001000000, 0.000000000, 0.000000000) km/s
}

func ExampleEphemerisTable() {
	first := exampleReport()
	first.States = map[model.Frame]model.StateVector{model.FrameICRF: first.States[model.FrameICRF]}

	second := exampleReport()
	second.Epoch = second.Epoch.Add(10 * time.Minute)
	second.Topocentric.RightAscensionDeg = 333.0125
	second.Topocentric.DeclinationDeg = 12.5
	second.Look = model.LookAngles{AzimuthDeg: 101.5, ElevationDeg: 36.25, RangeKm: 19500.5}
	second.States = map[model.Frame]model.StateVector{
		model.FrameICRF: {Frame: model.FrameICRF, Position: model.Vector{X: -4300.25, Y: 14900, Z: 6100.5}},
	}

	_ = render.EphemerisTable(os.Stdout, []*model.Report{first, second})
	// Output:
	//                  epoch    ra deg  dec deg   az deg  el deg   range km  frame       x km       y km      z km
	//   2024-08-26T22:34:20Z  331.5980  11.8474  100.250  35.500  20000.125   ICRF  -4120.500  15230.250  6012.750
	//   2024-08-26T22:44:20Z  333.0125  12.5000  101.500  36.250  19500.500   ICRF  -4300.250  14900.000  6100.500
}
