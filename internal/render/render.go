// Package render formats diagnostic reports for people and machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/signalsfoundry/framecheck/model"
)

// Text writes a human readable report: topocentric coordinates first, then
// one line per frame, then the frame and baseline differences.
func Text(w io.Writer, r *model.Report) error {
	ew := &errWriter{w: w}
	obs := r.Observer

	ew.printf("%s (NORAD %d) at %s\n", r.Satellite.Name, r.Satellite.NoradID, r.Epoch.UTC().Format(time.RFC3339))
	ew.printf("observer %s lat %.5f lon %.5f alt %.0f m\n",
		obs.Name, obs.Location.LatitudeDeg, obs.Location.LongitudeDeg, obs.Location.AltitudeM)
	ew.printf("elements epoch %s (%.1f h before)\n",
		r.Satellite.ElementEpoch.UTC().Format(time.RFC3339), r.Epoch.Sub(r.Satellite.ElementEpoch).Hours())
	ew.printf("\n")

	ew.printf("Topocentric RA/Dec: %.4f %.4f deg (range %.3f km)\n",
		r.Topocentric.RightAscensionDeg, r.Topocentric.DeclinationDeg, r.Topocentric.DistanceKm)
	ew.printf("Az/El: %.4f %.4f deg, range rate %.4f km/s\n",
		r.Look.AzimuthDeg, r.Look.ElevationDeg, r.Look.RangeRateKmS)
	ew.printf("Sub-point: lat %.4f lon %.4f alt %.3f km\n",
		r.SubPoint.LatitudeDeg, r.SubPoint.LongitudeDeg, r.SubPoint.AltitudeM/1000)
	if ew.err != nil {
		return ew.err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\nframe\tx km\ty km\tz km\tvx km/s\tvy km/s\tvz km/s\t|r| km\t|v| km/s\t")
	for _, f := range r.Frames() {
		sv := r.States[f]
		p, v := sv.Position, sv.Velocity
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.6f\t%.9f\t%.9f\t%.9f\t%.6f\t%.9f\t\n",
			f, p.X, p.Y, p.Z, v.X, v.Y, v.Z, p.Norm(), v.Norm())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.FrameDeltas) > 0 {
		ew.printf("\nFrame differences (norm of first minus norm of second)\n")
		for _, d := range r.FrameDeltas {
			ew.printf("  %s-%s: position %.3e km, velocity %.6e km/s\n",
				d.From, d.To, d.PositionNormDeltaKm, d.VelocityNormDeltaKmS)
		}
	}

	if r.BaselineSavedAt != nil {
		ew.printf("\nBaseline saved %s\n", r.BaselineSavedAt.UTC().Format(time.RFC3339))
		for _, d := range r.BaselineDeltas {
			p, v := d.PositionDeltaKm, d.VelocityDeltaKm
			ew.printf("  %s: dr (%.6f, %.6f, %.6f) km |dr| %.6f km, dv (%.9f, %.9f, %.9f) km/s\n",
				d.Frame, p.X, p.Y, p.Z, d.MagnitudeKm, v.X, v.Y, v.Z)
		}
	}
	return ew.err
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// JSONLines writes one compact JSON document per report.
func JSONLines(w io.Writer, reports []*model.Report) error {
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// EphemerisTable writes one row per report with topocentric and look angles
// plus the position in the first frame of each report.
func EphemerisTable(w io.Writer, reports []*model.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "epoch\tra deg\tdec deg\taz deg\tel deg\trange km\tframe\tx km\ty km\tz km\t")
	for _, r := range reports {
		var (
			frame model.Frame
			pos   model.Vector
		)
		if frames := r.Frames(); len(frames) > 0 {
			frame = frames[0]
			pos = r.States[frame].Position
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.3f\t%.3f\t%.3f\t%s\t%.3f\t%.3f\t%.3f\t\n",
			r.Epoch.UTC().Format(time.RFC3339),
			r.Topocentric.RightAscensionDeg, r.Topocentric.DeclinationDeg,
			r.Look.AzimuthDeg, r.Look.ElevationDeg, r.Look.RangeKm,
			frame, pos.X, pos.Y, pos.Z)
	}
	return tw.Flush()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
