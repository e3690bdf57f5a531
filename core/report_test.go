package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

type recordingMetrics struct {
	mu      sync.Mutex
	stages  map[string]int
	failed  map[string]int
	reports int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{stages: map[string]int{}, failed: map[string]int{}}
}

func (m *recordingMetrics) ObserveStage(stage string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage]++
	if err != nil {
		m.failed[stage]++
	}
}

func (m *recordingMetrics) RecordReport(*model.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports++
}

func czRequest() Request {
	return Request{
		Name:     czName,
		Line1:    czLine1,
		Line2:    czLine2,
		Epoch:    timectrl.FromTime(obsTime),
		Observer: model.Observer{Name: "K88", Location: k88},
	}
}

func TestDiagnoseReferencePass(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDiagnoser(WithMetricsRecorder(metrics))

	r, err := d.Diagnose(context.Background(), czRequest())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	// Position reported by the station for this pass.
	if math.Abs(r.Topocentric.RightAscensionDeg-331.598) > 0.1 {
		t.Fatalf("RA = %.4f deg, want ~331.598", r.Topocentric.RightAscensionDeg)
	}
	if math.Abs(r.Topocentric.DeclinationDeg-11.847) > 0.1 {
		t.Fatalf("Dec = %.4f deg, want ~11.847", r.Topocentric.DeclinationDeg)
	}
	if r.Look.ElevationDeg <= 0 {
		t.Fatalf("elevation = %.2f, the pass was observed above the horizon", r.Look.ElevationDeg)
	}

	if got := r.Frames(); len(got) != 3 {
		t.Fatalf("frames = %v, want all three", got)
	}
	if len(r.FrameDeltas) != 3 {
		t.Fatalf("frame deltas = %d, want 3 pairs", len(r.FrameDeltas))
	}
	for _, fd := range r.FrameDeltas {
		if math.Abs(fd.PositionNormDeltaKm) > 1e-6 {
			t.Fatalf("%s/%s position norms differ by %g km", fd.From, fd.To, fd.PositionNormDeltaKm)
		}
		rotating := fd.From == model.FrameITRF || fd.To == model.FrameITRF
		if !rotating && math.Abs(fd.VelocityNormDeltaKmS) > 1e-9 {
			t.Fatalf("%s/%s velocity norms differ by %g", fd.From, fd.To, fd.VelocityNormDeltaKmS)
		}
		if rotating && fd.VelocityNormDeltaKmS == 0 {
			t.Fatalf("%s/%s velocity delta should carry Earth rotation", fd.From, fd.To)
		}
	}

	if r.Satellite.NoradID != 39348 || r.Observer.Name != "K88" {
		t.Fatalf("unexpected identity %+v %+v", r.Satellite.NoradID, r.Observer)
	}
	if !r.Epoch.Equal(obsTime) {
		t.Fatalf("epoch = %s, want %s", r.Epoch, obsTime)
	}

	for _, stage := range []string{StageParse, StagePropagate, StageFrames, StageObserver} {
		if metrics.stages[stage] != 1 || metrics.failed[stage] != 0 {
			t.Fatalf("stage %s observed %d times (%d failed)", stage, metrics.stages[stage], metrics.failed[stage])
		}
	}
	if metrics.reports != 1 {
		t.Fatalf("reports recorded = %d, want 1", metrics.reports)
	}
}

func TestDiagnoseDeterministic(t *testing.T) {
	d := NewDiagnoser()
	a, err := d.Diagnose(context.Background(), czRequest())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	b, err := d.Diagnose(context.Background(), czRequest())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if a.Topocentric != b.Topocentric || a.Look != b.Look {
		t.Fatalf("repeated runs differ: %+v vs %+v", a.Topocentric, b.Topocentric)
	}
	for f, sv := range a.States {
		if b.States[f] != sv {
			t.Fatalf("%s state differs between runs", f)
		}
	}
}

func TestDiagnoseFrameSubset(t *testing.T) {
	req := czRequest()
	req.Frames = []model.Frame{model.FrameICRF}

	r, err := NewDiagnoser().Diagnose(context.Background(), req)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if len(r.States) != 1 {
		t.Fatalf("states = %v, want ICRF only", r.Frames())
	}
	if len(r.FrameDeltas) != 0 {
		t.Fatalf("frame deltas = %+v, want none for a single frame", r.FrameDeltas)
	}
	// Topocentric values do not depend on which frames are printed.
	if math.Abs(r.Topocentric.RightAscensionDeg-331.598) > 0.1 {
		t.Fatalf("RA = %.4f", r.Topocentric.RightAscensionDeg)
	}
}

func TestDiagnoseErrors(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDiagnoser(WithMetricsRecorder(metrics))

	bad := czRequest()
	bad.Line1 = czLine1[:68] + "0"
	if _, err := d.Diagnose(context.Background(), bad); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	if metrics.failed[StageParse] != 1 {
		t.Fatalf("parse failures = %d, want 1", metrics.failed[StageParse])
	}

	site := czRequest()
	site.Observer.Location.LatitudeDeg = 123
	if _, err := d.Diagnose(context.Background(), site); !errors.Is(err, ErrInvalidSite) {
		t.Fatalf("err = %v, want ErrInvalidSite", err)
	}

	frame := czRequest()
	frame.Frames = []model.Frame{"B1950"}
	if _, err := d.Diagnose(context.Background(), frame); !errors.Is(err, model.ErrUnknownFrame) {
		t.Fatalf("err = %v, want ErrUnknownFrame", err)
	}
}

func TestEphemeris(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDiagnoser(WithMetricsRecorder(metrics))

	reports, err := d.Ephemeris(context.Background(), czRequest(), time.Hour, 10*time.Minute)
	if err != nil {
		t.Fatalf("Ephemeris: %v", err)
	}
	if len(reports) != 7 {
		t.Fatalf("points = %d, want 7", len(reports))
	}
	for i, r := range reports {
		want := obsTime.Add(time.Duration(i) * 10 * time.Minute)
		if !r.Epoch.Equal(want) {
			t.Fatalf("point %d epoch = %s, want %s", i, r.Epoch, want)
		}
	}
	if reports[0].Topocentric == reports[6].Topocentric {
		t.Fatal("satellite did not move over an hour")
	}
	if metrics.reports != 7 {
		t.Fatalf("reports recorded = %d, want 7", metrics.reports)
	}

	if _, err := d.Ephemeris(context.Background(), czRequest(), time.Hour, 0); err == nil {
		t.Fatal("expected an error for a zero step over a non-zero span")
	}
}

func TestEphemerisCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDiagnoser().Ephemeris(ctx, czRequest(), time.Hour, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEphemerisPointLimit(t *testing.T) {
	if got := EphemerisPoints(time.Hour, 10*time.Minute); got != 7 {
		t.Fatalf("EphemerisPoints = %d, want 7", got)
	}
	if got := EphemerisPoints(0, 0); got != 1 {
		t.Fatalf("EphemerisPoints(single epoch) = %d, want 1", got)
	}
	_, err := NewDiagnoser().Ephemeris(context.Background(), czRequest(), 100000*time.Hour, time.Nanosecond)
	if err == nil || !strings.Contains(err.Error(), "exceeds the limit") {
		t.Fatalf("err = %v, want point limit error", err)
	}
}

func TestCompareBaseline(t *testing.T) {
	d := NewDiagnoser()
	prior, err := d.Diagnose(context.Background(), czRequest())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	req := czRequest()
	req.Epoch = req.Epoch.Add(time.Second)
	cur, err := d.Diagnose(context.Background(), req)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	worst := CompareBaseline(cur, prior)
	if len(cur.BaselineDeltas) != 3 {
		t.Fatalf("baseline deltas = %d, want 3", len(cur.BaselineDeltas))
	}
	// One second of motion at a few km/s.
	if worst < 0.5 || worst > 12 {
		t.Fatalf("worst delta = %v km", worst)
	}

	same := CompareBaseline(prior, prior)
	if same != 0 {
		t.Fatalf("self comparison = %v, want 0", same)
	}
	if CompareBaseline(cur, nil) != 0 {
		t.Fatal("nil prior should compare as zero")
	}
}
