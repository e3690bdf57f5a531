package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/framecheck/internal/logging"
	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

const tracerName = "github.com/signalsfoundry/framecheck/core"

// Pipeline stage names, used for spans and metrics labels.
const (
	StageParse     = "parse"
	StagePropagate = "propagate"
	StageFrames    = "frames"
	StageObserver  = "observer"
)

// MaxEphemerisPoints bounds the number of epochs one Ephemeris call visits.
const MaxEphemerisPoints = 10000

// EphemerisPoints returns how many epochs a sweep over span at step visits,
// start and end inclusive.
func EphemerisPoints(span, step time.Duration) int64 {
	if span <= 0 || step <= 0 {
		return 1
	}
	return int64(span/step) + 1
}

// Request describes one diagnostic run.
type Request struct {
	Name     string
	Line1    string
	Line2    string
	Epoch    timectrl.Epoch
	Observer model.Observer
	Frames   []model.Frame // empty means all frames
	Gravity  Gravity       // empty means WGS72
}

// MetricsRecorder receives pipeline measurements. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordReport(r *model.Report)
}

type noopRecorder struct{}

func (noopRecorder) ObserveStage(string, time.Duration, error) {}
func (noopRecorder) RecordReport(*model.Report)                {}

// Diagnoser runs the parse, propagate, transform and observe pipeline.
type Diagnoser struct {
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// Option configures a Diagnoser.
type Option func(*Diagnoser)

// WithLogger sets the logger used for pipeline events.
func WithLogger(l logging.Logger) Option {
	return func(d *Diagnoser) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetricsRecorder sets the sink for stage timings and report values.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(d *Diagnoser) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDiagnoser builds a Diagnoser. Without options it logs nothing and
// records no metrics; spans go to the global tracer provider.
func NewDiagnoser(opts ...Option) *Diagnoser {
	d := &Diagnoser{
		log:     logging.Noop(),
		metrics: noopRecorder{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diagnose computes the report for a single epoch. The same request always
// yields the same report.
func (d *Diagnoser) Diagnose(ctx context.Context, req Request) (*model.Report, error) {
	ctx, span := d.tracer.Start(ctx, "framecheck/diagnose", trace.WithAttributes(
		attribute.String("satellite.name", req.Name),
		attribute.String("epoch", req.Epoch.String()),
	))
	defer span.End()

	var (
		rec  model.SatelliteRecord
		prop *Propagator
		site *Site
	)
	err := d.stage(ctx, StageParse, func(context.Context) error {
		var err error
		if rec, err = ParseTLE(req.Name, req.Line1, req.Line2); err != nil {
			return err
		}
		if site, err = NewSite(req.Observer.Name, req.Observer.Location); err != nil {
			return err
		}
		prop, err = NewPropagator(rec, req.Gravity)
		return err
	})
	if err != nil {
		return nil, d.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.Int("satellite.norad_id", rec.NoradID))

	report, err := d.run(ctx, prop, site, req.Epoch, req.Frames)
	if err != nil {
		return nil, d.fail(ctx, span, err)
	}
	return report, nil
}

// Ephemeris runs the pipeline from req.Epoch for span at the given step,
// start and end inclusive.
func (d *Diagnoser) Ephemeris(ctx context.Context, req Request, span, step time.Duration) ([]*model.Report, error) {
	if span < 0 {
		return nil, fmt.Errorf("ephemeris span must not be negative, got %s", span)
	}
	if step <= 0 && span > 0 {
		return nil, fmt.Errorf("ephemeris step must be positive, got %s", step)
	}
	if n := EphemerisPoints(span, step); n > MaxEphemerisPoints {
		return nil, fmt.Errorf("ephemeris of %d points exceeds the limit of %d", n, MaxEphemerisPoints)
	}

	rec, err := ParseTLE(req.Name, req.Line1, req.Line2)
	if err != nil {
		return nil, err
	}
	site, err := NewSite(req.Observer.Name, req.Observer.Location)
	if err != nil {
		return nil, err
	}
	prop, err := NewPropagator(rec, req.Gravity)
	if err != nil {
		return nil, err
	}

	ctx, sp := d.tracer.Start(ctx, "framecheck/ephemeris", trace.WithAttributes(
		attribute.Int("satellite.norad_id", rec.NoradID),
		attribute.String("span", span.String()),
		attribute.String("step", step.String()),
	))
	defer sp.End()

	tc := timectrl.NewTimeController(req.Epoch.Time, step, timectrl.Accelerated)
	var reports []*model.Report
	tc.AddListener(func(epoch timectrl.Epoch) error {
		r, err := d.run(ctx, prop, site, epoch, req.Frames)
		if err != nil {
			return err
		}
		reports = append(reports, r)
		return nil
	})
	if err := tc.Run(ctx, span); err != nil {
		return nil, d.fail(ctx, sp, err)
	}
	d.log.Debug(ctx, "ephemeris complete",
		logging.Int("norad_id", rec.NoradID),
		logging.Int("points", len(reports)),
		logging.String("last_epoch", tc.Now().String()),
		logging.String("mode", tc.Mode.String()),
	)
	return reports, nil
}

func (d *Diagnoser) run(ctx context.Context, prop *Propagator, site *Site, epoch timectrl.Epoch, frames []model.Frame) (*model.Report, error) {
	if len(frames) == 0 {
		frames = model.AllFrames
	}
	// SGP4 runs on whole seconds; keep the frame rotations on the same instant.
	epoch = timectrl.FromTime(epoch.Time.Truncate(time.Second))

	var teme model.StateVector
	err := d.stage(ctx, StagePropagate, func(context.Context) error {
		var err error
		teme, err = prop.Propagate(epoch)
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		fs     *FrameSet
		states = make(map[model.Frame]model.StateVector, len(model.AllFrames))
	)
	err = d.stage(ctx, StageFrames, func(context.Context) error {
		fs = NewFrameSet(epoch)
		for _, f := range model.AllFrames {
			sv, err := fs.Transform(teme, f)
			if err != nil {
				return err
			}
			states[f] = sv
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Satellite: prop.Record(),
		Observer:  site.Observer(),
		Epoch:     teme.Epoch,
		States:    make(map[model.Frame]model.StateVector, len(frames)),
	}
	for _, f := range frames {
		sv, ok := states[f]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownFrame, f)
		}
		report.States[f] = sv
	}

	err = d.stage(ctx, StageObserver, func(context.Context) error {
		var err error
		if report.Topocentric, err = site.Topocentric(fs, states[model.FrameTEME]); err != nil {
			return err
		}
		if report.Look, err = site.LookAngles(states[model.FrameITRF]); err != nil {
			return err
		}
		report.SubPoint = ITRFToGeodetic(states[model.FrameITRF].Position)
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.FrameDeltas = FrameDeltas(report.States)
	d.metrics.RecordReport(report)

	d.log.Debug(ctx, "diagnostic computed",
		logging.Int("norad_id", report.Satellite.NoradID),
		logging.String("epoch", report.Epoch.Format(time.RFC3339)),
		logging.Float("ra_deg", report.Topocentric.RightAscensionDeg),
		logging.Float("dec_deg", report.Topocentric.DeclinationDeg),
		logging.Float("elevation_deg", report.Look.ElevationDeg),
	)
	return report, nil
}

func (d *Diagnoser) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := d.tracer.Start(ctx, "framecheck/"+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d.metrics.ObserveStage(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (d *Diagnoser) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.log.Warn(ctx, "diagnostic failed", logging.Err(err))
	return err
}
