package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/internal/logging"
	"github.com/signalsfoundry/framecheck/kb"
	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

// DefaultMaxEphemerisPoints bounds the number of reports one Ephemeris call
// may return.
const DefaultMaxEphemerisPoints = core.MaxEphemerisPoints

// ReportService serves diagnostic reports over gRPC. Request fields left
// unset fall back to the defaults the service was built with.
type ReportService struct {
	diag      *core.Diagnoser
	catalog   *kb.Catalog
	defaults  core.Request
	log       logging.Logger
	maxPoints int
}

// ServiceOption configures a ReportService.
type ServiceOption func(*ReportService)

// WithMaxEphemerisPoints overrides DefaultMaxEphemerisPoints.
func WithMaxEphemerisPoints(n int) ServiceOption {
	return func(s *ReportService) {
		if n > 0 {
			s.maxPoints = n
		}
	}
}

// NewReportService builds the service. catalog may be nil, in which case the
// "satellite" request field is rejected.
func NewReportService(diag *core.Diagnoser, catalog *kb.Catalog, defaults core.Request, log logging.Logger, opts ...ServiceOption) *ReportService {
	if diag == nil {
		diag = core.NewDiagnoser()
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &ReportService{
		diag:      diag,
		catalog:   catalog,
		defaults:  defaults,
		log:       log,
		maxPoints: DefaultMaxEphemerisPoints,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Diagnose returns the report for one epoch.
func (s *ReportService) Diagnose(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := s.request(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	report, err := s.diag.Diagnose(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "diagnose served",
		logging.Int("norad_id", report.Satellite.NoradID),
		logging.String("epoch", report.Epoch.Format(time.RFC3339)),
	)
	out, err := toStruct(report)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// Ephemeris returns reports from the request epoch over "span" at "step".
// The response carries them under "reports".
func (s *ReportService) Ephemeris(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := s.request(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	fields := in.GetFields()
	span, err := durationField(fields, "span", 0)
	if err != nil {
		return nil, ToStatusError(err)
	}
	step, err := durationField(fields, "step", time.Minute)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if span < 0 || (span > 0 && step <= 0) {
		return nil, ToStatusError(fmt.Errorf("%w: span %s step %s", ErrInvalidRequest, span, step))
	}
	if points := core.EphemerisPoints(span, step); points > int64(s.maxPoints) {
		return nil, ToStatusError(fmt.Errorf("%w: %d points requested, limit is %d", ErrInvalidRequest, points, s.maxPoints))
	}

	reports, err := s.diag.Ephemeris(ctx, req, span, step)
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "ephemeris served",
		logging.Int("points", len(reports)),
		logging.Duration("span", span),
		logging.Duration("step", step),
	)
	out, err := toStruct(map[string]any{"reports": reports})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *ReportService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// request merges the struct fields over the service defaults.
func (s *ReportService) request(in *structpb.Struct) (core.Request, error) {
	req := s.defaults
	fields := in.GetFields()

	if query, ok, err := stringField(fields, "satellite"); err != nil {
		return req, err
	} else if ok {
		if s.catalog == nil {
			return req, fmt.Errorf("%w: no catalog loaded for satellite %q", ErrInvalidRequest, query)
		}
		rec, err := s.catalog.Lookup(query)
		if err != nil {
			return req, err
		}
		req.Name, req.Line1, req.Line2 = rec.Name, rec.Line1, rec.Line2
	}
	if line1, ok, err := stringField(fields, "line1"); err != nil {
		return req, err
	} else if ok {
		line2, ok, err := stringField(fields, "line2")
		if err != nil {
			return req, err
		}
		if !ok {
			return req, fmt.Errorf("%w: line1 given without line2", ErrInvalidRequest)
		}
		req.Name, req.Line1, req.Line2 = kb.NameFor(line1), line1, line2
	}
	if name, ok, err := stringField(fields, "name"); err != nil {
		return req, err
	} else if ok {
		req.Name = name
	}

	if raw, ok, err := stringField(fields, "epoch"); err != nil {
		return req, err
	} else if ok {
		epoch, err := timectrl.ParseEpoch(raw)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		req.Epoch = epoch
	}

	moved := false
	for key, dst := range map[string]*float64{
		"latitude":  &req.Observer.Location.LatitudeDeg,
		"longitude": &req.Observer.Location.LongitudeDeg,
		"altitude":  &req.Observer.Location.AltitudeM,
	} {
		v, ok, err := numberField(fields, key)
		if err != nil {
			return req, err
		}
		if ok {
			*dst = v
			moved = true
		}
	}
	site, named, err := stringField(fields, "site")
	if err != nil {
		return req, err
	}
	switch {
	case named:
		req.Observer.Name = site
	case moved:
		req.Observer.Name = ""
	}

	if frames, ok, err := listField(fields, "frames"); err != nil {
		return req, err
	} else if ok {
		parsed, err := model.ParseFrames(frames)
		if err != nil {
			return req, err
		}
		req.Frames = parsed
	}

	if name, ok, err := stringField(fields, "gravity"); err != nil {
		return req, err
	} else if ok {
		g, err := core.ParseGravity(name)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		req.Gravity = g
	}
	return req, nil
}

func stringField(fields map[string]*structpb.Value, key string) (string, bool, error) {
	v, ok := fields[key]
	if !ok {
		return "", false, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	return sv.StringValue, true, nil
}

func numberField(fields map[string]*structpb.Value, key string) (float64, bool, error) {
	v, ok := fields[key]
	if !ok {
		return 0, false, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	return nv.NumberValue, true, nil
}

// listField accepts a list of strings or one comma separated string.
func listField(fields map[string]*structpb.Value, key string) ([]string, bool, error) {
	v, ok := fields[key]
	if !ok {
		return nil, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.Split(kind.StringValue, ","), true, nil
	case *structpb.Value_ListValue:
		out := make([]string, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			sv, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return nil, false, fmt.Errorf("%w: %s items must be strings", ErrInvalidRequest, key)
			}
			out = append(out, sv.StringValue)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s must be a list or a string", ErrInvalidRequest, key)
	}
}

func durationField(fields map[string]*structpb.Value, key string, def time.Duration) (time.Duration, error) {
	raw, ok, err := stringField(fields, key)
	if err != nil || !ok {
		return def, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, key, err)
	}
	return d, nil
}

// toStruct converts a JSON-encodable value into a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return out, nil
}
