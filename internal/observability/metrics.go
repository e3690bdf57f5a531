package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/framecheck/model"
)

// Collector bundles Prometheus metrics for the diagnostic pipeline and the RPC
// surface. It satisfies core.MetricsRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	StageDurations *prometheus.HistogramVec
	StageResults   *prometheus.CounterVec
	Reports        prometheus.Counter

	FramePositionDelta *prometheus.GaugeVec
	FrameVelocityDelta *prometheus.GaugeVec
	Topocentric        *prometheus.GaugeVec
	Elevation          prometheus.Gauge
	BaselineDelta      *prometheus.GaugeVec
}

// NewCollector registers framecheck metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framecheck_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "framecheck_rpc_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framecheck_rpc_request_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "framecheck_rpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	stageDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framecheck_stage_duration_seconds",
		Help:    "Duration of each diagnostic pipeline stage.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 0.001, 0.01, 0.1, 1},
	}, []string{"stage"}), "framecheck_stage_duration_seconds")
	if err != nil {
		return nil, err
	}
	stageResults, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framecheck_stage_results_total",
		Help: "Pipeline stage outcomes, labeled by stage and result (ok or error).",
	}, []string{"stage", "result"}), "framecheck_stage_results_total")
	if err != nil {
		return nil, err
	}
	reports, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "framecheck_reports_total",
		Help: "Number of diagnostic reports produced.",
	}), "framecheck_reports_total")
	if err != nil {
		return nil, err
	}

	posDelta, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "framecheck_frame_position_norm_delta_km",
		Help: "Difference of position magnitudes between two frames in the last report.",
	}, []string{"from", "to"}), "framecheck_frame_position_norm_delta_km")
	if err != nil {
		return nil, err
	}
	velDelta, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "framecheck_frame_velocity_norm_delta_km_s",
		Help: "Difference of velocity magnitudes between two frames in the last report.",
	}, []string{"from", "to"}), "framecheck_frame_velocity_norm_delta_km_s")
	if err != nil {
		return nil, err
	}
	topo, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "framecheck_topocentric_degrees",
		Help: "Topocentric right ascension and declination of the last report.",
	}, []string{"coordinate"}), "framecheck_topocentric_degrees")
	if err != nil {
		return nil, err
	}
	elevation, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "framecheck_elevation_degrees",
		Help: "Elevation of the satellite above the observer horizon in the last report.",
	}), "framecheck_elevation_degrees")
	if err != nil {
		return nil, err
	}
	baseline, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "framecheck_baseline_delta_km",
		Help: "Position difference against the stored baseline, per frame.",
	}, []string{"frame"}), "framecheck_baseline_delta_km")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		RPCRequests:        requests,
		RPCDurations:       durations,
		StageDurations:     stageDurations,
		StageResults:       stageResults,
		Reports:            reports,
		FramePositionDelta: posDelta,
		FrameVelocityDelta: velDelta,
		Topocentric:        topo,
		Elevation:          elevation,
		BaselineDelta:      baseline,
	}, nil
}

// Gatherer returns the gatherer backing this collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// ObserveStage records the duration and outcome of one pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	c.StageResults.WithLabelValues(stage, result).Inc()
}

// RecordReport publishes the values of a finished report.
func (c *Collector) RecordReport(r *model.Report) {
	if c == nil || r == nil {
		return
	}
	c.Reports.Inc()
	for _, fd := range r.FrameDeltas {
		c.FramePositionDelta.WithLabelValues(string(fd.From), string(fd.To)).Set(fd.PositionNormDeltaKm)
		c.FrameVelocityDelta.WithLabelValues(string(fd.From), string(fd.To)).Set(fd.VelocityNormDeltaKmS)
	}
	c.Topocentric.WithLabelValues("ra").Set(r.Topocentric.RightAscensionDeg)
	c.Topocentric.WithLabelValues("dec").Set(r.Topocentric.DeclinationDeg)
	c.Elevation.Set(r.Look.ElevationDeg)
}

// RecordBaseline publishes the per-frame baseline deltas of a report.
func (c *Collector) RecordBaseline(r *model.Report) {
	if c == nil || r == nil {
		return
	}
	for _, bd := range r.BaselineDeltas {
		c.BaselineDelta.WithLabelValues(string(bd.Frame)).Set(bd.MagnitudeKm)
	}
}

// WriteTextfile writes the current metrics in the node-exporter textfile
// format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
