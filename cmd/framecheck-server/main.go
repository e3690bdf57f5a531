// Command framecheck-server serves diagnostic reports over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/internal/config"
	"github.com/signalsfoundry/framecheck/internal/logging"
	"github.com/signalsfoundry/framecheck/internal/observability"
	"github.com/signalsfoundry/framecheck/internal/rpc"
	"github.com/signalsfoundry/framecheck/kb"
)

func main() {
	configPath := flag.String("config", "", "optional config file (TOML, YAML or JSON)")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the gRPC server listens on (default from server.addr)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (default from server.metrics_addr)")
	flag.Parse()

	ctx := context.Background()
	bootLog := logging.NewFromEnv()

	if err := config.LoadDotEnv(); err != nil {
		bootLog.Error(ctx, "failed to load .env", logging.Err(err))
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.Addr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.GravityModel = cfg.Gravity
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.Addr), logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

// run serves ReportService on lis until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return err
	}

	catalog, err := cfg.LoadCatalog(func(ev kb.Event) {
		log.Debug(ctx, "catalog record added",
			logging.Int("norad_id", ev.Record.NoradID),
			logging.String("name", ev.Record.Name),
		)
	})
	if err != nil {
		return err
	}
	defaults, err := cfg.Request(catalog)
	if err != nil {
		return err
	}
	logCatalog(ctx, log, catalog, cfg.Satellite.TLEFile)

	diag := core.NewDiagnoser(core.WithLogger(log), core.WithMetricsRecorder(collector))
	svc := rpc.NewReportService(diag, catalog, defaults, log)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterReportServiceServer(server, svc)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting framecheck gRPC server", logging.String("addr", lis.Addr().String()))
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var result error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down framecheck server")
		server.GracefulStop()
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

func logCatalog(ctx context.Context, log logging.Logger, catalog *kb.Catalog, path string) {
	if path == "" {
		return
	}
	log.Info(ctx, "loaded TLE catalog",
		logging.String("path", path),
		logging.Int("records", catalog.Len()),
	)
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
