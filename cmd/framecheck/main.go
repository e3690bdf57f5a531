// Command framecheck propagates a TLE to an epoch and prints the satellite
// state in the ITRF, ICRF and TEME frames together with the topocentric view
// from a ground site.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/internal/baseline"
	"github.com/signalsfoundry/framecheck/internal/config"
	"github.com/signalsfoundry/framecheck/internal/logging"
	"github.com/signalsfoundry/framecheck/internal/observability"
	"github.com/signalsfoundry/framecheck/internal/render"
	"github.com/signalsfoundry/framecheck/kb"
	"github.com/signalsfoundry/framecheck/model"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"name":          "satellite.name",
	"line1":         "satellite.line1",
	"line2":         "satellite.line2",
	"tle-file":      "satellite.tle_file",
	"satellite":     "satellite.query",
	"epoch":         "epoch",
	"site":          "observer.name",
	"lat":           "observer.latitude",
	"lon":           "observer.longitude",
	"alt":           "observer.altitude",
	"frames":        "frames",
	"gravity":       "gravity",
	"format":        "format",
	"baseline":      "baseline.dsn",
	"save-baseline": "baseline.save",
	"metrics-file":  "metrics_file",
	"span":          "ephemeris.span",
	"step":          "ephemeris.step",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("framecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional config file (TOML, YAML or JSON)")
	fs.String("name", "", "satellite name used with -line1/-line2")
	fs.String("line1", "", "TLE line 1")
	fs.String("line2", "", "TLE line 2")
	fs.String("tle-file", "", "TLE catalog file (2LE or 3LE)")
	fs.String("satellite", "", "NORAD number or name to select from -tle-file")
	fs.String("epoch", "", "epoch, RFC 3339 or 2006-01-02T15:04:05 (UTC) (default "+config.DefaultEpoch+")")
	fs.String("site", "", "observer site name (default "+config.DefaultSite+")")
	fs.Float64("lat", config.DefaultLatitude, "observer geodetic latitude in degrees")
	fs.Float64("lon", config.DefaultLongitude, "observer longitude in degrees east")
	fs.Float64("alt", config.DefaultAltitude, "observer altitude in metres above the WGS-84 ellipsoid")
	fs.String("frames", config.DefaultFrames, "comma separated frames to report")
	fs.String("gravity", "wgs72", "SGP4 gravity model: wgs72 or wgs84")
	fs.String("format", "text", "output format: text or json")
	fs.String("baseline", "", "baseline store: JSON file, sqlite:// path or postgres:// URL")
	fs.Bool("save-baseline", false, "store this run as the new baseline")
	fs.String("metrics-file", "", "write Prometheus metrics to this textfile")
	fs.Duration("span", 0, "ephemeris span; zero reports a single epoch")
	fs.Duration("step", 0, "ephemeris step (default 1m)")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "framecheck: unexpected arguments %v\n", fs.Args())
		return exitUsage
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "framecheck: %v\n", err)
		return exitUsage
	}
	cfg, err := loadConfig(fs, *configPath)
	if err != nil {
		fmt.Fprintf(stderr, "framecheck: %v\n", err)
		return exitUsage
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})
	ctx, log = logging.WithRunLogger(ctx, log)
	ctx = logging.ContextWithLogger(ctx, log)

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Writer = stderr
	tracingCfg.RunID = logging.RunIDFromContext(ctx)
	tracingCfg.GravityModel = cfg.Gravity
	shutdown, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return exitFailure
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := diagnose(ctx, cfg, log, stdout); err != nil {
		log.Error(ctx, "framecheck failed", logging.Err(err))
		return exitFailure
	}
	return exitOK
}

// loadConfig layers defaults, the config file, FRAMECHECK_* variables and
// the flags that were set explicitly, in that order.
func loadConfig(fs *flag.FlagSet, path string) (config.Config, error) {
	v := config.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyFlags(v, fs)
	return config.FromViper(v)
}

func applyFlags(v *viper.Viper, fs *flag.FlagSet) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
	// A new location without a new name must not keep the default label.
	if (set["lat"] || set["lon"] || set["alt"]) && !set["site"] {
		v.Set("observer.name", "")
	}
	// Inline elements replace the default name unless one is given.
	if set["line1"] && !set["name"] {
		v.Set("satellite.name", kb.NameFor(v.GetString("satellite.line1")))
	}
}

func diagnose(ctx context.Context, cfg config.Config, log logging.Logger, stdout io.Writer) error {
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	catalog, err := cfg.LoadCatalog(func(ev kb.Event) {
		log.Debug(ctx, "catalog record added", logging.Int("norad_id", ev.Record.NoradID))
	})
	if err != nil {
		return err
	}
	req, err := cfg.Request(catalog)
	if err != nil {
		return err
	}

	diag := core.NewDiagnoser(core.WithLogger(log), core.WithMetricsRecorder(collector))

	if cfg.Ephemeris.Span > 0 {
		reports, err := diag.Ephemeris(ctx, req, cfg.Ephemeris.Span, cfg.Ephemeris.Step)
		if err != nil {
			return err
		}
		if err := writeEphemeris(stdout, cfg.Format, reports); err != nil {
			return err
		}
		return writeMetrics(ctx, cfg, collector, log)
	}

	report, err := diag.Diagnose(ctx, req)
	if err != nil {
		return err
	}
	if cfg.Baseline.DSN != "" {
		if err := compareBaseline(ctx, cfg, report, log); err != nil {
			return err
		}
		collector.RecordBaseline(report)
	}
	if err := writeReport(stdout, cfg.Format, report); err != nil {
		return err
	}
	return writeMetrics(ctx, cfg, collector, log)
}

func compareBaseline(ctx context.Context, cfg config.Config, report *model.Report, log logging.Logger) error {
	store, err := baseline.Open(ctx, cfg.Baseline.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	found, err := baseline.Apply(ctx, store, report, cfg.Baseline.Save)
	if err != nil {
		return err
	}
	key := baseline.KeyFor(report).String()
	if !found {
		log.Info(ctx, "no baseline for this run", logging.String("key", key), logging.Bool("saved", cfg.Baseline.Save))
		return nil
	}
	worst := 0.0
	for _, d := range report.BaselineDeltas {
		if d.MagnitudeKm > worst {
			worst = d.MagnitudeKm
		}
	}
	log.Info(ctx, "compared against baseline",
		logging.String("key", key),
		logging.Float("max_delta_km", worst),
		logging.Bool("saved", cfg.Baseline.Save),
	)
	return nil
}

func writeReport(w io.Writer, format string, report *model.Report) error {
	if format == "json" {
		return render.JSON(w, report)
	}
	return render.Text(w, report)
}

func writeEphemeris(w io.Writer, format string, reports []*model.Report) error {
	if format == "json" {
		return render.JSONLines(w, reports)
	}
	return render.EphemerisTable(w, reports)
}

func writeMetrics(ctx context.Context, cfg config.Config, collector *observability.Collector, log logging.Logger) error {
	if cfg.MetricsFile == "" {
		return nil
	}
	if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	log.Debug(ctx, "metrics written", logging.String("path", cfg.MetricsFile))
	return nil
}
