// Package config resolves framecheck settings from defaults, an optional
// config file, a .env file and FRAMECHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/framecheck/core"
)

// EnvPrefix is prepended to every environment override, e.g.
// FRAMECHECK_OBSERVER_LATITUDE.
const EnvPrefix = "FRAMECHECK"

// Defaults reproduce the reference observation of CZ-3C DEB from station K88.
const (
	DefaultName      = "CZ-3C DEB"
	DefaultLine1     = "1 39348U 10057N   24238.91466777  .00000306  00000-0  19116-2 0  9995"
	DefaultLine2     = "2 39348  20.0230 212.2863 7218258 312.9449   5.6833  2.25781763 89468"
	DefaultEpoch     = "2024-08-26T22:34:20Z"
	DefaultSite      = "K88"
	DefaultLatitude  = 47.91748
	DefaultLongitude = 19.89367
	DefaultAltitude  = 984.0
	DefaultFrames    = "ITRF,ICRF,TEME"
)

// Satellite selects the element set to diagnose. When TLEFile is set the
// record is looked up in that file by Query; otherwise Name/Line1/Line2 are used.
type Satellite struct {
	Name    string
	Line1   string
	Line2   string
	TLEFile string
	Query   string
}

// Observer is the ground site.
type Observer struct {
	Name      string
	Latitude  float64
	Longitude float64
	Altitude  float64 // metres
}

// Baseline configures prior-run comparison. DSN is a JSON file path, a
// sqlite:// path or a postgres:// URL; empty disables baselines.
type Baseline struct {
	DSN  string
	Save bool
}

// Ephemeris configures a sweep; a zero Span means a single epoch.
type Ephemeris struct {
	Span time.Duration
	Step time.Duration
}

// Server configures cmd/framecheck-server.
type Server struct {
	Addr        string
	MetricsAddr string
}

// Log mirrors logging.Config.
type Log struct {
	Level  string
	Format string
}

// Config is the resolved configuration.
type Config struct {
	Satellite   Satellite
	Epoch       string
	Observer    Observer
	Frames      []string
	Gravity     string
	Format      string
	MetricsFile string
	Baseline    Baseline
	Ephemeris   Ephemeris
	Server      Server
	Log         Log
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// New returns a viper instance with framecheck defaults and environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("satellite.name", DefaultName)
	v.SetDefault("satellite.line1", DefaultLine1)
	v.SetDefault("satellite.line2", DefaultLine2)
	v.SetDefault("satellite.tle_file", "")
	v.SetDefault("satellite.query", "")
	v.SetDefault("epoch", DefaultEpoch)
	v.SetDefault("observer.name", DefaultSite)
	v.SetDefault("observer.latitude", DefaultLatitude)
	v.SetDefault("observer.longitude", DefaultLongitude)
	v.SetDefault("observer.altitude", DefaultAltitude)
	v.SetDefault("frames", DefaultFrames)
	v.SetDefault("gravity", "wgs72")
	v.SetDefault("format", "text")
	v.SetDefault("metrics_file", "")
	v.SetDefault("baseline.dsn", "")
	v.SetDefault("baseline.save", false)
	v.SetDefault("ephemeris.span", "0s")
	v.SetDefault("ephemeris.step", "1m")
	v.SetDefault("server.addr", ":50051")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves configuration from defaults, the optional config file at
// path (TOML, YAML or JSON by extension) and the environment.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper extracts a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Satellite: Satellite{
			Name:    v.GetString("satellite.name"),
			Line1:   v.GetString("satellite.line1"),
			Line2:   v.GetString("satellite.line2"),
			TLEFile: v.GetString("satellite.tle_file"),
			Query:   v.GetString("satellite.query"),
		},
		Epoch: v.GetString("epoch"),
		Observer: Observer{
			Name:      v.GetString("observer.name"),
			Latitude:  v.GetFloat64("observer.latitude"),
			Longitude: v.GetFloat64("observer.longitude"),
			Altitude:  v.GetFloat64("observer.altitude"),
		},
		Frames:      SplitList(v.Get("frames")),
		Gravity:     strings.ToLower(v.GetString("gravity")),
		Format:      strings.ToLower(v.GetString("format")),
		MetricsFile: v.GetString("metrics_file"),
		Baseline: Baseline{
			DSN:  v.GetString("baseline.dsn"),
			Save: v.GetBool("baseline.save"),
		},
		Ephemeris: Ephemeris{
			Span: v.GetDuration("ephemeris.span"),
			Step: v.GetDuration("ephemeris.step"),
		},
		Server: Server{
			Addr:        v.GetString("server.addr"),
			MetricsAddr: v.GetString("server.metrics_addr"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be rejected later with a clear error.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported output format %q (want text or json)", c.Format)
	}
	switch c.Gravity {
	case "wgs72", "wgs84":
	default:
		return fmt.Errorf("unsupported gravity model %q (want wgs72 or wgs84)", c.Gravity)
	}
	if c.Ephemeris.Span < 0 {
		return fmt.Errorf("ephemeris span must not be negative, got %s", c.Ephemeris.Span)
	}
	if c.Ephemeris.Span > 0 && c.Ephemeris.Step <= 0 {
		return fmt.Errorf("ephemeris step must be positive, got %s", c.Ephemeris.Step)
	}
	if n := core.EphemerisPoints(c.Ephemeris.Span, c.Ephemeris.Step); n > core.MaxEphemerisPoints {
		return fmt.Errorf("ephemeris of %d points exceeds the limit of %d", n, core.MaxEphemerisPoints)
	}
	if c.Baseline.Save && c.Baseline.DSN == "" {
		return errors.New("baseline.save requires baseline.dsn")
	}
	return nil
}

// SplitList accepts a comma separated string or a list (as decoded from a
// config file) and returns its trimmed, non-empty items.
func SplitList(raw any) []string {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []any:
		for _, it := range v {
			items = append(items, fmt.Sprint(it))
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
