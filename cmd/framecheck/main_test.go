package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/framecheck/internal/config"
	"github.com/signalsfoundry/framecheck/model"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunDefaultScenarioText(t *testing.T) {
	code, out, errOut := runCLI(t)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{
		"CZ-3C DEB (NORAD 39348) at 2024-08-26T22:34:20Z",
		"observer K88 lat 47.91748 lon 19.89367 alt 984 m",
		"Topocentric RA/Dec:",
		"Frame differences",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	for _, f := range model.AllFrames {
		if !strings.Contains(out, string(f)) {
			t.Fatalf("output missing frame %s:\n%s", f, out)
		}
	}
}

func TestRunJSONReferencePass(t *testing.T) {
	code, out, errOut := runCLI(t, "-format", "json", "-frames", "teme,icrf")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	var report model.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.States) != 2 {
		t.Fatalf("got %d states, want 2", len(report.States))
	}
	if _, ok := report.States[model.FrameITRF]; ok {
		t.Fatal("ITRF state present although not requested")
	}
	if math.Abs(report.Topocentric.RightAscensionDeg-331.598) > 0.1 ||
		math.Abs(report.Topocentric.DeclinationDeg-11.847) > 0.1 {
		t.Fatalf("ra/dec = %.4f/%.4f", report.Topocentric.RightAscensionDeg, report.Topocentric.DeclinationDeg)
	}
}

func TestRunCustomSiteDropsDefaultName(t *testing.T) {
	code, out, errOut := runCLI(t, "-format", "json", "-lat", "0", "-lon", "0", "-alt", "0")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	var report model.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Observer.Name != "site(0.0000,0.0000)" {
		t.Fatalf("observer name = %q", report.Observer.Name)
	}
}

func TestRunInlineLinesWithoutName(t *testing.T) {
	code, out, errOut := runCLI(t, "-format", "json", "-line1", config.DefaultLine1, "-line2", config.DefaultLine2)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	var report model.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Satellite.Name != "NORAD 39348" {
		t.Fatalf("satellite name = %q", report.Satellite.Name)
	}
}

func TestRunTLEFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.tle")
	body := config.DefaultName + "\n" + config.DefaultLine1 + "\n" + config.DefaultLine2 + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, out, errOut := runCLI(t, "-tle-file", path, "-satellite", "cz-3c deb")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "NORAD 39348") {
		t.Fatalf("output missing satellite:\n%s", out)
	}

	if code, _, _ := runCLI(t, "-tle-file", path, "-satellite", "25544"); code != exitFailure {
		t.Fatalf("unknown satellite exit code %d, want %d", code, exitFailure)
	}
}

func TestRunEphemerisJSONLines(t *testing.T) {
	code, out, errOut := runCLI(t, "-format", "json", "-span", "2m", "-step", "1m")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var epochs []string
	for sc.Scan() {
		var r model.Report
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		epochs = append(epochs, r.Epoch.UTC().Format("15:04:05"))
	}
	want := []string{"22:34:20", "22:35:20", "22:36:20"}
	if strings.Join(epochs, ",") != strings.Join(want, ",") {
		t.Fatalf("epochs = %v, want %v", epochs, want)
	}
}

func TestRunBaselineAndMetrics(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "baseline.json")
	metrics := filepath.Join(dir, "framecheck.prom")

	code, out, errOut := runCLI(t, "-baseline", store, "-save-baseline")
	if code != exitOK {
		t.Fatalf("first run exit code %d, stderr:\n%s", code, errOut)
	}
	if strings.Contains(out, "Baseline saved") {
		t.Fatalf("first run should have no baseline:\n%s", out)
	}

	code, out, errOut = runCLI(t, "-baseline", store, "-metrics-file", metrics)
	if code != exitOK {
		t.Fatalf("second run exit code %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "Baseline saved") {
		t.Fatalf("second run should compare against the baseline:\n%s", out)
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		"framecheck_reports_total 1",
		`framecheck_baseline_delta_km{frame="TEME"} 0`,
		`framecheck_stage_results_total{result="ok",stage="propagate"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framecheck.yaml")
	body := "format: json\nframes:\n  - ITRF\nobserver:\n  name: Origin\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, out, errOut := runCLI(t, "-config", path)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr:\n%s", code, errOut)
	}
	var report model.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Observer.Name != "Origin" || len(report.States) != 1 {
		t.Fatalf("observer %q with %d states", report.Observer.Name, len(report.States))
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"-bogus"}, exitUsage},
		{"positional argument", []string{"extra"}, exitUsage},
		{"bad format", []string{"-format", "xml"}, exitUsage},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, exitUsage},
		{"unknown frame", []string{"-frames", "GALACTIC"}, exitFailure},
		{"bad latitude", []string{"-lat", "95"}, exitFailure},
		{"infinite altitude", []string{"-alt", "Inf"}, exitFailure},
		{"malformed drag term", []string{"-line1", badDragLine1(), "-line2", config.DefaultLine2}, exitFailure},
		{"unbounded ephemeris", []string{"-span", "100000h", "-step", "1ns"}, exitUsage},
		{"bad epoch", []string{"-epoch", "tomorrow"}, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tt.args...); code != tt.want {
				t.Fatalf("exit code %d, want %d", code, tt.want)
			}
		})
	}
}

// badDragLine1 corrupts the B* field of the default line 1 while keeping a
// valid checksum.
func badDragLine1() string {
	line := strings.Replace(config.DefaultLine1, "19116-2", "1X116-2", 1)
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return line[:68] + string(rune('0'+sum%10))
}
