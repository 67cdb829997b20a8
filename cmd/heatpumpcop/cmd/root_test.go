package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Agrid-Dev/heatpumpcop/internal/chart"
	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	cfg := filepath.Join(t.TempDir(), "absent.yaml")
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestEstimate(t *testing.T) {
	out, err := runCLI(t, "estimate", "--outdoor", "0", "--indoor", "20")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"14.66", "5.86 (good)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestEstimate_InvalidRange(t *testing.T) {
	_, err := runCLI(t, "estimate", "--outdoor", "25", "--indoor", "20")
	if !errors.Is(err, heatpump.ErrInvalidTemperatureRange) {
		t.Fatalf("expected ErrInvalidTemperatureRange, got %v", err)
	}
}

func TestConsumption(t *testing.T) {
	out, err := runCLI(t, "consumption", "--outdoor", "0", "--demand", "10")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1.71 kWh", "11.11 kWh"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConsumption_ZeroDerating(t *testing.T) {
	_, err := runCLI(t, "consumption", "--derating", "0")
	if !errors.Is(err, heatpump.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSweepFormats(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		out, err := runCLI(t, "sweep", "--from", "-10", "--to", "10", "--steps", "3", "--format", "csv")
		if err != nil {
			t.Fatal(err)
		}
		recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 4 || recs[0][0] != "outdoor_temperature" || recs[2][0] != "0.0000" {
			t.Fatalf("unexpected csv: %v", recs)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, "sweep", "--steps", "3", "--format", "json")
		if err != nil {
			t.Fatal(err)
		}
		var pts []pointJSON
		if err := json.Unmarshal([]byte(out), &pts); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, out)
		}
		if len(pts) != 3 || pts[0].OutdoorTemperature != -15 || pts[2].OutdoorTemperature != 15 {
			t.Fatalf("unexpected points: %+v", pts)
		}
	})

	t.Run("table", func(t *testing.T) {
		out, err := runCLI(t, "sweep", "--steps", "2")
		if err != nil {
			t.Fatal(err)
		}
		if lines := strings.Count(strings.TrimSpace(out), "\n") + 1; lines != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines:\n%s", lines, out)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := runCLI(t, "sweep", "--format", "xml"); err == nil {
			t.Fatal("expected error for unsupported format")
		}
	})
}

func TestSweep_FailsFast(t *testing.T) {
	_, err := runCLI(t, "sweep", "--from", "0", "--to", "30", "--steps", "4", "--format", "csv")
	if !errors.Is(err, heatpump.ErrInvalidTemperatureRange) {
		t.Fatalf("expected ErrInvalidTemperatureRange, got %v", err)
	}
}

func TestSweep_DefaultRangeBelowIndoor(t *testing.T) {
	out, err := runCLI(t, "sweep", "--indoor", "10", "--outdoor", "-5", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var pts []pointJSON
	if err := json.Unmarshal([]byte(out), &pts); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(pts) != 100 || pts[len(pts)-1].OutdoorTemperature != 9.5 {
		t.Fatalf("expected 100 points ending at 9.5, got %d ending at %v", len(pts), pts[len(pts)-1].OutdoorTemperature)
	}
}

func TestSeasonal(t *testing.T) {
	out, err := runCLI(t, "seasonal")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range heatpump.DefaultSeasons {
		if !strings.Contains(out, s.Label) {
			t.Fatalf("expected season %q in output:\n%s", s.Label, out)
		}
	}
}

func TestBreakdown(t *testing.T) {
	out, err := runCLI(t, "breakdown", "--outdoor", "5", "--flow", "45", "--load", "6")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "System COP") || !strings.Contains(out, "2.92") {
		t.Fatalf("unexpected breakdown:\n%s", out)
	}

	// Without --flow the configured flow temperature applies, not the indoor target.
	out, err = runCLI(t, "breakdown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "45.0 °C") || !strings.Contains(out, "2.92") {
		t.Fatalf("expected breakdown at the default 45°C flow:\n%s", out)
	}
}

func TestPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cop.svg")
	if _, err := runCLI(t, "plot", "--out", path, "--steps", "10"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte("<svg")) {
		t.Fatal("expected svg output")
	}
	for _, want := range []string{"Ideal (50%)", "Defrost zone"} {
		if !bytes.Contains(b, []byte(want)) {
			t.Fatalf("expected %q in plot", want)
		}
	}

	low := filepath.Join(t.TempDir(), "low.png")
	if _, err := runCLI(t, "plot", "--out", low, "--indoor", "10", "--outdoor", "-5"); err != nil {
		t.Fatalf("plot with indoor below the default range: %v", err)
	}

	_, err = runCLI(t, "plot", "--out", filepath.Join(t.TempDir(), "cop.gif"))
	if !errors.Is(err, chart.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestConfigDump(t *testing.T) {
	t.Setenv("HEATPUMPCOP_CONTROLLERS_MQTT_PASSWORD", "secret")
	out, err := runCLI(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, out)
	}
	if got["device_id"] != "default" {
		t.Fatalf("expected device_id=default, got %v", got["device_id"])
	}
	if strings.Contains(out, "secret") {
		t.Fatal("password must be masked")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Setenv("HEATPUMPCOP_ESTIMATOR_DERATING_FACTOR", "3")
	if _, err := runCLI(t, "estimate"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestConsumption_WithTariff(t *testing.T) {
	t.Setenv("HEATPUMPCOP_TARIFF_ENABLED", "true")
	out, err := runCLI(t, "consumption", "--outdoor", "0", "--demand", "10")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Cost saved", "EUR", "Break-even COP", "2.25"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
