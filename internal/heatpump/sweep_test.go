package heatpump

import (
	"math"
	"testing"
)

func TestSweepOrderAndMonotonic(t *testing.T) {
	outdoors := []float64{-10, 0, 10}
	got, err := Sweep(outdoors, 20, DefaultDeratingFactor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(outdoors) {
		t.Fatalf("expected %d points, got %d", len(outdoors), len(got))
	}
	for i, p := range got {
		if p.OutdoorTemperature != outdoors[i] {
			t.Errorf("point %d: outdoor %v, want %v", i, p.OutdoorTemperature, outdoors[i])
		}
		want, _ := EstimateCOP(outdoors[i], 20, DefaultDeratingFactor)
		if p.COP != want {
			t.Errorf("point %d: COP %v, want %v", i, p.COP, want)
		}
		if !almostEqual(p.COP, p.CarnotCOP*DefaultDeratingFactor, 1e-12) {
			t.Errorf("point %d: COP %v is not derated Carnot %v", i, p.COP, p.CarnotCOP)
		}
		if i > 0 && p.COP <= got[i-1].COP {
			t.Errorf("COP should increase with outdoor temperature: %v <= %v", p.COP, got[i-1].COP)
		}
	}
}

func TestSweepFailFast(t *testing.T) {
	got, err := Sweep([]float64{0, 25, 5}, 20, DefaultDeratingFactor)
	assertErrorIs(t, err, ErrInvalidTemperatureRange)
	if got != nil {
		t.Fatalf("expected no partial result, got %v", got)
	}
}

func TestSweepEmpty(t *testing.T) {
	got, err := Sweep(nil, 20, DefaultDeratingFactor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty sweep, got %v", got)
	}
}

func TestPointsRestartable(t *testing.T) {
	seq := Points([]float64{-5, 0, 5}, 20, DefaultDeratingFactor)

	collect := func() []Point {
		var out []Point
		for p, err := range seq {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out = append(out, p)
		}
		return out
	}

	first := collect()
	second := collect()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 points twice, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("point %d differs between iterations: %+v != %+v", i, first[i], second[i])
		}
	}
}

func TestPointsEarlyBreak(t *testing.T) {
	n := 0
	for range Points([]float64{-5, 0, 5, 10}, 20, DefaultDeratingFactor) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2 points, got %d", n)
	}
}

func TestPointsYieldsErrorThenStops(t *testing.T) {
	var errs, points int
	for _, err := range Points([]float64{0, 30, 5}, 20, DefaultDeratingFactor) {
		if err != nil {
			errs++
			continue
		}
		points++
	}
	if points != 1 || errs != 1 {
		t.Fatalf("expected 1 point then 1 error, got points=%d errs=%d", points, errs)
	}
}

func TestRangeValues(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want []float64
	}{
		{"single step", Range{From: 3, To: 9, Steps: 1}, []float64{3}},
		{"ascending", Range{From: -10, To: 10, Steps: 5}, []float64{-10, -5, 0, 5, 10}},
		{"descending", Range{From: 10, To: 0, Steps: 3}, []float64{10, 5, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Values()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if !almostEqual(got[i], tt.want[i], 1e-12) {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDefaultRangeEndpoints(t *testing.T) {
	got, err := DefaultRange().Values()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 || got[0] != -15 || got[99] != 15 {
		t.Fatalf("unexpected default range: len=%d first=%v last=%v", len(got), got[0], got[len(got)-1])
	}
}

func TestRangeValidate(t *testing.T) {
	for _, r := range []Range{
		{From: 0, To: 1, Steps: 0},
		{From: 0, To: 1, Steps: MaxSweepSteps + 1},
	} {
		_, err := r.Values()
		assertErrorIs(t, err, ErrInvalidRange)
	}
}

func TestSweepRange(t *testing.T) {
	got, err := SweepRange(Range{From: -15, To: 15, Steps: 7}, 20, DefaultDeratingFactor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 points, got %d", len(got))
	}

	_, err = SweepRange(Range{From: -15, To: 25, Steps: 9}, 20, DefaultDeratingFactor)
	assertErrorIs(t, err, ErrInvalidTemperatureRange)
}

func TestRangeBelow(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		indoor float64
		want   Range
	}{
		{"already below", Range{From: -15, To: 5, Steps: 10}, 20, Range{From: -15, To: 5, Steps: 10}},
		{"warm end capped", DefaultRange(), 10, Range{From: -15, To: 9.5, Steps: 100}},
		{"descending capped at start", Range{From: 15, To: -15, Steps: 4}, 10, Range{From: 9.5, To: -15, Steps: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Below(tt.indoor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRangeBelowSweepsCleanly(t *testing.T) {
	r, err := DefaultRange().Below(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pts, err := SweepRange(r, 10, DefaultDeratingFactor)
	if err != nil {
		t.Fatalf("sweep of clipped range failed: %v", err)
	}
	if len(pts) != 100 || pts[99].OutdoorTemperature != 9.5 {
		t.Fatalf("unexpected sweep: len=%d last=%v", len(pts), pts[len(pts)-1].OutdoorTemperature)
	}
}

func TestRangeBelowRejects(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		indoor float64
		want   error
	}{
		{"whole range above indoor", Range{From: 12, To: 20, Steps: 5}, 10, ErrInvalidRange},
		{"invalid steps", Range{From: -5, To: 5, Steps: 0}, 20, ErrInvalidRange},
		{"non-finite indoor", DefaultRange(), math.Inf(1), ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Below(tt.indoor)
			assertErrorIs(t, err, tt.want)
		})
	}
}
