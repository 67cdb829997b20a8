package heatpump

import (
	"fmt"
	"iter"
)

// MaxSweepSteps bounds the size of a generated Range.
const MaxSweepSteps = 10000

// Point is one sample of a COP curve.
type Point struct {
	OutdoorTemperature float64 // °C
	CarnotCOP          float64
	COP                float64
}

// Range describes Steps evenly spaced outdoor temperatures from From to To,
// both ends included.
type Range struct {
	From  float64
	To    float64
	Steps int
}

// DefaultRange is the outdoor span plotted by default.
func DefaultRange() Range {
	return Range{From: -15, To: 15, Steps: 100}
}

func (r *Range) Validate() error {
	if !finite(r.From) || !finite(r.To) {
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidRange)
	}
	if r.Steps < 1 || r.Steps > MaxSweepSteps {
		return fmt.Errorf("%w: steps %d not in [1, %d]", ErrInvalidRange, r.Steps, MaxSweepSteps)
	}
	return nil
}

func (r Range) Values() ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, r.Steps)
	if r.Steps == 1 {
		out[0] = r.From
		return out, nil
	}
	step := (r.To - r.From) / float64(r.Steps-1)
	for i := range out {
		out[i] = r.From + float64(i)*step
	}
	out[r.Steps-1] = r.To
	return out, nil
}

// MinLift is the gap a clipped range keeps below the indoor temperature.
const MinLift = 0.5

// Below caps the warm end of r at indoorC - MinLift so every sample stays in
// the heating range. It fails when the cold end already lies above the cap.
func (r Range) Below(indoorC float64) (Range, error) {
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	if !finite(indoorC) {
		return Range{}, fmt.Errorf("%w: indoor temperature must be finite", ErrInvalidParameter)
	}
	limit := indoorC - MinLift
	cold, warm := &r.From, &r.To
	if r.From > r.To {
		cold, warm = &r.To, &r.From
	}
	if *cold > limit {
		return Range{}, fmt.Errorf("%w: %.2f°C is not below indoor %.2f°C", ErrInvalidRange, *cold, indoorC)
	}
	*warm = min(*warm, limit)
	return r, nil
}

// Points lazily evaluates the COP at each outdoor temperature, in input order.
// The sequence is fail-fast: the first point outside the heating range yields
// its error and ends the iteration. Ranging over it again restarts from the
// first temperature.
func Points(outdoors []float64, indoorC, derating float64) iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		for _, t := range outdoors {
			carnot, cop, err := estimate(t, indoorC, derating)
			if err != nil {
				yield(Point{OutdoorTemperature: t}, fmt.Errorf("outdoor %.2f°C: %w", t, err))
				return
			}
			if !yield(Point{OutdoorTemperature: t, CarnotCOP: carnot, COP: cop}, nil) {
				return
			}
		}
	}
}

// Sweep materializes Points. Any invalid point aborts the whole sweep and no
// partial result is returned.
func Sweep(outdoors []float64, indoorC, derating float64) ([]Point, error) {
	out := make([]Point, 0, len(outdoors))
	for p, err := range Points(outdoors, indoorC, derating) {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func SweepRange(r Range, indoorC, derating float64) ([]Point, error) {
	temps, err := r.Values()
	if err != nil {
		return nil, err
	}
	return Sweep(temps, indoorC, derating)
}
