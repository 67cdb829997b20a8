package heatpump

import (
	"fmt"
	"math"
)

// SystemParams describes the losses of a real installation on top of the
// Carnot limit. Temperatures deltas are in kelvin, powers in kW.
type SystemParams struct {
	SystemEfficiency float64 // compressor share of the Carnot COP, in (0, 1]

	HeatExchangerPenalty bool
	SourceDelta          float64 // evaporator runs this much below outdoor air
	SinkDelta            float64 // condenser runs this much above the flow temperature

	Defrost  bool
	Humidity float64 // relative humidity, percent

	PartLoad    bool
	MaxCapacity float64 // rated heat output

	Parasitics     bool
	ParasiticPower float64 // fans and pumps
}

// DefaultFlowTemperature suits radiators; underfloor loops run nearer 35°C.
const DefaultFlowTemperature = 45.0

func DefaultSystemParams() SystemParams {
	return SystemParams{
		SystemEfficiency:     0.5,
		HeatExchangerPenalty: true,
		SourceDelta:          7,
		SinkDelta:            4,
		Defrost:              true,
		Humidity:             70,
		PartLoad:             true,
		MaxCapacity:          14,
		Parasitics:           true,
		ParasiticPower:       0.150,
	}
}

func (p *SystemParams) Validate() error {
	if !finite(p.SystemEfficiency) || p.SystemEfficiency <= 0 || p.SystemEfficiency > 1 {
		return fmt.Errorf("%w: system efficiency %v not in (0, 1]", ErrInvalidParameter, p.SystemEfficiency)
	}
	if !finite(p.SourceDelta) || !finite(p.SinkDelta) || p.SourceDelta < 0 || p.SinkDelta < 0 {
		return fmt.Errorf("%w: heat exchanger deltas must be >= 0", ErrInvalidParameter)
	}
	if !finite(p.Humidity) || p.Humidity < 0 || p.Humidity > 100 {
		return fmt.Errorf("%w: humidity %v not in [0, 100]", ErrInvalidParameter, p.Humidity)
	}
	if !finite(p.MaxCapacity) || p.MaxCapacity <= 0 {
		return fmt.Errorf("%w: max capacity %v must be positive", ErrInvalidParameter, p.MaxCapacity)
	}
	if !finite(p.ParasiticPower) || p.ParasiticPower < 0 {
		return fmt.Errorf("%w: parasitic power %v must be >= 0", ErrInvalidParameter, p.ParasiticPower)
	}
	return nil
}

// Part-load clamp: the inverter cannot run below 15% and tolerates 10% overload.
const (
	minLoadFactor = 0.15
	maxLoadFactor = 1.1
)

// SystemBreakdown lists every stage of the detailed COP computation.
type SystemBreakdown struct {
	COP                   float64
	CarnotCOP             float64
	RawCOP                float64 // after efficiency, defrost and part-load, before parasitics
	DefrostPenalty        float64
	InverterCorrection    float64
	LoadFactor            float64 // demand over capacity, unclamped
	EvaporatorTemperature float64 // °C
	CondenserTemperature  float64 // °C
	CompressorPower       float64 // kW
	ParasiticPower        float64 // kW
	ElectricalPower       float64 // kW
	EfficiencyLoss        float64 // percent below the Carnot COP
}

// Lift is the temperature difference the refrigerant cycle works against.
func (b SystemBreakdown) Lift() float64 {
	return b.CondenserTemperature - b.EvaporatorTemperature
}

// Breakdown evaluates the detailed model for an air-to-water heat pump
// delivering loadKW at flowC water temperature with outdoorC air.
func Breakdown(outdoorC, flowC, loadKW float64, p SystemParams) (SystemBreakdown, error) {
	if err := p.Validate(); err != nil {
		return SystemBreakdown{}, err
	}
	if !finite(loadKW) || loadKW < 0 {
		return SystemBreakdown{}, fmt.Errorf("%w: heat load %v must be >= 0", ErrInvalidParameter, loadKW)
	}
	if !finite(outdoorC) || !finite(flowC) {
		return SystemBreakdown{}, fmt.Errorf("%w: temperatures must be finite", ErrInvalidParameter)
	}

	evapK := CelsiusToKelvin(outdoorC)
	condK := CelsiusToKelvin(flowC)
	if p.HeatExchangerPenalty {
		evapK -= p.SourceDelta
		condK += p.SinkDelta
	}

	carnot, err := CarnotCOP(condK, evapK)
	if err != nil {
		return SystemBreakdown{}, err
	}

	b := SystemBreakdown{
		CarnotCOP:             carnot,
		DefrostPenalty:        1,
		InverterCorrection:    1,
		LoadFactor:            1,
		EvaporatorTemperature: KelvinToCelsius(evapK),
		CondenserTemperature:  KelvinToCelsius(condK),
	}

	raw := carnot * p.SystemEfficiency
	if p.Defrost {
		b.DefrostPenalty = defrostPenalty(outdoorC, p.Humidity)
	}
	raw *= b.DefrostPenalty

	if p.PartLoad {
		b.LoadFactor = loadKW / p.MaxCapacity
		b.InverterCorrection = inverterCorrection(b.LoadFactor)
	}
	raw *= b.InverterCorrection
	b.RawCOP = raw
	b.COP = raw

	if loadKW > 0 {
		b.CompressorPower = loadKW / raw
		if p.Parasitics {
			b.ParasiticPower = p.ParasiticPower
			b.COP = loadKW / (b.CompressorPower + b.ParasiticPower)
		}
		b.ElectricalPower = loadKW / b.COP
	}
	b.EfficiencyLoss = (carnot - b.COP) / carnot * 100
	return b, nil
}

// IdealCurve runs Breakdown at each outdoor temperature and keeps the COP
// before parasitic loads, so Point.COP holds SystemBreakdown.RawCOP.
func IdealCurve(outdoors []float64, flowC, loadKW float64, p SystemParams) ([]Point, error) {
	out := make([]Point, 0, len(outdoors))
	for _, t := range outdoors {
		b, err := Breakdown(t, flowC, loadKW, p)
		if err != nil {
			return nil, fmt.Errorf("outdoor %.2f°C: %w", t, err)
		}
		out = append(out, Point{OutdoorTemperature: t, CarnotCOP: b.CarnotCOP, COP: b.RawCOP})
	}
	return out, nil
}

// DefrostZone is the outdoor span where frost builds fastest in humid air.
var DefrostZone = [2]float64{-2, 3}

// ShowsDefrostZone reports whether p loses output to defrost inside DefrostZone.
func (p *SystemParams) ShowsDefrostZone() bool {
	return p.Defrost && p.Humidity > 60
}

// defrostPenalty models the share of output lost to defrost cycles. Frost
// builds fastest just around freezing in humid air.
func defrostPenalty(outdoorC, humidity float64) float64 {
	switch {
	case outdoorC >= DefrostZone[0] && outdoorC <= DefrostZone[1] && humidity > 60:
		return 0.88 - 0.05*(humidity-60)/40
	case outdoorC >= -5 && outdoorC <= 5 && humidity > 70:
		return 0.90
	default:
		return 1
	}
}

// inverterCorrection peaks at 1.0 for a half-loaded compressor and falls off
// toward cycling at low load and friction at full load.
func inverterCorrection(loadFactor float64) float64 {
	x := math.Min(maxLoadFactor, math.Max(minLoadFactor, loadFactor))
	return -0.8*x*x + 0.8*x + 0.8
}
