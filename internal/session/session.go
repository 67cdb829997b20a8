// Package session holds the inputs an operator is currently exploring and
// evaluates them with the heatpump estimator.
package session

import (
	"fmt"
	"math"
	"sync"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/tariff"
)

type Inputs struct {
	OutdoorTemperature float64 // °C
	IndoorTemperature  float64 // °C
	FlowTemperature    float64 // °C, water leaving the heat pump
	HeatDemand         float64 // kWh of heat
	DeratingFactor     float64
	BoilerEfficiency   float64
}

func DefaultInputs() Inputs {
	return Inputs{
		OutdoorTemperature: 5,
		IndoorTemperature:  20,
		FlowTemperature:    heatpump.DefaultFlowTemperature,
		HeatDemand:         10,
		DeratingFactor:     heatpump.DefaultDeratingFactor,
		BoilerEfficiency:   heatpump.DefaultBoilerEfficiency,
	}
}

func (in Inputs) Params() heatpump.Params {
	return heatpump.Params{
		DeratingFactor:   in.DeratingFactor,
		BoilerEfficiency: in.BoilerEfficiency,
	}
}

// Evaluation is the estimator output for one set of Inputs.
type Evaluation struct {
	CarnotCOP   float64
	COP         float64
	Rating      heatpump.Rating
	Consumption heatpump.Consumption
	Cost        *tariff.Comparison // nil without a tariff
}

type Session struct {
	mu      sync.RWMutex
	in      Inputs
	system  heatpump.SystemParams
	tariff  *tariff.Tariff
	seasons []heatpump.Season
}

type Option func(*Session)

func WithSystemParams(p heatpump.SystemParams) Option {
	return func(s *Session) { s.system = p }
}

func WithTariff(t tariff.Tariff) Option {
	return func(s *Session) { s.tariff = &t }
}

func WithSeasons(seasons []heatpump.Season) Option {
	return func(s *Session) { s.seasons = seasons }
}

// New validates each input on its own. Whether indoor exceeds outdoor is
// only checked on evaluation, so operators may pass through an inverted pair
// while editing.
func New(initial Inputs, opts ...Option) (*Session, error) {
	if err := validateInputs(initial); err != nil {
		return nil, err
	}
	s := &Session{
		in:      initial,
		system:  heatpump.DefaultSystemParams(),
		seasons: heatpump.DefaultSeasons,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.system.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func validateInputs(in Inputs) error {
	if err := validateTemperature(in.OutdoorTemperature); err != nil {
		return err
	}
	if err := validateTemperature(in.IndoorTemperature); err != nil {
		return err
	}
	if err := validateTemperature(in.FlowTemperature); err != nil {
		return err
	}
	if err := validateHeatDemand(in.HeatDemand); err != nil {
		return err
	}
	p := in.Params()
	return p.Validate()
}

func validateTemperature(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= -heatpump.KelvinOffset {
		return fmt.Errorf("%w: temperature %v°C", heatpump.ErrInvalidParameter, c)
	}
	return nil
}

func validateHeatDemand(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: heat demand %v must be positive", heatpump.ErrInvalidParameter, v)
	}
	return nil
}

func (s *Session) Get() Inputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.in
}

func (s *Session) System() heatpump.SystemParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

func (s *Session) Evaluate() (Evaluation, error) {
	s.mu.RLock()
	in, tr := s.in, s.tariff
	s.mu.RUnlock()

	p, err := heatpump.Estimate(in.OutdoorTemperature, in.IndoorTemperature, in.DeratingFactor)
	if err != nil {
		return Evaluation{}, err
	}
	cons, err := heatpump.EstimateConsumption(in.HeatDemand, p.COP, in.BoilerEfficiency)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{
		CarnotCOP:   p.CarnotCOP,
		COP:         p.COP,
		Rating:      heatpump.RateCOP(p.COP),
		Consumption: cons,
	}
	if tr != nil {
		cmp := tr.Compare(cons)
		ev.Cost = &cmp
	}
	return ev, nil
}

// Sweep evaluates the COP curve across r at the current indoor temperature.
func (s *Session) Sweep(r heatpump.Range) ([]heatpump.Point, error) {
	in := s.Get()
	return heatpump.SweepRange(r, in.IndoorTemperature, in.DeratingFactor)
}

func (s *Session) Seasonal() ([]heatpump.SeasonalPoint, error) {
	s.mu.RLock()
	in, seasons := s.in, s.seasons
	s.mu.RUnlock()
	return heatpump.Seasonal(seasons, in.IndoorTemperature, in.DeratingFactor)
}

// Breakdown runs the detailed system model at the current outdoor and flow
// temperatures.
func (s *Session) Breakdown(loadKW float64) (heatpump.SystemBreakdown, error) {
	s.mu.RLock()
	in, system := s.in, s.system
	s.mu.RUnlock()
	return heatpump.Breakdown(in.OutdoorTemperature, in.FlowTemperature, loadKW, system)
}

// IdealCurve samples the detailed model's pre-parasitic COP across r at the
// current flow temperature.
func (s *Session) IdealCurve(r heatpump.Range, loadKW float64) ([]heatpump.Point, error) {
	s.mu.RLock()
	in, system := s.in, s.system
	s.mu.RUnlock()
	temps, err := r.Values()
	if err != nil {
		return nil, err
	}
	return heatpump.IdealCurve(temps, in.FlowTemperature, loadKW, system)
}

func (s *Session) SetOutdoorTemperature(c float64) error {
	if err := validateTemperature(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.OutdoorTemperature = c
	return nil
}

func (s *Session) SetIndoorTemperature(c float64) error {
	if err := validateTemperature(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.IndoorTemperature = c
	return nil
}

func (s *Session) SetFlowTemperature(c float64) error {
	if err := validateTemperature(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.FlowTemperature = c
	return nil
}

func (s *Session) SetHeatDemand(v float64) error {
	if err := validateHeatDemand(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.HeatDemand = v
	return nil
}

func (s *Session) SetDeratingFactor(f float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.in.Params()
	p.DeratingFactor = f
	if err := p.Validate(); err != nil {
		return err
	}
	s.in.DeratingFactor = f
	return nil
}

func (s *Session) SetBoilerEfficiency(e float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.in.Params()
	p.BoilerEfficiency = e
	if err := p.Validate(); err != nil {
		return err
	}
	s.in.BoilerEfficiency = e
	return nil
}
