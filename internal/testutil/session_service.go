package testutil

import (
	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

// FakeSessionService is a reusable fake implementing ports.SessionService.
// Evaluations, sweeps and breakdowns go through the real heatpump functions
// so controllers see consistent numbers; setters only record their calls.
type FakeSessionService struct {
	S      session.Inputs
	Params heatpump.SystemParams

	EvaluateErr error
	SweepArg    heatpump.Range
	BreakdownKW float64

	SetOutdoorCalled bool
	SetOutdoorArg    float64
	SetOutdoorErr    error

	SetIndoorCalled bool
	SetIndoorArg    float64
	SetIndoorErr    error

	SetFlowCalled bool
	SetFlowArg    float64
	SetFlowErr    error

	SetHeatDemandCalled bool
	SetHeatDemandArg    float64
	SetHeatDemandErr    error

	SetDeratingCalled bool
	SetDeratingArg    float64
	SetDeratingErr    error

	SetBoilerCalled bool
	SetBoilerArg    float64
	SetBoilerErr    error
}

func NewFakeSessionService() *FakeSessionService {
	return &FakeSessionService{
		S: session.Inputs{
			OutdoorTemperature: 0,
			IndoorTemperature:  20,
			FlowTemperature:    heatpump.DefaultFlowTemperature,
			HeatDemand:         10,
			DeratingFactor:     heatpump.DefaultDeratingFactor,
			BoilerEfficiency:   heatpump.DefaultBoilerEfficiency,
		},
		Params: heatpump.DefaultSystemParams(),
	}
}

func (f *FakeSessionService) Get() session.Inputs { return f.S }

func (f *FakeSessionService) System() heatpump.SystemParams { return f.Params }

func (f *FakeSessionService) Evaluate() (session.Evaluation, error) {
	if f.EvaluateErr != nil {
		return session.Evaluation{}, f.EvaluateErr
	}
	p, err := heatpump.Estimate(f.S.OutdoorTemperature, f.S.IndoorTemperature, f.S.DeratingFactor)
	if err != nil {
		return session.Evaluation{}, err
	}
	c, err := heatpump.EstimateConsumption(f.S.HeatDemand, p.COP, f.S.BoilerEfficiency)
	if err != nil {
		return session.Evaluation{}, err
	}
	return session.Evaluation{
		CarnotCOP:   p.CarnotCOP,
		COP:         p.COP,
		Rating:      heatpump.RateCOP(p.COP),
		Consumption: c,
	}, nil
}

func (f *FakeSessionService) Sweep(r heatpump.Range) ([]heatpump.Point, error) {
	f.SweepArg = r
	return heatpump.SweepRange(r, f.S.IndoorTemperature, f.S.DeratingFactor)
}

func (f *FakeSessionService) Seasonal() ([]heatpump.SeasonalPoint, error) {
	return heatpump.Seasonal(heatpump.DefaultSeasons, f.S.IndoorTemperature, f.S.DeratingFactor)
}

func (f *FakeSessionService) Breakdown(loadKW float64) (heatpump.SystemBreakdown, error) {
	f.BreakdownKW = loadKW
	return heatpump.Breakdown(f.S.OutdoorTemperature, f.S.FlowTemperature, loadKW, f.Params)
}

func (f *FakeSessionService) IdealCurve(r heatpump.Range, loadKW float64) ([]heatpump.Point, error) {
	temps, err := r.Values()
	if err != nil {
		return nil, err
	}
	return heatpump.IdealCurve(temps, f.S.FlowTemperature, loadKW, f.Params)
}

func (f *FakeSessionService) SetOutdoorTemperature(v float64) error {
	f.SetOutdoorCalled = true
	f.SetOutdoorArg = v
	if f.SetOutdoorErr != nil {
		return f.SetOutdoorErr
	}
	f.S.OutdoorTemperature = v
	return nil
}

func (f *FakeSessionService) SetIndoorTemperature(v float64) error {
	f.SetIndoorCalled = true
	f.SetIndoorArg = v
	if f.SetIndoorErr != nil {
		return f.SetIndoorErr
	}
	f.S.IndoorTemperature = v
	return nil
}

func (f *FakeSessionService) SetFlowTemperature(v float64) error {
	f.SetFlowCalled = true
	f.SetFlowArg = v
	if f.SetFlowErr != nil {
		return f.SetFlowErr
	}
	f.S.FlowTemperature = v
	return nil
}

func (f *FakeSessionService) SetHeatDemand(v float64) error {
	f.SetHeatDemandCalled = true
	f.SetHeatDemandArg = v
	if f.SetHeatDemandErr != nil {
		return f.SetHeatDemandErr
	}
	f.S.HeatDemand = v
	return nil
}

func (f *FakeSessionService) SetDeratingFactor(v float64) error {
	f.SetDeratingCalled = true
	f.SetDeratingArg = v
	if f.SetDeratingErr != nil {
		return f.SetDeratingErr
	}
	f.S.DeratingFactor = v
	return nil
}

func (f *FakeSessionService) SetBoilerEfficiency(v float64) error {
	f.SetBoilerCalled = true
	f.SetBoilerArg = v
	if f.SetBoilerErr != nil {
		return f.SetBoilerErr
	}
	f.S.BoilerEfficiency = v
	return nil
}
