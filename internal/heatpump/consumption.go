package heatpump

import "fmt"

// Consumption compares the energy a heat pump and a gas boiler need to deliver
// the same heat demand. All values share the unit of HeatDemand.
type Consumption struct {
	HeatDemand float64
	Electrical float64 // heat demand / COP
	Boiler     float64 // heat demand / boiler efficiency
}

// Savings is the energy the heat pump saves over the boiler.
func (c Consumption) Savings() float64 {
	return c.Boiler - c.Electrical
}

// Ratio is electrical over boiler energy; below 1 the heat pump uses less.
func (c Consumption) Ratio() float64 {
	if c.Boiler == 0 {
		return 0
	}
	return c.Electrical / c.Boiler
}

func EstimateConsumption(heatDemand, cop, boilerEfficiency float64) (Consumption, error) {
	if !finite(heatDemand) || heatDemand <= 0 {
		return Consumption{}, fmt.Errorf("%w: heat demand %v must be positive", ErrInvalidParameter, heatDemand)
	}
	if !finite(cop) || cop <= 0 {
		return Consumption{}, fmt.Errorf("%w: COP %v must be positive", ErrInvalidParameter, cop)
	}
	if err := validateBoilerEfficiency(boilerEfficiency); err != nil {
		return Consumption{}, err
	}
	return Consumption{
		HeatDemand: heatDemand,
		Electrical: heatDemand / cop,
		Boiler:     heatDemand / boilerEfficiency,
	}, nil
}
