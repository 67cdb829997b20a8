// Package tariff prices the energy of a heat pump against a gas boiler.
package tariff

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

var ErrInvalidPrice = errors.New("invalid energy price")

const DefaultCurrency = "EUR"

// Tariff holds unit prices per kWh of delivered fuel.
type Tariff struct {
	ElectricityPrice decimal.Decimal
	GasPrice         decimal.Decimal
	Currency         string
}

func New(electricityPrice, gasPrice float64, currency string) (Tariff, error) {
	for _, p := range []float64{electricityPrice, gasPrice} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Tariff{}, fmt.Errorf("%w: %v", ErrInvalidPrice, p)
		}
	}
	elec := decimal.NewFromFloat(electricityPrice)
	gas := decimal.NewFromFloat(gasPrice)
	if elec.IsNegative() {
		return Tariff{}, fmt.Errorf("%w: electricity price %s", ErrInvalidPrice, elec)
	}
	if gas.IsNegative() {
		return Tariff{}, fmt.Errorf("%w: gas price %s", ErrInvalidPrice, gas)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Tariff{ElectricityPrice: elec, GasPrice: gas, Currency: currency}, nil
}

// Comparison is the running cost of one consumption estimate, rounded to cents.
type Comparison struct {
	HeatPumpCost decimal.Decimal
	BoilerCost   decimal.Decimal
	Savings      decimal.Decimal // negative when the boiler is cheaper
	Currency     string
}

func (t Tariff) Compare(c heatpump.Consumption) Comparison {
	hp := t.ElectricityPrice.Mul(decimal.NewFromFloat(c.Electrical)).Round(2)
	boiler := t.GasPrice.Mul(decimal.NewFromFloat(c.Boiler)).Round(2)
	return Comparison{
		HeatPumpCost: hp,
		BoilerCost:   boiler,
		Savings:      boiler.Sub(hp),
		Currency:     t.Currency,
	}
}

// BreakEvenCOP is the COP below which the heat pump costs more to run than
// the boiler at the given efficiency.
func (t Tariff) BreakEvenCOP(boilerEfficiency float64) (float64, error) {
	if t.GasPrice.IsZero() {
		return 0, fmt.Errorf("%w: gas price must be positive", ErrInvalidPrice)
	}
	if boilerEfficiency <= 0 || boilerEfficiency > 1 {
		return 0, fmt.Errorf("%w: boiler efficiency %v not in (0, 1]", heatpump.ErrInvalidParameter, boilerEfficiency)
	}
	ratio := t.ElectricityPrice.Div(t.GasPrice).InexactFloat64()
	return ratio * boilerEfficiency, nil
}
