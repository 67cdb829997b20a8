package heatpump

import "fmt"

const (
	DefaultDeratingFactor   = 0.4
	DefaultBoilerEfficiency = 0.9
)

// Params holds the empirical calibration constants of the estimator.
type Params struct {
	DeratingFactor   float64 // fraction of the Carnot COP reached in practice, in [0, 1]
	BoilerEfficiency float64 // reference gas boiler efficiency, in (0, 1]
}

func DefaultParams() Params {
	return Params{
		DeratingFactor:   DefaultDeratingFactor,
		BoilerEfficiency: DefaultBoilerEfficiency,
	}
}

func (p *Params) Validate() error {
	if err := validateDerating(p.DeratingFactor); err != nil {
		return err
	}
	return validateBoilerEfficiency(p.BoilerEfficiency)
}

func validateDerating(f float64) error {
	if !finite(f) || f < 0 || f > 1 {
		return fmt.Errorf("%w: derating factor %v not in [0, 1]", ErrInvalidParameter, f)
	}
	return nil
}

func validateBoilerEfficiency(e float64) error {
	if !finite(e) || e <= 0 || e > 1 {
		return fmt.Errorf("%w: boiler efficiency %v not in (0, 1]", ErrInvalidParameter, e)
	}
	return nil
}

// CarnotCOP returns the reversed Carnot cycle heating COP between two absolute
// temperatures: indoor / (indoor - outdoor). The result is >= 1 and grows
// without bound as the two temperatures converge.
func CarnotCOP(indoorK, outdoorK float64) (float64, error) {
	if !finite(indoorK) || !finite(outdoorK) {
		return 0, fmt.Errorf("%w: temperatures must be finite", ErrInvalidParameter)
	}
	if indoorK <= 0 || outdoorK <= 0 {
		return 0, fmt.Errorf("%w: absolute temperatures must be positive, got %vK/%vK", ErrInvalidParameter, indoorK, outdoorK)
	}
	if indoorK <= outdoorK {
		return 0, fmt.Errorf("%w: indoor %.2fK, outdoor %.2fK", ErrInvalidTemperatureRange, indoorK, outdoorK)
	}
	return indoorK / (indoorK - outdoorK), nil
}

// RealisticCOP scales an ideal COP down by the derating factor.
func RealisticCOP(carnot, derating float64) (float64, error) {
	if !finite(carnot) || carnot <= 0 {
		return 0, fmt.Errorf("%w: carnot COP %v must be positive", ErrInvalidParameter, carnot)
	}
	if err := validateDerating(derating); err != nil {
		return 0, err
	}
	return carnot * derating, nil
}

// EstimateCOP converts both Celsius temperatures to kelvin and returns the
// derated Carnot COP.
func EstimateCOP(outdoorC, indoorC, derating float64) (float64, error) {
	_, cop, err := estimate(outdoorC, indoorC, derating)
	return cop, err
}

// Estimate is EstimateCOP keeping the Carnot COP alongside the derated one.
func Estimate(outdoorC, indoorC, derating float64) (Point, error) {
	carnot, cop, err := estimate(outdoorC, indoorC, derating)
	if err != nil {
		return Point{}, err
	}
	return Point{OutdoorTemperature: outdoorC, CarnotCOP: carnot, COP: cop}, nil
}

func estimate(outdoorC, indoorC, derating float64) (carnot, cop float64, err error) {
	if finite(outdoorC) && finite(indoorC) && indoorC <= outdoorC {
		return 0, 0, fmt.Errorf("%w: indoor %.2f°C, outdoor %.2f°C", ErrInvalidTemperatureRange, indoorC, outdoorC)
	}
	carnot, err = CarnotCOP(CelsiusToKelvin(indoorC), CelsiusToKelvin(outdoorC))
	if err != nil {
		return 0, 0, err
	}
	cop, err = RealisticCOP(carnot, derating)
	if err != nil {
		return 0, 0, err
	}
	return carnot, cop, nil
}
