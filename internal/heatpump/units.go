package heatpump

import "math"

// KelvinOffset converts degrees Celsius to kelvin.
const KelvinOffset = 273.15

func CelsiusToKelvin(c float64) float64 { return c + KelvinOffset }

func KelvinToCelsius(k float64) float64 { return k - KelvinOffset }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
