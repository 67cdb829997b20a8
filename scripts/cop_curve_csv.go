package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

// Curve is one indoor target to sweep.
type Curve struct {
	IndoorTemperature float64
	DeratingFactor    float64
}

// WriteCOPCurves sweeps every curve over r and writes one CSV row per point,
// with the energy needed to deliver heatDemand from the heat pump and from
// the boiler.
func WriteCOPCurves(filename string, r heatpump.Range, heatDemand float64, curves []Curve) error {
	outdoors, err := r.Values()
	if err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Indoor", "Derating", "Outdoor", "CarnotCOP", "COP", "Electrical", "Boiler"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range curves {
		for p, err := range heatpump.Points(outdoors, c.IndoorTemperature, c.DeratingFactor) {
			if err != nil {
				return fmt.Errorf("indoor %.1f°C: %w", c.IndoorTemperature, err)
			}
			cons, err := heatpump.EstimateConsumption(heatDemand, p.COP, heatpump.DefaultBoilerEfficiency)
			if err != nil {
				return fmt.Errorf("indoor %.1f°C: %w", c.IndoorTemperature, err)
			}
			if err := writer.Write([]string{
				fmt.Sprintf("%.1f", c.IndoorTemperature),
				fmt.Sprintf("%.2f", c.DeratingFactor),
				fmt.Sprintf("%.2f", p.OutdoorTemperature),
				fmt.Sprintf("%.4f", p.CarnotCOP),
				fmt.Sprintf("%.4f", p.COP),
				fmt.Sprintf("%.4f", cons.Electrical),
				fmt.Sprintf("%.4f", cons.Boiler),
			}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func main() {
	curves := []Curve{
		{IndoorTemperature: 18, DeratingFactor: heatpump.DefaultDeratingFactor},
		{IndoorTemperature: 20, DeratingFactor: heatpump.DefaultDeratingFactor},
		{IndoorTemperature: 22, DeratingFactor: heatpump.DefaultDeratingFactor},
		{IndoorTemperature: 20, DeratingFactor: 0.5},
	}
	if err := WriteCOPCurves("cop_curves.csv", heatpump.DefaultRange(), 10, curves); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
