package heatpump

import "fmt"

// Season is a named representative outdoor condition.
type Season struct {
	Label              string
	OutdoorTemperature float64 // °C
}

type SeasonalPoint struct {
	Season
	COP    float64
	Rating Rating
}

var DefaultSeasons = []Season{
	{Label: "Winter", OutdoorTemperature: -5},
	{Label: "Freezing", OutdoorTemperature: 0},
	{Label: "Mild", OutdoorTemperature: 7},
	{Label: "Spring", OutdoorTemperature: 12},
}

func Seasonal(seasons []Season, indoorC, derating float64) ([]SeasonalPoint, error) {
	out := make([]SeasonalPoint, 0, len(seasons))
	for _, s := range seasons {
		cop, err := EstimateCOP(s.OutdoorTemperature, indoorC, derating)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", s.Label, err)
		}
		out = append(out, SeasonalPoint{Season: s, COP: cop, Rating: RateCOP(cop)})
	}
	return out, nil
}
