package ports

import (
	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

// SessionService is the control-plane port used by controllers (HTTP/MQTT/etc).
type SessionService interface {
	Get() session.Inputs
	System() heatpump.SystemParams
	Evaluate() (session.Evaluation, error)
	Sweep(heatpump.Range) ([]heatpump.Point, error)
	Seasonal() ([]heatpump.SeasonalPoint, error)
	Breakdown(loadKW float64) (heatpump.SystemBreakdown, error)
	IdealCurve(r heatpump.Range, loadKW float64) ([]heatpump.Point, error)

	SetOutdoorTemperature(float64) error
	SetIndoorTemperature(float64) error
	SetFlowTemperature(float64) error
	SetHeatDemand(float64) error
	SetDeratingFactor(float64) error
	SetBoilerEfficiency(float64) error
}
