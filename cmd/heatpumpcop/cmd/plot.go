package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatpumpcop/internal/chart"
	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

func newPlotCmd(c *cli) *cobra.Command {
	var (
		inputs inputFlags
		rng    rangeFlags
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render the COP curve to an image",
		Long: `Plot the Carnot and realistic COP against outdoor temperature, with the
configured outdoor temperature marked as the current operating point. The
detailed system model adds its pre-parasitic curve at the configured flow
temperature and load, and shades the defrost zone when defrost applies.

Examples:
  heatpumpcop plot --out cop.png
  heatpumpcop plot --out cop.svg --indoor 21 --derating 0.45`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			}
			if !chart.Supported(format) {
				return fmt.Errorf("%w: %q", chart.ErrUnsupportedFormat, format)
			}

			in := inputs.apply(cmd, c.cfg.Inputs())
			r, err := rng.resolve(cmd, c.cfg.Range(), in.IndoorTemperature)
			if err != nil {
				return err
			}
			pts, err := heatpump.SweepRange(r, in.IndoorTemperature, in.DeratingFactor)
			if err != nil {
				return err
			}
			temps, err := r.Values()
			if err != nil {
				return err
			}
			system := c.cfg.SystemParams()
			ideal, err := heatpump.IdealCurve(temps, in.FlowTemperature, c.cfg.System.LoadKW, system)
			if err != nil {
				return err
			}
			ch := chart.Chart{
				Title: fmt.Sprintf("Indoor: %.1f°C | Flow: %.1f°C | Load: %.1f kW",
					in.IndoorTemperature, in.FlowTemperature, c.cfg.System.LoadKW),
				Points:      pts,
				Ideal:       ideal,
				IdealLabel:  chart.IdealLegend(system),
				DefrostZone: system.ShowsDefrostZone(),
			}
			if cur, err := heatpump.Estimate(in.OutdoorTemperature, in.IndoorTemperature, in.DeratingFactor); err == nil {
				ch.Current = &cur
			} else {
				c.log.Debug("current point not plotted", zap.Error(err))
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := ch.Render(f, format); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			c.log.Info("plot written", zap.String("path", out), zap.Int("points", len(pts)))
			return nil
		},
	}
	inputs.register(cmd, false)
	rng.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().StringVar(&format, "format", "", "image format (png, svg); default from the --out extension")
	return cmd
}
