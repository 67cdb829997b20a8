package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

func newSeasonalCmd(c *cli) *cobra.Command {
	var inputs inputFlags
	cmd := &cobra.Command{
		Use:   "seasonal",
		Short: "Compare COP across typical seasonal outdoor temperatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := inputs.apply(cmd, c.cfg.Inputs())
			points, err := heatpump.Seasonal(heatpump.DefaultSeasons, in.IndoorTemperature, in.DeratingFactor)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Season\tOutdoor °C\tCOP\tRating")
			for _, sp := range points {
				fmt.Fprintf(w, "%s\t%.1f\t%.2f\t%s\n", sp.Label, sp.OutdoorTemperature, sp.COP, sp.Rating)
			}
			return w.Flush()
		},
	}
	inputs.register(cmd, false)
	return cmd
}

func newBreakdownCmd(c *cli) *cobra.Command {
	var (
		outdoor float64
		flow    float64
		load    float64
	)
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show where the detailed system model loses COP",
		Long: `Run the detailed system model: heat exchanger lift, compressor efficiency,
defrost, inverter part-load behaviour and parasitic fans and pumps. Model
switches and constants come from the system section of the config.

Examples:
  heatpumpcop breakdown --outdoor -2 --flow 45 --load 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := c.cfg.Inputs()
			if !cmd.Flags().Changed("outdoor") {
				outdoor = in.OutdoorTemperature
			}
			if !cmd.Flags().Changed("flow") {
				flow = in.FlowTemperature
			}
			if !cmd.Flags().Changed("load") {
				load = c.cfg.System.LoadKW
			}

			b, err := heatpump.Breakdown(outdoor, flow, load, c.cfg.SystemParams())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Outdoor\t%.1f °C\n", outdoor)
			fmt.Fprintf(w, "Flow\t%.1f °C\n", flow)
			fmt.Fprintf(w, "Heat load\t%.1f kW\n", load)
			fmt.Fprintf(w, "Evaporator\t%.1f °C\n", b.EvaporatorTemperature)
			fmt.Fprintf(w, "Condenser\t%.1f °C\n", b.CondenserTemperature)
			fmt.Fprintf(w, "Lift\t%.1f K\n", b.Lift())
			fmt.Fprintf(w, "Carnot COP\t%.2f\n", b.CarnotCOP)
			fmt.Fprintf(w, "Raw COP\t%.2f\n", b.RawCOP)
			fmt.Fprintf(w, "Defrost factor\t%.3f\n", b.DefrostPenalty)
			fmt.Fprintf(w, "Load factor\t%.2f\n", b.LoadFactor)
			fmt.Fprintf(w, "Inverter correction\t%.3f\n", b.InverterCorrection)
			fmt.Fprintf(w, "Compressor power\t%.3f kW\n", b.CompressorPower)
			fmt.Fprintf(w, "Parasitic power\t%.3f kW\n", b.ParasiticPower)
			fmt.Fprintf(w, "Electrical power\t%.3f kW\n", b.ElectricalPower)
			fmt.Fprintf(w, "System COP\t%.2f (%s)\n", b.COP, heatpump.RateCOP(b.COP))
			fmt.Fprintf(w, "Loss vs Carnot\t%.1f%%\n", b.EfficiencyLoss)
			return w.Flush()
		},
	}
	cmd.Flags().Float64VarP(&outdoor, "outdoor", "o", 0, "outdoor temperature in °C (default from config)")
	cmd.Flags().Float64Var(&flow, "flow", 0, "water flow temperature in °C (default from config)")
	cmd.Flags().Float64Var(&load, "load", 0, "heat load in kW (default from config)")
	return cmd
}
