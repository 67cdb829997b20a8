package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

func newEstimateCmd(c *cli) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the COP at one operating point",
		Long: `Compute the Carnot COP and the realistic COP for one outdoor and indoor
temperature.

Examples:
  heatpumpcop estimate
  heatpumpcop estimate --outdoor -7 --indoor 21 --derating 0.45`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := flags.apply(cmd, c.cfg.Inputs())
			p, err := heatpump.Estimate(in.OutdoorTemperature, in.IndoorTemperature, in.DeratingFactor)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Outdoor\t%.1f °C\n", in.OutdoorTemperature)
			fmt.Fprintf(w, "Indoor\t%.1f °C\n", in.IndoorTemperature)
			fmt.Fprintf(w, "Derating\t%.2f\n", in.DeratingFactor)
			fmt.Fprintf(w, "Carnot COP\t%.2f\n", p.CarnotCOP)
			fmt.Fprintf(w, "COP\t%.2f (%s)\n", p.COP, heatpump.RateCOP(p.COP))
			return w.Flush()
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newConsumptionCmd(c *cli) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "consumption",
		Short: "Compare heat pump and gas boiler consumption",
		Long: `Estimate the electricity a heat pump needs to deliver a heat demand and
the gas a boiler would burn for the same demand. With a tariff enabled in the
config the running costs are compared too.

Examples:
  heatpumpcop consumption --demand 12
  heatpumpcop consumption --outdoor -5 --efficiency 0.85`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := flags.apply(cmd, c.cfg.Inputs())
			s, err := c.session(in)
			if err != nil {
				return err
			}
			ev, err := s.Evaluate()
			if err != nil {
				return err
			}
			cons := ev.Consumption

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Heat demand\t%.1f kWh\n", cons.HeatDemand)
			fmt.Fprintf(w, "COP\t%.2f\n", ev.COP)
			fmt.Fprintf(w, "Heat pump (electricity)\t%.2f kWh\n", cons.Electrical)
			fmt.Fprintf(w, "Gas boiler (gas)\t%.2f kWh\n", cons.Boiler)
			fmt.Fprintf(w, "Energy saved\t%.2f kWh (%.0f%%)\n", cons.Savings(), (1-cons.Ratio())*100)
			if ev.Cost != nil {
				fmt.Fprintf(w, "Heat pump cost\t%s %s\n", ev.Cost.HeatPumpCost.StringFixed(2), ev.Cost.Currency)
				fmt.Fprintf(w, "Gas boiler cost\t%s %s\n", ev.Cost.BoilerCost.StringFixed(2), ev.Cost.Currency)
				fmt.Fprintf(w, "Cost saved\t%s %s\n", ev.Cost.Savings.StringFixed(2), ev.Cost.Currency)

				tr, err := c.cfg.TariffModel()
				if err != nil {
					return err
				}
				if be, err := tr.BreakEvenCOP(in.BoilerEfficiency); err == nil {
					fmt.Fprintf(w, "Break-even COP\t%.2f\n", be)
				}
			}
			return w.Flush()
		},
	}
	flags.register(cmd, true)
	return cmd
}
