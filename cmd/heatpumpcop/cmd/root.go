// Package cmd provides the CLI commands for heatpumpcop.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatpumpcop/cmd/app"
	"github.com/Agrid-Dev/heatpumpcop/internal/logging"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

// cli carries what the persistent flags resolve to.
type cli struct {
	cfgFile string
	verbose bool

	cfg app.Config
	log *zap.Logger
}

// Execute runs the CLI
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "heatpumpcop",
		Short: "Estimate the COP of an air-source heat pump",
		Long: `heatpumpcop estimates the coefficient of performance of an air-source
heat pump from the outdoor and indoor temperatures, compares its electrical
consumption with a gas boiler and plots COP against outdoor temperature.

Examples:
  heatpumpcop estimate --outdoor -5 --indoor 21
  heatpumpcop consumption --demand 12
  heatpumpcop sweep --from -20 --to 15 --steps 8 --format csv
  heatpumpcop plot --out cop.png
  heatpumpcop serve --config config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newEstimateCmd(c),
		newConsumptionCmd(c),
		newSweepCmd(c),
		newSeasonalCmd(c),
		newBreakdownCmd(c),
		newPlotCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := app.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	c.cfg = cfg
	c.log = log
	c.log.Debug("config loaded", zap.String("path", c.cfgFile), zap.String("device_id", cfg.DeviceID))
	return nil
}

// session builds a session from the config with in replacing its inputs.
func (c *cli) session(in session.Inputs) (*session.Session, error) {
	opts, err := c.cfg.SessionOptions()
	if err != nil {
		return nil, err
	}
	return session.New(in, opts...)
}

// inputFlags overrides the configured session inputs for one command.
type inputFlags struct {
	outdoor    float64
	indoor     float64
	demand     float64
	derating   float64
	efficiency float64
}

func (f *inputFlags) register(cmd *cobra.Command, withConsumption bool) {
	cmd.Flags().Float64VarP(&f.outdoor, "outdoor", "o", 0, "outdoor temperature in °C (default from config)")
	cmd.Flags().Float64VarP(&f.indoor, "indoor", "i", 0, "indoor temperature in °C (default from config)")
	cmd.Flags().Float64VarP(&f.derating, "derating", "d", 0, "fraction of the Carnot COP reached, in [0, 1] (default from config)")
	if withConsumption {
		cmd.Flags().Float64Var(&f.demand, "demand", 0, "heat demand in kWh (default from config)")
		cmd.Flags().Float64Var(&f.efficiency, "efficiency", 0, "gas boiler efficiency, in (0, 1] (default from config)")
	}
}

func (f *inputFlags) apply(cmd *cobra.Command, in session.Inputs) session.Inputs {
	flags := cmd.Flags()
	if flags.Changed("outdoor") {
		in.OutdoorTemperature = f.outdoor
	}
	if flags.Changed("indoor") {
		in.IndoorTemperature = f.indoor
	}
	if flags.Changed("derating") {
		in.DeratingFactor = f.derating
	}
	if flags.Changed("demand") {
		in.HeatDemand = f.demand
	}
	if flags.Changed("efficiency") {
		in.BoilerEfficiency = f.efficiency
	}
	return in
}
