package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

// rangeFlags overrides the configured sweep range.
type rangeFlags struct {
	from  float64
	to    float64
	steps int
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.from, "from", 0, "first outdoor temperature in °C (default from config)")
	cmd.Flags().Float64Var(&f.to, "to", 0, "last outdoor temperature in °C (default from config)")
	cmd.Flags().IntVar(&f.steps, "steps", 0, "number of evenly spaced points (default from config)")
}

func (f *rangeFlags) apply(cmd *cobra.Command, r heatpump.Range) heatpump.Range {
	if cmd.Flags().Changed("from") {
		r.From = f.from
	}
	if cmd.Flags().Changed("to") {
		r.To = f.to
	}
	if cmd.Flags().Changed("steps") {
		r.Steps = f.steps
	}
	return r
}

// resolve applies the flags and, unless --to is given, caps the warm end
// below indoorC.
func (f *rangeFlags) resolve(cmd *cobra.Command, r heatpump.Range, indoorC float64) (heatpump.Range, error) {
	r = f.apply(cmd, r)
	if cmd.Flags().Changed("to") {
		return r, nil
	}
	return r.Below(indoorC)
}

func newSweepCmd(c *cli) *cobra.Command {
	var (
		inputs inputFlags
		rng    rangeFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Tabulate COP across a range of outdoor temperatures",
		Long: `Estimate the Carnot and realistic COP at evenly spaced outdoor temperatures
for a fixed indoor target. Without --to the range ends just below the indoor
target. An explicit range stops at the first invalid point, for example when
the outdoor temperature reaches the indoor target.

Examples:
  heatpumpcop sweep
  heatpumpcop sweep --from -20 --to 15 --steps 8
  heatpumpcop sweep --format csv > cop.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := inputs.apply(cmd, c.cfg.Inputs())
			r, err := rng.resolve(cmd, c.cfg.Range(), in.IndoorTemperature)
			if err != nil {
				return err
			}
			pts, err := heatpump.SweepRange(r, in.IndoorTemperature, in.DeratingFactor)
			if err != nil {
				return err
			}
			return writePoints(cmd.OutOrStdout(), format, pts)
		},
	}
	inputs.register(cmd, false)
	rng.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, csv, json)")
	return cmd
}

type pointJSON struct {
	OutdoorTemperature float64 `json:"outdoor_temperature"`
	CarnotCOP          float64 `json:"carnot_cop"`
	COP                float64 `json:"cop"`
	Rating             string  `json:"rating"`
}

func writePoints(w io.Writer, format string, pts []heatpump.Point) error {
	switch format {
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Outdoor °C\tCarnot COP\tCOP\tRating\t")
		for _, p := range pts {
			fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%s\t\n", p.OutdoorTemperature, p.CarnotCOP, p.COP, heatpump.RateCOP(p.COP))
		}
		return tw.Flush()

	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"outdoor_temperature", "carnot_cop", "cop"}); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, p := range pts {
			rec := []string{
				strconv.FormatFloat(p.OutdoorTemperature, 'f', 4, 64),
				strconv.FormatFloat(p.CarnotCOP, 'f', 4, 64),
				strconv.FormatFloat(p.COP, 'f', 4, 64),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()

	case "json":
		out := make([]pointJSON, len(pts))
		for i, p := range pts {
			out[i] = pointJSON{
				OutdoorTemperature: p.OutdoorTemperature,
				CarnotCOP:          p.CarnotCOP,
				COP:                p.COP,
				Rating:             heatpump.RateCOP(p.COP).String(),
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return fmt.Errorf("unsupported format %q", format)
}
