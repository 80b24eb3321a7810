package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpotier/lmpdiff/pkg/cfg"
	"github.com/kpotier/lmpdiff/pkg/diffusion"
	"github.com/kpotier/lmpdiff/pkg/plot"
)

type flags struct {
	config        string
	file          string
	timeStep      int
	stepInterval  float64
	divisor       float64
	method        string
	fitStart      int
	fitEnd        int
	columns       []int
	headerColumns bool
	msdOut        string
	plot          bool
	plotFile      string
	verbose       bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("diffusion: ")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "diffusion:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "diffusion",
		Short: "self-diffusion coefficient from a Lammps trajectory",
		Long: "diffusion reads a Lammps dump, calculates the mean squared displacement of\n" +
			"the particles with respect to the first configuration and prints the\n" +
			"diffusion coefficient slope/divisor with 6 decimals.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}

	d := cfg.Default()
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "config file path (yaml)")
	fl.StringVar(&f.file, "file", "", "path of the trajectory dump (required)")
	fl.IntVar(&f.timeStep, "time_step", d.TimeStep, "simulation steps between two recorded configurations")
	fl.Float64Var(&f.stepInterval, "step_interval", d.StepInterval, "physical time of one simulation step")
	fl.Float64Var(&f.divisor, "divisor", d.Divisor, "divisor applied to the MSD slope")
	fl.StringVar(&f.method, "method", string(d.Method), "estimation method (fit or endpoint)")
	fl.IntVar(&f.fitStart, "fit-start", d.FitStart, "first configuration used by the fit")
	fl.IntVar(&f.fitEnd, "fit-end", d.FitEnd, "configuration after the last one used by the fit (0 = all)")
	fl.IntSliceVar(&f.columns, "columns", d.Columns[:], "columns of x, y and z in a record")
	fl.BoolVar(&f.headerColumns, "header-columns", d.HeaderColumns, "read the coordinate columns from the ITEM: ATOMS header")
	fl.StringVar(&f.msdOut, "msd-out", "", "write the time and MSD table into this file")
	fl.BoolVar(&f.plot, "plot", false, "draw the MSD against time on stderr")
	fl.StringVar(&f.plotFile, "plot-file", "", "save the MSD against time chart (png, svg, pdf)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log the progress on stderr")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	c, err := merge(cmd, f)
	if err != nil {
		return err
	}

	log.SetOutput(io.Discard)
	if c.Verbose {
		log.SetOutput(cmd.ErrOrStderr())
	}

	res, err := c.Diffusion()
	if err != nil {
		return err
	}
	log.Printf("%d of %d lines skipped as malformed records\n", res.Skipped, res.Lines)

	if f.plot {
		if err := plot.Terminal(cmd.ErrOrStderr(), res.MSD, res.Times); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}
	if f.plotFile != "" {
		log.Printf("Saving the chart into `%s`\n", f.plotFile)
		if err := plot.File(f.plotFile, res.MSD, res.Times); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", res.Fit.Coefficient)
	return err
}

// merge builds the configuration. Values of the config file are used unless
// the flag is set on the command line.
func merge(cmd *cobra.Command, f *flags) (*cfg.Cfg, error) {
	c := cfg.Default()
	if f.config != "" {
		var err error
		c, err = cfg.Load(f.config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	set := func(name string) bool {
		return f.config == "" || cmd.Flags().Changed(name)
	}

	if set("file") {
		c.Traj = f.file
	}
	if set("time_step") {
		c.TimeStep = f.timeStep
	}
	if set("step_interval") {
		c.StepInterval = f.stepInterval
	}
	if set("divisor") {
		c.Divisor = f.divisor
	}
	if set("method") {
		c.Method = diffusion.Method(f.method)
	}
	if set("fit-start") {
		c.FitStart = f.fitStart
	}
	if set("fit-end") {
		c.FitEnd = f.fitEnd
	}
	if set("columns") {
		if len(f.columns) != 3 {
			return nil, fmt.Errorf("--columns needs 3 values, got %d", len(f.columns))
		}
		copy(c.Columns[:], f.columns)
	}
	if set("header-columns") {
		c.HeaderColumns = f.headerColumns
	}
	if set("msd-out") {
		c.MSDOut = f.msdOut
	}
	if set("verbose") {
		c.Verbose = f.verbose
	}

	if c.Traj == "" {
		return nil, fmt.Errorf("required flag \"file\" not set")
	}

	return c, nil
}
