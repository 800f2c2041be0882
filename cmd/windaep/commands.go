package main

import (
	"github.com/spf13/cobra"

	"github.com/windaep/windaep/internal/auth"
)

func fetchCmd(opts *globalOptions) *cobra.Command {
	var job jobOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download ERA5 wind components into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, opts, &job)
		},
	}
	job.bind(cmd)
	return cmd
}

func estimateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [field-file]",
		Short: "Estimate the 10 m and 100 m AEP of a single point time series",
		Long: "Estimate reads a JSON or CSV wind field holding one point, sorts each " +
			"height's speeds and estimates the annual energy production.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, opts, args[0])
		},
	}
}

func spatialCmd(opts *globalOptions) *cobra.Command {
	var q pointOptions

	cmd := &cobra.Command{
		Use:   "spatial [field-file]",
		Short: "Estimate the AEP at the grid cell nearest to a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpatial(cmd, opts, &q, args[0])
		},
	}
	q.bind(cmd)
	cmd.Flags().BoolVar(&q.strict, "strict", false, "fail for points outside the grid instead of clamping")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func sweepCmd(opts *globalOptions) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "sweep [field-file]",
		Short: "Estimate the AEP of every grid cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts, args[0], workers)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent cells (default: GOMAXPROCS)")
	return cmd
}

func statsCmd(opts *globalOptions) *cobra.Command {
	var q pointOptions

	cmd := &cobra.Command{
		Use:   "stats [field-file]",
		Short: "Describe the wind speeds of one cell and fit a Weibull distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts, &q, args[0])
		},
	}
	q.bind(cmd)
	return cmd
}

func reportCmd(opts *globalOptions) *cobra.Command {
	var (
		job       jobOptions
		fieldFile string
		enqueue   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Retrieve, analyse and write a PDF report",
		Long: "Report runs a report job locally. With --field the wind data is read " +
			"from a file instead of being retrieved; with --enqueue the job is " +
			"published to the worker topic instead of being run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case enqueue != "":
				return runEnqueue(cmd, opts, &job, enqueue)
			case fieldFile != "":
				return runLocalReport(cmd, opts, &job, fieldFile)
			default:
				return runReport(cmd, opts, &job)
			}
		},
	}
	job.bind(cmd)
	cmd.Flags().StringVar(&fieldFile, "field", "", "analyse this JSON or CSV wind field instead of retrieving one")
	cmd.Flags().StringVar(&enqueue, "enqueue", "", "publish the job to this Pub/Sub topic")
	cmd.Flags().StringVar(&job.name, "name", "", "report file name")
	return cmd
}

func turbineCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turbine",
		Short: "Inspect the turbine power model",
	}

	var from, to int
	curve := &cobra.Command{
		Use:   "curve",
		Short: "Print power and thrust coefficient at integer wind speeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTurbineCurve(cmd, opts, from, to)
		},
	}
	curve.Flags().IntVar(&from, "from", 4, "first wind speed in m/s")
	curve.Flags().IntVar(&to, "to", 24, "last wind speed in m/s")

	cmd.AddCommand(curve)
	return cmd
}

func tokenCmd(opts *globalOptions) *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue a bearer token for the turbine admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, opts, subject, role)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "token role")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
