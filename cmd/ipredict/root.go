package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NERVsystems/ipredict/pkg/config"
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/version"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	debug      bool
	lat        float64
	lng        float64
	latSet     bool
	lngSet     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ipredict",
		Short: "Property price prediction from a map, served over MCP",
		Long: `ipredict drops a pin on a map of London, lists the nearest properties from
the valuation backend, collects property details and requests a price
prediction. Running it without a subcommand is the same as "ipredict serve".`,
		Version:       version.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.latSet = cmd.Flags().Changed("lat")
			opts.lngSet = cmd.Flags().Changed("lng")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.Float64Var(&opts.lat, "lat", 0, "starting latitude, instead of IP geolocation")
	pf.Float64Var(&opts.lng, "lng", 0, "starting longitude, instead of IP geolocation")

	cmd.AddCommand(
		newServeCommand(opts),
		newVersionCommand(),
		newGenerateConfigCommand(opts),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// devicePosition returns the position given with --lat/--lng, or nil when
// the flags were not both set.
func (o *rootOptions) devicePosition() *geo.Location {
	if !o.latSet || !o.lngSet {
		return nil
	}
	return &geo.Location{Lat: o.lat, Lng: o.lng}
}

// newLogger builds the process logger: text to w, at debug level when
// --debug is given and at the configured level otherwise.
func newLogger(w io.Writer, cfg *config.Config, debug bool) *slog.Logger {
	level := cfg.LogLevel()
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
