package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/component-base/cli/globalflag"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"
	"k8s.io/klog/v2"

	"visioniq.io/visioniq/cmd/visioniq/app/options"
	"visioniq.io/visioniq/internal/poller"
	"visioniq.io/visioniq/pkg/log"
)

const (
	commandName = "visioniq"
	commandDesc = `visioniq polls a vehicle telematics service within a daily request budget,
records every reading to an append-only CSV log, exposes the latest values
as Prometheus gauges and serves charts and a location map over HTTP.

Settings can be given as flags or through the BLUELINK* environment
variables, also read from a .env file in the working directory.`
)

func NewVisionIQCommand(ctx context.Context) *cobra.Command {
	opts := options.NewVisionIQOptions()

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Vehicle telematics poller and report server",
		Long:         commandDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Complete(cmd.Flags()); err != nil {
				return err
			}
			log.Init(opts.Log)
			klog.SetLogger(log.Std().Logr())
			return nil
		},
	}

	fss := opts.Flags()
	globalflag.AddGlobalFlags(fss.FlagSet("global"), cmd.Name())
	for _, f := range fss.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.AddCommand(
		newServeCommand(ctx, opts),
		newPollCommand(ctx, opts),
		newHistoryCommand(opts),
	)

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	return cmd
}

func newServeCommand(ctx context.Context, opts *options.VisionIQOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and reports, polling the vehicle when enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			m, err := cfg.NewMonitor(ctx)
			if err != nil {
				return fmt.Errorf("failed to create monitor: %w", err)
			}
			return m.Run(ctx)
		},
	}
}

func newPollCommand(ctx context.Context, opts *options.VisionIQOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run a single poll cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			m, err := cfg.NewMonitor(ctx)
			if err != nil {
				return fmt.Errorf("failed to create monitor: %w", err)
			}

			sample, err := m.PollOnce(ctx)
			if errors.Is(err, poller.ErrNotAvailable) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sample)
			return err
		},
	}
}
