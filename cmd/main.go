package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"salesdesk/internal/adapters/config"
	"salesdesk/internal/bootstrap"
	"salesdesk/internal/services/availability"
	"salesdesk/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salesdesk",
		Short:        "Scheduling and onboarding tools for the sales assistant",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and background workers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		newAvailabilityCmd(),
	)
	return root
}

// serve runs until SIGINT/SIGTERM or a fatal server error
func serve() error {
	c := bootstrap.NewContainer()
	c.MustInit()
	defer func() { _ = logger.Sync() }()

	if err := c.Start(); err != nil {
		c.Log.Errorw("Startup failed", "error", err)
		c.Shutdown()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		c.Log.Infow("Shutdown signal received", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Warn("Application context cancelled")
	}

	c.Shutdown()
	return nil
}

func newAvailabilityCmd() *cobra.Command {
	var (
		at        string
		exclude   []string
		recommend bool
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print the availability snapshot for an instant as JSON",
		Example: `  salesdesk availability
  salesdesk availability --at 2026-03-29T18:30:00Z --exclude immediate --recommend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
				return err
			}

			svc, err := bootstrap.ProvideAvailability(cfg, nil, logger.Get())
			if err != nil {
				return err
			}

			var instant time.Time
			if strings.TrimSpace(at) != "" {
				instant, err = time.Parse(time.RFC3339, strings.TrimSpace(at))
				if err != nil {
					return fmt.Errorf("--at: expected RFC3339 timestamp: %w", err)
				}
			}
			excluded := availability.ParseExclusions(exclude)

			var out interface{} = svc.Check(instant, excluded)
			if recommend {
				out = svc.Recommend(instant, excluded)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "instant to evaluate (RFC3339); defaults to now")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "offer kinds the lead already declined")
	cmd.Flags().BoolVar(&recommend, "recommend", false, "print the scheduling recommendation instead")
	return cmd
}
