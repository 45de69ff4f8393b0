package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lanssh/internal/config"
	"lanssh/internal/discover"
	"lanssh/internal/logging"
	"lanssh/internal/tui"
)

var (
	flagConfig   string
	flagLogLevel string
	flagPlain    bool
	flagPort     int
	flagPing     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for SSH hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.ProbePort = flagPort
		}
		if cmd.Flags().Changed("ping") {
			cfg.PingLatency = flagPing
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}

		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		opts := cfg.Options()
		opts.Logger = logger
		manager, err := discover.NewManager(opts)
		if err != nil {
			return err
		}

		if flagPlain {
			return runPlainScan(cmd.Context(), manager)
		}
		return runPickerScan(cmd.Context(), manager)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping <host>",
	Short: "Measure one ICMP round trip to a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		rtt, ok := discover.Ping(ctx, args[0], 3*time.Second)
		if !ok {
			return fmt.Errorf("%s did not answer", args[0])
		}
		fmt.Printf("%s answered in %dms\n", args[0], int(rtt/time.Millisecond))
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	scanCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log verbosity (debug, info, warn, error)")
	scanCmd.Flags().BoolVar(&flagPlain, "plain", false, "stream results as text instead of the interactive picker")
	scanCmd.Flags().IntVar(&flagPort, "port", discover.DefaultProbePort, "TCP port swept across the subnet")
	scanCmd.Flags().BoolVar(&flagPing, "ping", false, "measure ICMP latency for Bonjour-only hosts")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pingCmd)
}

// runPlainScan consumes one full session and prints events as they
// arrive, followed by the aggregated host list.
func runPlainScan(ctx context.Context, manager *discover.Manager) error {
	agg := discover.NewAggregator()
	events := manager.Start(ctx)
	var permissionDenied bool

	for ev := range events {
		switch ev.Kind {
		case discover.EventScanningStarted:
			fmt.Println("scanning…")
		case discover.EventHostFound:
			if agg.Apply(ev) && ev.Host != nil {
				fmt.Printf("  found %s (%s) via %s\n", ev.Host.Key(), ev.Host.DisplayName, ev.Source)
			}
		case discover.EventPermissionDenied:
			permissionDenied = true
		case discover.EventFailed:
			fmt.Printf("  %s source failed: %s\n", ev.Source, ev.Message)
		}
	}

	hosts := agg.Hosts()
	fmt.Printf("\n%d host(s) found\n", len(hosts))
	for _, host := range hosts {
		line := fmt.Sprintf("  %-24s %s", host.DisplayName, host.Key())
		if host.LatencyMs > 0 {
			line += fmt.Sprintf("  %dms", host.LatencyMs)
		}
		if host.Manufacturer != "" {
			line += "  " + host.Manufacturer
		}
		fmt.Println(line)
	}
	if permissionDenied {
		return errors.New("local network browsing was denied; only the TCP sweep ran")
	}
	return nil
}

// runPickerScan runs the interactive picker and prints an ssh command
// line for the chosen host.
func runPickerScan(ctx context.Context, manager *discover.Manager) error {
	model := tui.New(ctx, manager)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}
	if host := model.Selected(); host != nil {
		if host.Port != 22 {
			fmt.Printf("ssh -p %d %s\n", host.Port, host.Host)
		} else {
			fmt.Printf("ssh %s\n", host.Host)
		}
	}
	return nil
}
