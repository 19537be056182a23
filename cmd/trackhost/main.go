package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trackhost/internal/bootstrap"
	"trackhost/internal/platform/config"
	"trackhost/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "trackhost",
		Short:         "Body tracking plugin host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", ".", "directory holding trackhost.yaml, plugins and settings")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newPluginCmd(flags))
	root.AddCommand(newServiceCmd(flags))
	return root
}

func loadApp(flags *globalFlags) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.dataDir)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	return bootstrap.New(cfg, logging.New(level, os.Stderr))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive enabled plugins until interrupted or a plugin requests exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			addr := metricsAddr
			if addr == "" {
				addr = app.Config.MetricsAddr
			}
			ctx, stop := signalContext()
			defer stop()
			if err := app.Run(ctx, addr); err != nil {
				return err
			}
			if reason := app.ExitReason(); reason != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stopped: %s\n", reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the trackhost terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			ctx, stop := signalContext()
			defer stop()
			return bootstrap.RunTUI(ctx, app)
		},
	}
}

func newPluginCmd(flags *globalFlags) *cobra.Command {
	plugin := &cobra.Command{Use: "plugins", Aliases: []string{"plugin"}, Short: "Plugin operations"}

	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List discovered plugins with their load outcome and enablement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			plugins, err := app.PluginCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins found")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s@%s\tenabled=%t\toutcome=%s\n",
					p.ID, p.Kind, p.Name, p.Version, p.Enabled, p.Outcome)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "rescan",
		Short: "Discover plugins again and report every candidate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			report, err := app.PluginCLI.Rescan(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %d candidates\n", report.ScanID, len(report.Plugins))
			for _, p := range report.Plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s", p.Severity, p.Outcome, p.Kind, p.Path)
				if p.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\terror=%q", p.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			if len(report.Reenabled) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "re-enabled: %s\n", strings.Join(report.Reenabled, ", "))
			}
			return nil
		},
	})

	for _, enable := range []bool{true, false} {
		enable := enable
		use, short := "enable <plugin-id>", "Enable a provider"
		if !enable {
			use, short = "disable <plugin-id>", "Disable a provider unless it is the last of its kind"
		}
		plugin.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := loadApp(flags)
				if err != nil {
					return err
				}
				defer func() { _ = app.Close() }()
				toggle := app.PluginCLI.Enable
				if !enable {
					toggle = app.PluginCLI.Disable
				}
				result, err := toggle(context.Background(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", result.ID, result.Enabled)
				if result.Reverted {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "kept enabled: last %s provider\n", result.Kind)
				}
				return nil
			},
		})
	}

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Load every plugin and report its status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			results, err := app.PluginCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins found")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s kind=%s outcome=%s enabled=%t status=%d",
					r.ID, r.Kind, r.Outcome, r.Enabled, r.StatusCode)
				if r.StatusMessage != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " message=%q", r.StatusMessage)
				}
				if len(r.SupportedTrackers) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " trackers=%s", strings.Join(r.SupportedTrackers, ","))
				}
				if len(r.UnresolvedDependencies) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " unresolved=%s", strings.Join(r.UnresolvedDependencies, ","))
				}
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return plugin
}

func newServiceCmd(flags *globalFlags) *cobra.Command {
	service := &cobra.Command{Use: "service", Short: "Tracking service operations"}
	service.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Check the connection of the active tracking service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			report, err := app.PluginCLI.TestService(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) status=%d %s\n",
				report.ServiceName, report.ServiceID, report.StatusCode, report.StatusMessage)
			if report.Detail != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Detail)
			}
			return nil
		},
	})
	return service
}
