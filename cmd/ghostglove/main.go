// Package main provides the CLI entrypoint for ghostglove.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/ghostglove/internal/config"
)

var (
	configPath string

	runLeft     int
	runRight    int
	runServer   string
	runPeer     string
	runStrategy string
	runLogLevel string
	runTray     bool
	runHeadless bool

	historySession string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ghostglove",
		Short:         "Stereo-camera virtual keyboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to the TOML config file")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPluginsCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track the glove and type",
		Args:  cobra.NoArgs,
		RunE:  runRunCmd,
	}

	cmd.Flags().IntVar(&runLeft, "left", 0, "left camera device index")
	cmd.Flags().IntVar(&runRight, "right", 1, "right camera device index")
	cmd.Flags().StringVar(&runServer, "server", ":8080", "monitor HTTP address (empty disables)")
	cmd.Flags().StringVar(&runPeer, "peer", "", "receiver host:port that typed keys are sent to")
	cmd.Flags().StringVar(&runStrategy, "strategy", "nearest", "matching strategy: nearest or delta")
	cmd.Flags().StringVar(&runLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&runTray, "tray", false, "show a system tray icon")
	cmd.Flags().BoolVar(&runHeadless, "headless", false, "run without the console even on a terminal")

	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		logErrf("warning: %v\n", err)
	}
	return config.Encode(cmd.OutOrStdout(), cfg)
}

// loadRunConfig loads the config file and applies explicitly set run flags
// on top of it.
func loadRunConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	applyIntFlag(cmd, "left", &cfg.Camera.Left, runLeft)
	applyIntFlag(cmd, "right", &cfg.Camera.Right, runRight)
	applyStringFlag(cmd, "server", &cfg.Server.Addr, runServer)
	applyStringFlag(cmd, "peer", &cfg.Network.Peer, runPeer)
	applyStringFlag(cmd, "strategy", &cfg.Matcher.Strategy, runStrategy)
	applyStringFlag(cmd, "log-level", &cfg.Log.Level, runLogLevel)

	return cfg, cfg.Validate()
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func logErrf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
