package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/ghostglove/internal/config"
	"github.com/ayusman/ghostglove/internal/plugin"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List key plugins found in the plugin directory",
		Args:  cobra.NoArgs,
		RunE:  runPluginsCmd,
	}
}

func runPluginsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Plugins.Dir == "" {
		fmt.Fprintln(out, "plugins are disabled")
		return nil
	}

	mgr := plugin.NewManager(cfg.Plugins.Dir)
	if err := mgr.Discover(); err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}

	plugins := mgr.List()
	if len(plugins) == 0 {
		fmt.Fprintf(out, "no plugins in %s\n", mgr.PluginDir())
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-16s %-8s %-10s %s", "NAME", "VERSION", "EVENTS", "DESCRIPTION")))
	for _, p := range plugins {
		m := p.Manifest
		fmt.Fprintf(out, "%-16s %-8s %-10s %s\n", m.Name, m.Version, strings.Join(m.Events, ","), m.Description)
	}
	return nil
}
