package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ayusman/ghostglove/internal/config"
	"github.com/ayusman/ghostglove/internal/store"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show how often each key was sent",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySession, "session", "", "only count keys from this session ID")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("history is disabled: store.path is empty")
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	counts, err := st.Keystrokes().CountByLabel(historySession)
	if err != nil {
		return fmt.Errorf("failed to count keystrokes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(counts) == 0 {
		fmt.Fprintln(out, "no keys sent yet")
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-8s %6s", "KEY", "COUNT")))
	for _, c := range counts {
		fmt.Fprintf(out, "%-8s %6d\n", c.Label, c.Count)
	}
	return nil
}
