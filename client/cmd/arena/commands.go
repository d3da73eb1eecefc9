package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bryantinsley/arena/client/pkg/config"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/history"
	"github.com/bryantinsley/arena/client/pkg/logging"
	"github.com/bryantinsley/arena/client/pkg/sessions"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const cliTimeout = 15 * time.Second

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable and healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client := newClient(cfg, logging.New(cmd.ErrOrStderr(), "warn"))

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			h, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("backend %s unreachable: %s", cfg.APIURL, gateway.Message(err))
			}
			if !h.Healthy() {
				return fmt.Errorf("backend %s reported status %q", cfg.APIURL, h.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend %s: %s\n", cfg.APIURL, h.Status)
			return nil
		},
	}
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions known to the backend, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := logging.New(cmd.ErrOrStderr(), "warn")
			ctrl := sessions.New(newClient(cfg, logger), logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			list, err := ctrl.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %s", gateway.Message(err))
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("PROJECT", "NAME", "CREATED", "ID")
			for _, s := range list {
				created := "-"
				if !s.CreatedAt.IsZero() {
					created = s.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				t.Row(s.ProjectTitle, s.Name, created, s.SessionID)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var sessionID string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show exchanges recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store, err := history.NewSQLite(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), history.ListOptions{SessionID: sessionID, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No recorded exchanges.")
				return nil
			}
			for _, ex := range list {
				fmt.Fprintf(out, "%s  session %s  (%s)\n> %s\n",
					ex.CreatedAt.Local().Format("2006-01-02 15:04:05"), ex.SessionID,
					ex.Elapsed.Round(time.Millisecond), ex.Message)
				for _, a := range ex.Answers {
					fmt.Fprintf(out, "  [%s] %-16s %-7s %6.2fs  $%.6f  %s\n",
						a.Column, a.AgentName, a.State, a.ProcessingTimeSeconds, a.CostUSD, excerpt(a.Text, 60))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "only show this session")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum exchanges to show")
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a documented config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.EnsureTemplate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", path)
			return nil
		},
	}
}

// excerpt flattens text to one line of at most n runes.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n-3]) + "..."
}
