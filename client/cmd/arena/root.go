package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/config"
	"github.com/bryantinsley/arena/client/pkg/coordinator"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/history"
	"github.com/bryantinsley/arena/client/pkg/logging"
	"github.com/bryantinsley/arena/client/pkg/tui"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every command. Zero values mean "not
// set", so config and env win.
type rootOptions struct {
	configPath   string
	apiURL       string
	pollInterval time.Duration
	chatTimeout  time.Duration
	noHistory    bool
	noMouse      bool
	headless     bool
	style        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "arena",
		Short: "Compare two AI agents side by side",
		Long: `arena sends each prompt to two agents through the chatbot relay and shows
their answers in parallel columns as they arrive.

Settings come from $ARENA_DIR/config.yaml (default ~/.arena), .env, ARENA_*
environment variables and finally flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $ARENA_DIR/config.yaml)")
	pf.StringVar(&opts.apiURL, "api-url", "", "backend base URL, including /chatbot")

	f := root.Flags()
	f.DurationVar(&opts.pollInterval, "poll-interval", 0, "chat status poll interval")
	f.DurationVar(&opts.chatTimeout, "chat-timeout", 0, "time budget per message")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record exchanges locally")
	f.BoolVar(&opts.noMouse, "no-mouse", false, "disable mouse support")
	f.BoolVar(&opts.headless, "headless", false, "run without a tty (draws to stderr)")
	f.StringVar(&opts.style, "style", "", "glamour style for answers")

	root.AddCommand(
		newHealthCmd(opts),
		newSessionsCmd(opts),
		newHistoryCmd(opts),
		newInitCmd(),
	)
	return root
}

// loadConfig merges config file, .env, env and flags, then validates.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.pollInterval > 0 {
		cfg.Chat.PollInterval = config.Duration(opts.pollInterval)
	}
	if opts.chatTimeout > 0 {
		cfg.Chat.Timeout = config.Duration(opts.chatTimeout)
	}
	if opts.noHistory {
		cfg.History.Enabled = false
	}
	if opts.noMouse {
		cfg.UI.Mouse = false
	}
	if opts.style != "" {
		cfg.UI.MarkdownStyle = opts.style
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) *gateway.Client {
	return gateway.New(cfg.APIURL,
		gateway.WithTimeout(cfg.RequestTimeout.Duration()),
		gateway.WithLogger(logger),
	)
}

// runTUI wires the application. Startup failures are shown inside the UI
// rather than returned, so the user sees them full screen.
func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, cfgErr := loadConfig(opts)
	if cfg == nil {
		cfg = config.Default(config.GetArenaDir())
	}

	logger, closeLog, err := logging.Setup(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		logger, closeLog = logging.Discard(), func() error { return nil }
	}
	defer closeLog()

	var initErr error
	if cfgErr != nil {
		initErr = &coordinator.InitError{Stage: "configuration", Err: cfgErr}
	}

	chatOpts := chat.Options{
		PollInterval: cfg.Chat.PollInterval.Duration(),
		Timeout:      cfg.Chat.Timeout.Duration(),
		Logger:       logger,
	}
	if initErr == nil && cfg.History.Enabled {
		store, err := history.NewSQLite(cfg.History.Path)
		if err != nil {
			initErr = &coordinator.InitError{Stage: "history store", Err: err}
		} else {
			defer store.Close()
			chatOpts.Recorder = store
		}
	}

	coord := coordinator.New(newClient(cfg, logger), coordinator.Options{
		Chat:   chatOpts,
		Logger: logger,
	})
	logger.Info("arena starting", "api_url", cfg.APIURL, "history", cfg.History.Enabled)

	return tui.Run(ctx, coord, tui.Options{
		MarkdownStyle: cfg.UI.MarkdownStyle,
		Mouse:         cfg.UI.Mouse,
		Headless:      opts.headless,
		Logger:        logger,
		InitErr:       initErr,
	})
}
