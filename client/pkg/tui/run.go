package tui

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/bryantinsley/arena/client/pkg/coordinator"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the program and blocks until the user quits or ctx is done.
// Any in-flight chat is cancelled on exit.
func Run(ctx context.Context, c *coordinator.Coordinator, opts Options) error {
	m := initialModel(ctx, c, opts)
	defer m.unsubscribe()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Headless {
		// No tty: feed empty input and draw to stderr.
		progOpts = append(progOpts, tea.WithInput(strings.NewReader("")), tea.WithOutput(os.Stderr))
	} else {
		progOpts = append(progOpts, tea.WithAltScreen())
		if opts.Mouse {
			progOpts = append(progOpts, tea.WithMouseCellMotion())
		}
	}

	m.logger.Info("tui starting", "headless", opts.Headless, "mouse", opts.Mouse)
	_, err := tea.NewProgram(m, progOpts...).Run()
	if c != nil {
		c.Reset()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
