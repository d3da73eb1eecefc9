// mock-backend serves the chatbot relay API from memory so the arena client
// can be developed and tested without real LLM providers.
//
// Supported modes (via MOCK_BACKEND_MODE env var or -mode):
// - happy:    two agents that answer after a short delay (default).
// - scripted: fast, slow, flaky and silent agents covering every outcome.
// - error:    every agent fails with an error response.
// - stuck:    no agent ever answers, so the client times out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryantinsley/arena/client/pkg/logging"
	"github.com/bryantinsley/arena/client/pkg/mockbackend"
)

const version = "mock-backend v0.1.0"

func main() {
	os.Exit(run(os.Stdout, os.Getenv, os.Args[1:]))
}

func run(w io.Writer, getEnv func(string) string, args []string) int {
	fs := flag.NewFlagSet("mock-backend", flag.ContinueOnError)
	fs.SetOutput(w)

	addr := fs.String("addr", ":3000", "listen address")
	mode := fs.String("mode", "", "agent mode: happy, scripted, error, stuck")
	showVersion := fs.Bool("version", false, "show version")
	listAgents := fs.Bool("list-agents", false, "print the agent catalog for the mode and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(w, version)
		return 0
	}

	if *mode == "" {
		*mode = getEnv("MOCK_BACKEND_MODE")
	}
	agents, err := mockbackend.AgentsForMode(*mode)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return 2
	}

	if *listAgents {
		for _, a := range agents {
			fmt.Fprintf(w, "%-8s %-16s delay=%s\n", a.Key, a.Label(), a.Delay)
		}
		return 0
	}

	logger := logging.New(w, getEnv("MOCK_BACKEND_LOG_LEVEL"))
	srv := mockbackend.New(mockbackend.WithAgents(agents), mockbackend.WithLogger(logger))
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, *addr, srv.Handler(), logger); err != nil {
		logger.Error("server failed", "error", err)
		return 1
	}
	return 0
}

// serve runs until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", "addr", addr, "base_path", mockbackend.BasePath)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("mock backend shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}
