package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codrblog/autoshell"
	"github.com/codrblog/autoshell/internal/presentation/tui"
	"github.com/codrblog/autoshell/pkg/adapters/git"
	"github.com/codrblog/autoshell/pkg/adapters/github"
	httpAdapter "github.com/codrblog/autoshell/pkg/adapters/http"
	"github.com/codrblog/autoshell/pkg/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts autoshell in server mode: tasks are submitted over HTTP or through
GitHub issue webhooks, and their progress is streamed as server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}

		streams := stream.NewBroadcaster(stream.WithLogger(a.logger))
		orch, err := a.orchestrator(streams)
		if err != nil {
			return err
		}

		repo := git.New(git.Config{
			Workdir:     a.cfg.GitHub.Workdir,
			Token:       a.cfg.GitHub.Token.Value(),
			AuthorName:  a.cfg.GitHub.AuthorName,
			AuthorEmail: a.cfg.GitHub.AuthorEmail,
		}, git.WithLogger(a.logger))

		translator := github.NewTranslator(github.Config{
			Secret: a.cfg.GitHub.WebhookSecret.Value(),
			Users:  a.cfg.GitHub.Users,
			Orgs:   a.cfg.GitHub.Orgs,
		}, orch, a.history, repo,
			github.WithLogger(a.logger),
			github.WithSessions(a.sessions),
		)
		if !a.cfg.GitHub.WebhookSecret.IsSet() {
			a.logger.Warn("github.webhook_secret is empty; webhook deliveries will be rejected")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handler, api, err := httpAdapter.NewHandler(ctx, httpAdapter.Config{
			Runner:      orch,
			Builder:     a.builder,
			Sessions:    a.sessions,
			Streams:     streams,
			Webhook:     translator,
			Metrics:     a.metrics,
			Logger:      a.logger,
			Version:     strings.TrimSpace(autoshell.Version),
			MaxTaskSize: a.cfg.Server.MaxTaskSize,
			TrustProxy:  a.cfg.Server.TrustProxy,
		})
		if err != nil {
			return fmt.Errorf("failed to build HTTP handler: %w", err)
		}

		srv := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		// Cancel HTTP runs as soon as shutdown starts, so their watchers get
		// cancel and history and the open event streams can drain.
		srv.RegisterOnShutdown(api.Stop)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(autoshell.Version))
			a.logger.Info("autoshell server listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			a.logger.Info("shutdown signal received")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("graceful shutdown did not complete", "timeout", a.cfg.Server.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					a.logger.Error("error killing server", "error", err)
				}
			}
			api.Wait()
			translator.Wait()
			a.logger.Info("autoshell server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Override server.addr")
}
