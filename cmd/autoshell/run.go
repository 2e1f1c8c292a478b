package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/codrblog/autoshell/internal/presentation/tui"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/codrblog/autoshell/pkg/stream"
	"github.com/codrblog/autoshell/pkg/task"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one task in the terminal",
	Long: `Runs a single task and prints the model's replies and command output as
they happen. The task is read from the arguments, or from stdin when none are given.

With --raw, events are written in the server-sent events format instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		input, err := readTask(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		clean, err := task.Sanitize(input, a.cfg.Server.MaxTaskSize)
		if err != nil {
			return err
		}
		t := task.NewParser(a.logger).Parse(clean)

		taskID := uuid.NewString()
		out := cmd.OutOrStdout()

		var publisher ports.Publisher
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			streams := stream.NewBroadcaster(stream.WithLogger(a.logger))
			unsubscribe, err := streams.Subscribe(taskID, stream.NewWriterSink(out))
			if err != nil {
				return err
			}
			defer unsubscribe()
			publisher = streams
		} else {
			profile := termenv.Ascii
			render := tui.Plain
			if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
				profile = termenv.ColorProfile()
				render = tui.NewRenderer()
			}
			publisher = tui.NewPrinter(out, render, profile)
		}

		orch, err := a.orchestrator(publisher)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctx, release := a.sessions.Start(ctx, taskID)
		defer release()

		if _, err := orch.Try(ctx, t.Prompt(), taskID); err != nil {
			return fmt.Errorf("task failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("raw", false, "Write events in the server-sent events format")
}

func readTask(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read task from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no task given: pass it as arguments or on stdin")
	}
	return string(data), nil
}
