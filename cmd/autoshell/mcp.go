package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codrblog/autoshell"
	"github.com/codrblog/autoshell/pkg/adapters/mcp"
	"github.com/codrblog/autoshell/pkg/stream"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts autoshell as an MCP Server, so AI agents can delegate shell tasks to it.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		// Nobody subscribes to MCP runs; the transcript is the tool result.
		orch, err := a.orchestrator(stream.Nop{})
		if err != nil {
			return err
		}
		srv := mcp.NewServer(orch, a.builder, a.sessions, strings.TrimSpace(autoshell.Version), a.logger)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			a.logger.Info("Starting autoshell MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf(":%d", port)
			if err := srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port)); err != nil {
				return err
			}
			a.logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
