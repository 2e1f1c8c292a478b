// Package mcp exposes autoshell as a Model Context Protocol server, so other
// agents can hand it shell tasks.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/session"
	"github.com/codrblog/autoshell/pkg/task"
)

const preambleURI = "autoshell://preamble"

// RunResponse is the structured result of the run_task tool.
type RunResponse struct {
	TaskID     string           `json:"task_id" jsonschema_description:"Identifier of the finished run"`
	Transcript []domain.Message `json:"transcript" jsonschema_description:"Messages produced after the seed prompt"`
	Error      string           `json:"error,omitempty" jsonschema_description:"Completion failure, if any"`
}

// TaskRunner runs a task to completion.
type TaskRunner interface {
	Try(ctx context.Context, task, taskID string) (string, error)
}

// Server wraps the orchestrator and exposes it as an MCP server.
type Server struct {
	runner    TaskRunner
	builder   *session.Builder
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(runner TaskRunner, builder *session.Builder, sessions *session.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		runner:    runner,
		builder:   builder,
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("autoshell-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: run_task
	runTool := mcp.NewTool("run_task",
		mcp.WithDescription("Run a shell task to completion. The model proposes commands, autoshell executes them and feeds the output back."),
		mcp.WithString("task", mcp.Required(), mcp.Description("Task text, optionally preceded by 'File:' headers and a '---' separator")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunTask))

	// TOOL: cancel_task
	s.mcpServer.AddTool(mcp.NewTool("cancel_task",
		mcp.WithDescription("Cancel a running task."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Identifier returned by run_task")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["task_id"].(string)
		return s.cancel(id), nil
	})

	// TOOL: set_preamble
	s.mcpServer.AddTool(mcp.NewTool("set_preamble",
		mcp.WithDescription("Replace the system preamble used by new tasks."),
		mcp.WithString("text", mcp.Required(), mcp.Description("New preamble")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, _ := request.GetArguments()["text"].(string)
		return s.setPreamble(text), nil
	})
}

func (s *Server) handleRunTask(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	input, _ := args["task"].(string)

	clean, err := task.Sanitize(input, task.DefaultMaxSize)
	if err != nil {
		s.logger.Warn("MCP run_task: input rejected", "error", err, "size", len(input))
		return RunResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	t := task.NewParser(s.logger).Parse(clean)
	if t.Text == "" {
		return RunResponse{}, domain.ErrEmptyTask
	}

	id := uuid.NewString()
	runCtx, release := s.sessions.Start(ctx, id)
	defer release()

	resp := RunResponse{TaskID: id, Transcript: []domain.Message{}}
	out, err := s.runner.Try(runCtx, t.Prompt(), id)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	if out != "" {
		if err := json.Unmarshal([]byte(out), &resp.Transcript); err != nil {
			return RunResponse{}, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return resp, nil
}

func (s *Server) cancel(id string) *mcp.CallToolResult {
	if err := s.sessions.Cancel(id); err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText("cancel requested for " + id)
}

func (s *Server) setPreamble(text string) *mcp.CallToolResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return mcp.NewToolResultError("empty preamble")
	}
	s.builder.SetPreamble(text)
	s.logger.Info("preamble updated", "size", len(text))
	return mcp.NewToolResultText("preamble updated")
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(preambleURI, "Current System Preamble",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      preambleURI,
				MIMEType: "text/plain",
				Text:     s.builder.Preamble(),
			},
		}, nil
	})
}
