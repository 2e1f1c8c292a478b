package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	prompt string
	out    string
	err    error
}

func (r *fakeRunner) Try(ctx context.Context, task, taskID string) (string, error) {
	r.prompt = task
	return r.out, r.err
}

func transcriptJSON(t *testing.T, msgs ...domain.Message) string {
	t.Helper()
	b, err := json.Marshal(msgs)
	require.NoError(t, err)
	return string(b)
}

func TestRunTask(t *testing.T) {
	runner := &fakeRunner{out: transcriptJSON(t, domain.Message{Role: domain.RoleAssistant, Content: "done"})}
	s := NewServer(runner, session.NewBuilder(""), session.NewManager(), "1.0.0", nil)

	resp, err := s.handleRunTask(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"task": "File: a.txt\n---\ncount lines",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.TaskID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, []domain.Message{{Role: domain.RoleAssistant, Content: "done"}}, resp.Transcript)
	assert.Equal(t, "count lines\n\nFiles: a.txt", runner.prompt)
	assert.Equal(t, 0, s.sessions.Running(), "run must be released")
}

func TestRunTask_CompletionFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("model down")}
	s := NewServer(runner, session.NewBuilder(""), session.NewManager(), "1.0.0", nil)

	resp, err := s.handleRunTask(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"task": "ls"})
	require.NoError(t, err)
	assert.Equal(t, "model down", resp.Error)
	assert.Empty(t, resp.Transcript)
}

func TestRunTask_RejectsInput(t *testing.T) {
	s := NewServer(&fakeRunner{}, session.NewBuilder(""), session.NewManager(), "1.0.0", nil)

	_, err := s.handleRunTask(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"task": "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyTask)

	_, err = s.handleRunTask(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"task": "\xff"})
	assert.Error(t, err)
}

func TestCancelAndPreamble(t *testing.T) {
	builder := session.NewBuilder("old")
	sessions := session.NewManager()
	s := NewServer(&fakeRunner{}, builder, sessions, "1.0.0", nil)

	// 1. Unknown task
	assert.True(t, s.cancel("missing").IsError)

	// 2. Running task
	ctx, release := sessions.Start(context.Background(), "t1")
	defer release()
	assert.False(t, s.cancel("t1").IsError)
	assert.Error(t, ctx.Err())

	// 3. Preamble
	assert.True(t, s.setPreamble(" ").IsError)
	assert.Equal(t, "old", builder.Preamble())
	assert.False(t, s.setPreamble("new").IsError)
	assert.Equal(t, "new", builder.Preamble())
}
