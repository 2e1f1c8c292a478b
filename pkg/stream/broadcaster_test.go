package stream

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	frames  []string
	opened  bool
	closed  int
	sendErr error
}

func (s *recordingSink) Open() error { s.opened = true; return nil }

func (s *recordingSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, string(frame))
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func TestFrame(t *testing.T) {
	f, err := Frame(domain.TaskEvent{Name: domain.EventNext, Payload: "ls -la"})
	require.NoError(t, err)
	assert.Equal(t, "event: next\ndata: \"ls -la\"\n\n", string(f))

	f, err = Frame(domain.TaskEvent{Name: domain.EventHalt})
	require.NoError(t, err)
	assert.Equal(t, "event: halt\ndata: null\n\n", string(f))

	f, err = Frame(domain.TaskEvent{Name: domain.EventHistory, Payload: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "event: history\ndata: [{\"role\":\"user\",\"content\":\"hi\"}]\n\n", string(f))
}

func TestBroadcaster_PublishWithoutSubscribers(t *testing.T) {
	b := NewBroadcaster()
	assert.False(t, b.Publish("nobody", domain.EventNext, "x"))
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	s1, s2, other := &recordingSink{}, &recordingSink{}, &recordingSink{}

	_, err := b.Subscribe("t1", s1)
	require.NoError(t, err)
	_, err = b.Subscribe("t1", s2)
	require.NoError(t, err)
	_, err = b.Subscribe("t2", other)
	require.NoError(t, err)

	assert.True(t, s1.opened)
	assert.True(t, b.Publish("t1", domain.EventResults, "summary"))

	want := []string{"event: results\ndata: \"summary\"\n\n"}
	assert.Equal(t, want, s1.frames)
	assert.Equal(t, want, s2.frames)
	assert.Empty(t, other.frames)
}

func TestBroadcaster_UnsubscribeIsPerSink(t *testing.T) {
	b := NewBroadcaster()
	s1, s2 := &recordingSink{}, &recordingSink{}

	unsub1, _ := b.Subscribe("t1", s1)
	_, _ = b.Subscribe("t1", s2)

	unsub1()
	assert.Equal(t, 1, s1.closed)
	assert.Equal(t, 1, b.Subscribers("t1"))

	b.Publish("t1", domain.EventNext, "x")
	assert.Empty(t, s1.frames)
	assert.Len(t, s2.frames, 1)
}

func TestBroadcaster_FailingSinkIsDropped(t *testing.T) {
	b := NewBroadcaster()
	bad := &recordingSink{sendErr: errors.New("broken pipe")}
	good := &recordingSink{}

	_, _ = b.Subscribe("t1", bad)
	_, _ = b.Subscribe("t1", good)

	assert.True(t, b.Publish("t1", domain.EventNext, "a"))
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, 1, b.Subscribers("t1"))

	b.Publish("t1", domain.EventNext, "b")
	assert.Len(t, good.frames, 2)
}

func TestBroadcaster_CompleteIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	s := &recordingSink{}
	unsub, _ := b.Subscribe("t1", s)

	b.Complete("t1")
	b.Complete("t1")
	unsub()

	assert.Equal(t, 1, s.closed)
	assert.Equal(t, 0, b.Subscribers("t1"))
	assert.False(t, b.Publish("t1", domain.EventNext, "late"))
}

func TestHTTPSink(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := NewHTTPSink(rec)

	b := NewBroadcaster()
	_, err := b.Subscribe("t1", sink)
	require.NoError(t, err)

	b.Publish("t1", domain.EventNext, "echo hi")
	b.Complete("t1")

	select {
	case <-sink.Done():
	default:
		t.Fatal("expected sink to be done after Complete")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "event: next\ndata: \"echo hi\"\n\n", rec.Body.String())
	assert.ErrorIs(t, sink.Send([]byte("x")), ErrSinkClosed)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	b := NewBroadcaster()
	_, _ = b.Subscribe("t1", NewWriterSink(&buf))

	b.Publish("t1", domain.EventError, "boom")
	b.Publish("t1", domain.EventCancel, nil)

	assert.Equal(t, "event: error\ndata: \"boom\"\n\nevent: cancel\ndata: null\n\n", buf.String())
}

func TestNop(t *testing.T) {
	var n Nop
	assert.False(t, n.Publish("t", domain.EventNext, "x"))
	n.Complete("t")
}
