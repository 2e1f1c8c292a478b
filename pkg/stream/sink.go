package stream

import (
	"errors"
	"io"
	"net/http"
	"sync"
)

// ErrSinkClosed is returned when sending to a closed sink.
var ErrSinkClosed = errors.New("sink closed")

// Sink is one destination of a task's event stream.
type Sink interface {
	// Open prepares the destination. It is called once, on Subscribe.
	Open() error
	// Send writes one encoded frame.
	Send(frame []byte) error
	// Close ends the stream. It must be safe to call more than once.
	Close()
}

// HTTPSink streams frames to an HTTP response.
type HTTPSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	done    chan struct{}
}

// NewHTTPSink wraps w. Flushing is skipped when w does not support it.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	s := &HTTPSink{w: w, done: make(chan struct{})}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Open writes the event-stream headers and the 200 status.
func (s *HTTPSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	s.flush()
	return nil
}

func (s *HTTPSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *HTTPSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Done is closed once the stream has been completed.
func (s *HTTPSink) Done() <-chan struct{} {
	return s.done
}

func (s *HTTPSink) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// WriterSink writes frames to any io.Writer, e.g. a terminal.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Open() error { return nil }

func (s *WriterSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	_, err := s.w.Write(frame)
	return err
}

func (s *WriterSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
