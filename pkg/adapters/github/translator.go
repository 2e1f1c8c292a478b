package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/codrblog/autoshell/pkg/session"
)

// MaxPayloadSize bounds a webhook body.
const MaxPayloadSize = 1 << 20

// TaskRunner runs a task to completion and returns its JSON transcript.
type TaskRunner interface {
	Try(ctx context.Context, task, taskID string) (string, error)
}

// Config holds the webhook settings.
type Config struct {
	Secret string
	// Users and Orgs allow-list senders and organizations. Empty allows all.
	Users []string
	Orgs  []string
}

// Translator verifies webhook deliveries and turns them into task runs.
type Translator struct {
	secret []byte
	users  map[string]bool
	orgs   map[string]bool

	runner  TaskRunner
	history ports.HistoryStore
	repo    ports.Repository
	runs    *session.Manager
	logger  *slog.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	lastCleanup  time.Time
	limit        rate.Limit
	burst        int

	wg sync.WaitGroup
}

// Option configures the Translator.
type Option func(*Translator)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// WithSessions registers webhook runs so they can be canceled and serialized per issue.
func WithSessions(m *session.Manager) Option {
	return func(t *Translator) {
		t.runs = m
	}
}

// WithRateLimit sets the per-client request rate. The default is 1/s with a burst of 10.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(t *Translator) {
		t.limit = limit
		t.burst = burst
	}
}

// NewTranslator creates a Translator.
func NewTranslator(cfg Config, runner TaskRunner, history ports.HistoryStore, repo ports.Repository, opts ...Option) *Translator {
	t := &Translator{
		secret:       []byte(cfg.Secret),
		users:        set(cfg.Users),
		orgs:         set(cfg.Orgs),
		runner:       runner,
		history:      history,
		repo:         repo,
		logger:       logging.NewNop(),
		rateLimiters: make(map[string]*rate.Limiter),
		lastCleanup:  time.Now(),
		limit:        rate.Limit(1),
		burst:        10,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func set(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = true
		}
	}
	return out
}

// Authorized reports whether the sender and organization are allowed.
func (t *Translator) Authorized(issue *Issue) bool {
	if len(t.users) > 0 && !t.users[issue.Sender] {
		return false
	}
	if len(t.orgs) > 0 && !t.orgs[issue.Organization] {
		return false
	}
	return true
}

// Actionable reports whether the delivery should start work.
func (t *Translator) Actionable(issue *Issue) bool {
	switch issue.Action {
	case "opened", "edited", "created":
	default:
		return false
	}
	return issue.State == "open" && t.Authorized(issue)
}

// ServeHTTP handles POST /webhook.
func (t *Translator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientIP := clientIP(r)
	if !t.rateLimiter(clientIP).Allow() {
		t.logger.Warn("rate limit exceeded", "ip", clientIP)
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPayloadSize)

	payload, err := t.validate(r)
	if err != nil {
		t.logger.Warn("rejected webhook delivery", "error", err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	issue, err := ParseEvent(gh.WebHookType(r), payload)
	if err != nil {
		if errors.Is(err, domain.ErrNotActionable) {
			t.logger.Debug("ignoring webhook delivery", "error", err)
			w.WriteHeader(http.StatusAccepted)
			return
		}
		t.logger.Warn("failed to parse webhook", "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.Process(context.WithoutCancel(ctx), issue); err != nil && !errors.Is(err, domain.ErrNotActionable) {
			t.logger.Error("webhook processing failed", "repo", issue.Repository.FullName, "issue", issue.Number, "error", err)
		}
	}()
}

// Wait blocks until background processing started by ServeHTTP has finished.
func (t *Translator) Wait() {
	t.wg.Wait()
}

func (t *Translator) validate(r *http.Request) ([]byte, error) {
	if len(t.secret) == 0 {
		return nil, fmt.Errorf("%w: no webhook secret configured", domain.ErrInvalidSignature)
	}
	payload, err := gh.ValidatePayload(r, t.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return payload, nil
}

// Process acts on a parsed delivery.
func (t *Translator) Process(ctx context.Context, issue *Issue) error {
	repo := issue.Repository.FullName

	if issue.Closed() {
		if !t.Authorized(issue) {
			return domain.ErrNotActionable
		}
		t.logger.Info("issue closed, dropping history", "repo", repo, "issue", issue.Number)
		return t.history.Remove(ctx, repo, issue.Number)
	}

	if !t.Actionable(issue) {
		return domain.ErrNotActionable
	}

	if !t.repo.Prepare(ctx, repo, issue.Repository.CloneURL) {
		return fmt.Errorf("preparing repository %s failed", repo)
	}
	checkout := t.repo.Path(repo)

	if issue.Comment != nil {
		switch strings.TrimSpace(*issue.Comment) {
		case CommandPush:
			if !t.repo.Push(ctx, repo) {
				return fmt.Errorf("pushing repository %s failed", repo)
			}
			return nil
		case CommandRetry:
			return t.run(ctx, issue, IssuePrompt(issue, checkout))
		}

		history, err := t.history.Get(ctx, repo, issue.Number)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		return t.run(ctx, issue, FollowUpPrompt(issue, checkout, history))
	}

	return t.run(ctx, issue, IssuePrompt(issue, checkout))
}

func (t *Translator) run(ctx context.Context, issue *Issue, prompt string) error {
	repo := issue.Repository.FullName
	taskID := uuid.NewString()

	exec := func(ctx context.Context) error {
		if t.runs != nil {
			var release func()
			ctx, release = t.runs.Start(ctx, taskID)
			defer release()
		}

		t.logger.Info("starting task from issue", "task_id", taskID, "repo", repo, "issue", issue.Number)
		out, err := t.runner.Try(ctx, prompt, taskID)
		if err != nil {
			return err
		}

		var transcript []domain.Message
		if err := json.Unmarshal([]byte(out), &transcript); err != nil {
			return fmt.Errorf("decoding transcript: %w", err)
		}
		if err := t.history.Add(ctx, repo, issue.Number, transcript); err != nil {
			return fmt.Errorf("saving history: %w", err)
		}
		return nil
	}

	if t.runs == nil {
		return exec(ctx)
	}
	return t.runs.WithLock(ctx, fmt.Sprintf("%s#%d", repo, issue.Number), exec)
}

// rateLimiter returns the limiter for ip. Limiters are dropped hourly.
func (t *Translator) rateLimiter(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastCleanup) > time.Hour {
		t.rateLimiters = make(map[string]*rate.Limiter)
		t.lastCleanup = time.Now()
	}

	limiter, exists := t.rateLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.rateLimiters[ip] = limiter
	}
	return limiter
}

// clientIP keys the rate limiter on the connection address. Forwarding
// headers are client-controlled; behind a proxy the router rewrites
// RemoteAddr from them (chi's RealIP) when server.trust_proxy is set.
func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
