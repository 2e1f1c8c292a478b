// Package git implements ports.Repository with go-git: issue repositories are
// cloned (or refreshed) under a work directory and their changes pushed back.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/ports"
)

// DefaultCommitMessage is used by Push when the checkout has pending changes.
const DefaultCommitMessage = "Apply changes from autoshell"

var _ ports.Repository = (*Repository)(nil)

// Config holds the checkout settings.
type Config struct {
	// Workdir is the directory repositories are cloned into, as <workdir>/<owner>/<repo>.
	Workdir string
	// Username and Token authenticate HTTP(S) remotes.
	Username string
	Token    string
	// AuthorName and AuthorEmail sign the commits made by Push.
	AuthorName  string
	AuthorEmail string
}

// Repository manages local checkouts.
type Repository struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures the Repository.
type Option func(*Repository)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New creates a Repository. An empty Workdir uses the current directory.
func New(cfg Config, opts ...Option) *Repository {
	if cfg.Workdir == "" {
		cfg.Workdir = "."
	}
	if cfg.Username == "" {
		cfg.Username = "x-access-token"
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "autoshell"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "autoshell@localhost"
	}
	r := &Repository{
		cfg:    cfg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns where fullName is checked out.
func (r *Repository) Path(fullName string) string {
	abs, err := filepath.Abs(filepath.Join(r.cfg.Workdir, filepath.FromSlash(fullName)))
	if err != nil {
		return filepath.Join(r.cfg.Workdir, filepath.FromSlash(fullName))
	}
	return abs
}

// Prepare clones fullName, or pulls when a checkout already exists.
func (r *Repository) Prepare(ctx context.Context, fullName, cloneURL string) bool {
	if err := r.prepare(ctx, fullName, cloneURL); err != nil {
		r.logger.Error("failed to prepare repository", "repo", fullName, "error", err)
		return false
	}
	return true
}

func (r *Repository) prepare(ctx context.Context, fullName, cloneURL string) error {
	path := r.Path(fullName)

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating workdir: %w", err)
		}
		r.logger.Info("cloning repository", "repo", fullName, "path", path)
		_, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
			URL:  cloneURL,
			Auth: r.auth(cloneURL),
		})
		if err != nil {
			return fmt.Errorf("clone: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	r.logger.Info("pulling repository", "repo", fullName, "path", path)
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Auth:       r.auth(remoteURL(repo)),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// Push commits every pending change and pushes to origin.
func (r *Repository) Push(ctx context.Context, fullName string) bool {
	if err := r.push(ctx, fullName); err != nil {
		r.logger.Error("failed to push repository", "repo", fullName, "error", err)
		return false
	}
	return true
}

func (r *Repository) push(ctx context.Context, fullName string) error {
	repo, err := git.PlainOpen(r.Path(fullName))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if !status.IsClean() {
		hash, err := wt.Commit(DefaultCommitMessage, &git.CommitOptions{
			Author: &object.Signature{
				Name:  r.cfg.AuthorName,
				Email: r.cfg.AuthorEmail,
				When:  time.Now(),
			},
		})
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		r.logger.Info("committed changes", "repo", fullName, "commit", hash.String())
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       r.auth(remoteURL(repo)),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// auth returns token credentials for HTTP(S) remotes only.
func (r *Repository) auth(url string) transport.AuthMethod {
	if r.cfg.Token == "" {
		return nil
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil
	}
	return &githttp.BasicAuth{Username: r.cfg.Username, Password: r.cfg.Token}
}

func remoteURL(repo *git.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}
