package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOptions configures a GitProvider.
type GitOptions struct {
	Path          string
	AuthorName    string
	AuthorEmail   string
	InitIfMissing bool
}

// GitProvider writes into a git working tree and commits every change.
type GitProvider struct {
	root   string
	repo   *git.Repository
	author object.Signature
	now    func() time.Time
	mu     sync.Mutex
}

func NewGitProvider(opts GitOptions) (*GitProvider, error) {
	if opts.Path == "" {
		return nil, errors.New("git repository path is required")
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "attendance-bot"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "attendance-bot@localhost"
	}

	repo, err := git.PlainOpen(opts.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) && opts.InitIfMissing {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", err)
		}
		repo, err = git.PlainInit(opts.Path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", opts.Path, err)
	}

	return &GitProvider{
		root:   opts.Path,
		repo:   repo,
		author: object.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail},
		now:    time.Now,
	}, nil
}

func (p *GitProvider) full(path string) (string, string, error) {
	rel := filepath.Clean("/" + path)[1:]
	if rel == "" || rel == ".git" || filepath.Dir(rel) == ".git" {
		return "", "", fmt.Errorf("invalid path %q", path)
	}
	return filepath.Join(p.root, rel), filepath.ToSlash(rel), nil
}

func (p *GitProvider) Read(_ context.Context, path string) ([]byte, error) {
	full, _, err := p.full(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is cleaned and rooted at the repository
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

// Write stores data and commits it. Rewriting identical content is a no-op.
func (p *GitProvider) Write(_ context.Context, path string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	full, rel, err := p.full(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	return p.commit(wt, rel, "Write "+rel)
}

func (p *GitProvider) Exists(_ context.Context, path string) (bool, error) {
	full, _, err := p.full(path)
	if err != nil {
		return false, err
	}
	return statExists(full)
}

func (p *GitProvider) Delete(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	full, rel, err := p.full(path)
	if err != nil {
		return err
	}
	if ok, err := statExists(full); err != nil || !ok {
		return err
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Remove(rel); err != nil {
		// untracked file
		if err := os.Remove(full); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
		return nil
	}
	return p.commit(wt, rel, "Delete "+rel)
}

func (p *GitProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.root, prefix)
}

// commit records the staged change to rel, if there is one.
func (p *GitProvider) commit(wt *git.Worktree, rel, msg string) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	st, ok := status[rel]
	if !ok || st.Staging == git.Unmodified || st.Staging == git.Untracked {
		return nil
	}

	sig := p.author
	sig.When = p.now()
	if _, err := wt.Commit(msg, &git.CommitOptions{Author: &sig}); err != nil {
		return fmt.Errorf("failed to commit %q: %w", msg, err)
	}
	return nil
}
