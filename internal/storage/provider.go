// Package storage holds the file backends used for exports and prompt
// overrides: a local directory, an S3 bucket or a git working tree.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Read when the object does not exist.
var ErrNotFound = errors.New("object not found")

// FileProvider reads and writes named blobs.
type FileProvider interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// List returns the paths below prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// DirProvider stores files under a base directory.
type DirProvider struct {
	baseDir string
}

func NewDirProvider(baseDir string) *DirProvider {
	return &DirProvider{baseDir: baseDir}
}

func (p *DirProvider) full(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("invalid path %q", path)
	}
	return filepath.Join(p.baseDir, clean), nil
}

func (p *DirProvider) Read(_ context.Context, path string) ([]byte, error) {
	full, err := p.full(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is cleaned and rooted at baseDir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

func (p *DirProvider) Write(_ context.Context, path string, data []byte) error {
	full, err := p.full(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(full, data, 0o600)
}

func (p *DirProvider) Exists(_ context.Context, path string) (bool, error) {
	full, err := p.full(path)
	if err != nil {
		return false, err
	}
	return statExists(full)
}

func (p *DirProvider) Delete(_ context.Context, path string) error {
	full, err := p.full(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (p *DirProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.baseDir, prefix)
}

func statExists(full string) (bool, error) {
	_, err := os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// walkFiles lists regular files under root/prefix as slash separated paths
// relative to root, skipping .git.
func walkFiles(root, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(filepath.Join(root, prefix), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Prefixed scopes a FileProvider to a namespace.
type Prefixed struct {
	inner  FileProvider
	prefix string
}

func NewPrefixed(inner FileProvider, prefix string) *Prefixed {
	return &Prefixed{inner: inner, prefix: strings.Trim(prefix, "/")}
}

func (p *Prefixed) key(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + strings.TrimLeft(path, "/")
}

func (p *Prefixed) Read(ctx context.Context, path string) ([]byte, error) {
	return p.inner.Read(ctx, p.key(path))
}

func (p *Prefixed) Write(ctx context.Context, path string, data []byte) error {
	return p.inner.Write(ctx, p.key(path), data)
}

func (p *Prefixed) Exists(ctx context.Context, path string) (bool, error) {
	return p.inner.Exists(ctx, p.key(path))
}

func (p *Prefixed) Delete(ctx context.Context, path string) error {
	return p.inner.Delete(ctx, p.key(path))
}

func (p *Prefixed) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.inner.List(ctx, p.key(prefix))
	if err != nil {
		return nil, err
	}
	if p.prefix == "" {
		return files, nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, strings.TrimPrefix(f, p.prefix+"/"))
	}
	return out, nil
}
