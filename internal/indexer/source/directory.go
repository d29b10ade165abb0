package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/resilience"
)

// Directory reads every regular file under root whose slash-separated
// relative path matches one of the include globs and none of the exclude
// globs. Files are visited in lexical path order and named by that relative
// path, so a top-level file is named by its base name.
type Directory struct {
	root     string
	includes []string
	excludes []string
	retry    resilience.RetryConfig
	readFile func(path string) ([]byte, error)
	logger   *slog.Logger
}

// DirectoryOption customises a Directory source.
type DirectoryOption func(*Directory)

// WithReadAttempts bounds how many times a failing read is retried.
func WithReadAttempts(n int) DirectoryOption {
	return func(d *Directory) {
		d.retry.MaxAttempts = n
	}
}

// WithReadFunc replaces os.ReadFile.
func WithReadFunc(fn func(path string) ([]byte, error)) DirectoryOption {
	return func(d *Directory) {
		d.readFile = fn
	}
}

// NewDirectory creates a Directory source. With no includes it picks up
// top-level *.txt files.
func NewDirectory(root string, includes, excludes []string, opts ...DirectoryOption) *Directory {
	if len(includes) == 0 {
		includes = []string{"*.txt"}
	}
	d := &Directory{
		root:     root,
		includes: includes,
		excludes: excludes,
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
		},
		readFile: os.ReadFile,
		logger:   slog.Default().With("component", "directory-source", "root", root),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Directory) Kind() string { return "directory" }

func (d *Directory) Walk(ctx context.Context, fn VisitFunc) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperrors.ErrSourceUnavailable, d.root)
	}
	descend := d.descends()

	return filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			if path == d.root {
				return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, walkErr)
			}
			d.logger.Warn("cannot list entry, skipping", "path", rel, "error", walkErr)
			name := rel
			if entry != nil && entry.IsDir() {
				name += "/"
			}
			return fn(Document{Name: name, Err: apperrors.Unreadable(name, walkErr)})
		}
		if entry.IsDir() {
			if path == d.root {
				return nil
			}
			if !descend || d.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.included(rel) || d.excluded(rel) {
			return nil
		}
		if !isRegular(path, entry) {
			return nil
		}
		return fn(d.read(ctx, path, rel))
	})
}

func (d *Directory) read(ctx context.Context, path, name string) Document {
	var data []byte
	err := resilience.Retry(ctx, "read "+name, d.retry, func() error {
		var readErr error
		data, readErr = d.readFile(path)
		if errors.Is(readErr, fs.ErrNotExist) || errors.Is(readErr, fs.ErrPermission) {
			return resilience.Permanent(readErr)
		}
		return readErr
	})
	if err != nil {
		d.logger.Warn("document unreadable, skipping", "name", name, "error", err)
		return Document{Name: name, Err: apperrors.Unreadable(name, err)}
	}
	return Document{Name: name, Text: string(data)}
}

// descends reports whether any include pattern can match below the root.
func (d *Directory) descends() bool {
	for _, pattern := range d.includes {
		if strings.Contains(pattern, "/") || strings.Contains(pattern, "**") {
			return true
		}
	}
	return false
}

func (d *Directory) included(rel string) bool {
	for _, pattern := range d.includes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (d *Directory) excluded(rel string) bool {
	for _, pattern := range d.excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func isRegular(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
