package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
)

// DefaultInclude matches the plain-text files at the top of the documents
// directory.
const DefaultInclude = "*.txt"

// Dir reads the files of a directory tree that match a doublestar pattern.
// Files are read concurrently but emitted in lexical order of their slash
// separated relative path, which is also the document key.
type Dir struct {
	root    string
	fsys    fs.FS
	include string
	workers int
	logger  *slog.Logger
}

func NewDir(root, include string, workers int) (*Dir, error) {
	if include == "" {
		include = DefaultInclude
	}
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("invalid include pattern %q", include)
	}
	if workers < 1 {
		workers = 1
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents path %s is not a directory", root)
	}
	return &Dir{
		root:    root,
		fsys:    os.DirFS(root),
		include: include,
		workers: workers,
		logger:  slog.Default().With("component", "dir-source", "root", root),
	}, nil
}

func (d *Dir) Name() string {
	return "dir"
}

func (d *Dir) Root() string {
	return d.root
}

// Matches reports whether the relative slash path name is selected by the
// include pattern.
func (d *Dir) Matches(name string) bool {
	ok, err := doublestar.Match(d.include, name)
	return err == nil && ok
}

// Files lists the matching regular files in lexical order.
func (d *Dir) Files() ([]string, error) {
	matches, err := doublestar.Glob(d.fsys, d.include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing %s in %s: %w", d.include, d.root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (d *Dir) Each(ctx context.Context, fn func(ingestion.Item) error) error {
	files, err := d.Files()
	if err != nil {
		return err
	}
	d.logger.Info("scanning documents", "include", d.include, "files", len(files))

	batchSize := d.workers * 4
	items := make([]ingestion.Item, batchSize)
	for start := 0; start < len(files); start += batchSize {
		batch := files[start:min(start+batchSize, len(files))]
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.workers)
		for i, name := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				items[i] = ReadFile(d.fsys, name)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(items[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFile loads one document from fsys. Unreadable files and files that
// are not valid UTF-8 are returned as item errors.
func ReadFile(fsys fs.FS, name string) ingestion.Item {
	item := ingestion.Item{Document: ingestion.Document{Filename: name}}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		item.Err = fmt.Errorf("reading file: %w", err)
		return item
	}
	if !utf8.Valid(data) {
		item.Err = fmt.Errorf("file is not valid UTF-8")
		return item
	}
	item.Content = string(data)
	return item
}
