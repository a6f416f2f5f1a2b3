package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
)

const metaFile = "index_meta.json"

// Registry owns the per-language indexes under one root directory. Each
// language index is opened on first use and kept open until Close.
type Registry struct {
	root   string
	logger *zap.Logger

	mu      sync.Mutex
	indexes map[string]*LanguageIndex
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry rooted at root, creating the directory if needed.
func NewRegistry(root string, opts ...Option) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create index root: %w", models.ErrIO, err)
	}
	r := &Registry{
		root:    root,
		logger:  zap.NewNop(),
		indexes: make(map[string]*LanguageIndex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the registry root directory.
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) indexPath(lang string) string {
	return filepath.Join(r.root, lang)
}

// Index returns the index for lang, creating or opening it on first use.
func (r *Registry) Index(lang string) (*LanguageIndex, error) {
	lang, err := language.Normalize(lang)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("%w: index registry closed", models.ErrService)
	}
	if li, ok := r.indexes[lang]; ok {
		return li, nil
	}

	lock := flock.New(r.indexPath(lang) + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s index: %w", models.ErrService, lang, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrService, lang, ErrIndexLocked)
	}

	li, err := openLanguageIndex(lang, r.indexPath(lang), lock, r.logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: %w", models.ErrService, err)
	}
	r.indexes[lang] = li
	return li, nil
}

// Exists reports whether an index for lang is open or present on disk.
func (r *Registry) Exists(lang string) bool {
	lang, err := language.Normalize(lang)
	if err != nil {
		return false
	}
	r.mu.Lock()
	_, open := r.indexes[lang]
	r.mu.Unlock()
	if open {
		return true
	}
	_, err = os.Stat(filepath.Join(r.indexPath(lang), metaFile))
	return err == nil
}

// Languages lists the languages that have an index on disk.
func (r *Registry) Languages() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list index root: %w", models.ErrIO, err)
	}
	var langs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.root, e.Name(), metaFile)); err == nil {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// Search queries the lang index. A language without an index yields no hits
// and no index is created for it.
func (r *Registry) Search(ctx context.Context, lang, queryString, videoID string, limit int) ([]Hit, error) {
	if _, err := buildQuery(queryString, videoID); err != nil {
		return nil, err
	}
	if !r.Exists(lang) {
		return []Hit{}, nil
	}
	li, err := r.Index(lang)
	if err != nil {
		return nil, err
	}
	return li.Search(ctx, queryString, videoID, limit)
}

// Upsert replaces the documents of videoID in the lang index.
func (r *Registry) Upsert(ctx context.Context, lang, videoID string, docs []Document) error {
	li, err := r.Index(lang)
	if err != nil {
		return err
	}
	return li.Upsert(ctx, videoID, docs)
}

// DeleteVideo removes videoID from every language index on disk.
func (r *Registry) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	langs, err := r.Languages()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, lang := range langs {
		li, err := r.Index(lang)
		if err != nil {
			return total, err
		}
		n, err := li.DeleteVideo(ctx, videoID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DocCounts returns the document count of every language index on disk.
func (r *Registry) DocCounts() (map[string]uint64, error) {
	langs, err := r.Languages()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]uint64, len(langs))
	for _, lang := range langs {
		li, err := r.Index(lang)
		if err != nil {
			return nil, err
		}
		n, err := li.DocCount()
		if err != nil {
			return nil, fmt.Errorf("%w: count %s documents: %w", models.ErrService, lang, err)
		}
		counts[lang] = n
	}
	return counts, nil
}

// Close closes every open index.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	var errs []error
	for lang, li := range r.indexes {
		if err := li.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s index: %w", lang, err))
		}
		delete(r.indexes, lang)
	}
	return errors.Join(errs...)
}
