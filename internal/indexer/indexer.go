// Package indexer turns rendered index bodies into cue documents and upserts
// them into the language-partitioned keyword index.
package indexer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/subtitle"
)

// Indexer indexes subtitle cues into the per-language keyword indexes.
type Indexer struct {
	registry *keyword.Registry
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (video indexed, video deleted).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer over registry.
func NewIndexer(registry *keyword.Registry, opts ...IndexerOption) *Indexer {
	idx := &Indexer{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index replaces the cues of req.VideoID in the req.Language index with the
// lines of req.Body. Replaying the same request leaves the index unchanged.
func (idx *Indexer) Index(ctx context.Context, req models.IndexRequest) (int, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return 0, fmt.Errorf("%w: index request without video id", models.ErrInvalid)
	}
	lang, err := language.Normalize(req.Language)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", videoID, err)
	}

	docs, skipped := Documents(req.Body)
	for _, label := range skipped {
		idx.logger.Debug("indexer skipped blank cue",
			zap.String("video_id", videoID),
			zap.String("lang", lang),
			zap.String("time_label", label))
	}
	if err := idx.registry.Upsert(ctx, lang, videoID, docs); err != nil {
		return 0, fmt.Errorf("index %s (%s): %w", videoID, lang, err)
	}
	idx.logger.Debug("indexer video indexed",
		zap.String("video_id", videoID),
		zap.String("lang", lang),
		zap.Int("cues", len(docs)),
		zap.Int("skipped", len(skipped)))
	return len(docs), nil
}

// IndexSubtitle indexes an already built subtitle.
func (idx *Indexer) IndexSubtitle(ctx context.Context, videoID, lang string, sub *subtitle.Subtitle) (int, error) {
	return idx.Index(ctx, models.IndexRequest{VideoID: videoID, Language: lang, Body: sub.IndexBody()})
}

// Documents converts an index body into cue documents. Lines without a time
// label are dropped; cues whose text is blank after preprocessing are dropped
// and their time labels returned in skipped.
func Documents(body string) (docs []keyword.Document, skipped []string) {
	lines := subtitle.ParseIndexBody(body)
	docs = make([]keyword.Document, 0, len(lines))
	for _, line := range lines {
		text := Preprocess(line.Text)
		if text == "" {
			skipped = append(skipped, line.TimeLabel)
			continue
		}
		docs = append(docs, keyword.Document{TimeLabel: line.TimeLabel, Body: text})
	}
	return docs, skipped
}

// DeleteVideo removes a video from every language index.
func (idx *Indexer) DeleteVideo(ctx context.Context, videoID string) error {
	idx.logger.Debug("indexer deleting video", zap.String("video_id", videoID))
	n, err := idx.registry.DeleteVideo(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete %s from keyword index: %w", videoID, err)
	}
	idx.logger.Debug("indexer video deleted", zap.String("video_id", videoID), zap.Int("documents", n))
	return nil
}

// DocCounts returns the number of indexed cues per language.
func (idx *Indexer) DocCounts() (map[string]uint64, error) {
	return idx.registry.DocCounts()
}
