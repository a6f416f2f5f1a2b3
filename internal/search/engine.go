// Package search runs time-coded subtitle searches against the language indexes.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/timecode"
)

// Index is the part of the keyword registry the engine reads from.
type Index interface {
	Search(ctx context.Context, lang, queryString, videoID string, limit int) ([]keyword.Hit, error)
	Suggest(lang, query string) (string, bool, error)
}

// Engine answers search requests with ranked, time-coded cues.
type Engine struct {
	index  Index
	config *config.SearchConfig
	logger *zap.Logger
}

// NewEngine creates a search engine over index. A nil cfg uses the defaults.
func NewEngine(index Index, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	if cfg == nil {
		c := &config.Config{}
		config.ApplyDefaults(c)
		cfg = &c.Search
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{index: index, config: cfg, logger: logger}
}

// Search runs query and returns at most query.Limit results in rank order.
// A language with no index yields an empty response, not an error.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	lang, err := language.Normalize(query.Language)
	if err != nil {
		return nil, err
	}
	query.Language = lang

	hits, err := e.index.Search(ctx, lang, query.Query, query.VideoID, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", lang, err)
	}

	response := &models.SearchResponse{
		Results:  make([]*models.SearchResult, 0, len(hits)),
		Total:    len(hits),
		Query:    query.Query,
		Language: lang,
	}
	for i, h := range hits {
		start, err := timecode.Parse(h.TimeLabel)
		if err != nil {
			e.logger.Debug("Unparseable time label", zap.String("id", h.ID), zap.String("time_label", h.TimeLabel))
		}
		response.Results = append(response.Results, &models.SearchResult{
			VideoID:      h.VideoID,
			TimeLabel:    h.TimeLabel,
			Body:         Highlight(h.Body, e.config.SnippetLength),
			StartSeconds: start,
			Rank:         i + 1,
		})
	}

	if len(hits) == 0 {
		if corrected, ok, err := e.index.Suggest(lang, query.Query); err != nil {
			e.logger.Debug("Suggestion failed", zap.String("lang", lang), zap.Error(err))
		} else if ok {
			response.DidYouMean = corrected
		}
	}

	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}
