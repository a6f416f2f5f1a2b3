package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/indexer"
	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/pipeline"
	"github.com/hyperjump/jimaku/internal/search"
	"github.com/hyperjump/jimaku/internal/storage"
	"github.com/hyperjump/jimaku/internal/translate"
	"github.com/hyperjump/jimaku/internal/watcher"
)

// Components holds initialized services.
type Components struct {
	Videos    *storage.SQLiteStorage
	Blobs     *storage.DiskBlobStore
	Registry  *keyword.Registry
	Indexer   *indexer.Indexer
	Engine    *search.Engine
	Subtitler *pipeline.Subtitler
}

// Close releases the index locks and the database.
func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Videos != nil {
		_ = c.Videos.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	c := &Components{}
	videos, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Videos = videos

	blobs, err := storage.NewDiskBlobStore(cfg.Storage.BlobPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	c.Blobs = blobs

	regOpts := []keyword.Option{}
	idxOpts := []indexer.IndexerOption{}
	if debug && logger != nil {
		regOpts = append(regOpts, keyword.WithLogger(logger))
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	registry, err := keyword.NewRegistry(cfg.Storage.IndexPath, regOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Registry = registry
	c.Indexer = indexer.NewIndexer(registry, idxOpts...)
	c.Engine = search.NewEngine(registry, &cfg.Search, logger)

	subOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTranslateConcurrency(cfg.Translate.Concurrency),
	}
	if cfg.Translate.Enabled() {
		tr, err := translate.New(cfg.Translate.Provider, translate.Config{
			BaseURL:        cfg.Translate.BaseURL,
			APIKey:         cfg.Translate.APIKey,
			TimeoutSeconds: cfg.Translate.TimeoutSeconds,
		}, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize translator: %w", err)
		}
		subOpts = append(subOpts, pipeline.WithTranslator(tr))
	} else if logger != nil {
		logger.Info("translation disabled (no translate.base_url configured)")
	}
	c.Subtitler = pipeline.NewSubtitler(videos, blobs, c.Indexer, subOpts...)
	return c, nil
}

// inboxHandler accepts transcript files dropped in the inbox. Videos without
// a record are registered under fallbackLang when one is configured. A file
// is removed once its transcript has been stored.
func inboxHandler(c *Components, fallbackLang string, logger *zap.Logger) watcher.Handler {
	return func(videoID, path string) {
		ctx := context.Background()
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("inbox read failed", zap.String("path", path), zap.Error(err))
			return
		}
		res, err := c.Subtitler.AcceptTranscript(ctx, videoID, data)
		if errors.Is(err, models.ErrNotFound) && fallbackLang != "" {
			_, regErr := pipeline.RegisterVideo(ctx, c.Videos, models.VideoInput{ID: videoID, Title: videoID, Language: fallbackLang})
			if regErr != nil {
				logger.Warn("inbox register failed", zap.String("video_id", videoID), zap.Error(regErr))
				return
			}
			logger.Info("inbox registered video", zap.String("video_id", videoID), zap.String("lang", fallbackLang))
			res, err = c.Subtitler.AcceptTranscript(ctx, videoID, data)
		}
		if err != nil {
			logger.Warn("inbox transcript failed", zap.String("video_id", videoID), zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("inbox transcript accepted",
			zap.String("video_id", videoID),
			zap.String("lang", res.Language),
			zap.Int("cues", res.Cues),
			zap.Bool("skipped", res.Skipped))
		if err := os.Remove(path); err != nil {
			logger.Warn("inbox cleanup failed", zap.String("path", path), zap.Error(err))
		}
	}
}
