package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/docid"
	"github.com/hyperjump/jimaku/internal/models"
)

const idPageSize = 500

var storedFields = []string{FieldVideoID, FieldTimeLabel, FieldBody}

// LanguageIndex is the on-disk cue index of one language. Writes are
// serialized; searches run concurrently against point-in-time snapshots.
type LanguageIndex struct {
	lang   string
	path   string
	index  bleve.Index
	lock   *flock.Flock
	logger *zap.Logger

	writeMu sync.Mutex
}

// openLanguageIndex creates or opens the index at path. lock must already be held.
func openLanguageIndex(lang, path string, lock *flock.Flock, logger *zap.Logger) (*LanguageIndex, error) {
	var (
		index bleve.Index
		err   error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s index: %w", lang, err)
		}
	} else {
		im, mapErr := NewIndexMapping(lang)
		if mapErr != nil {
			return nil, fmt.Errorf("build %s index mapping: %w", lang, mapErr)
		}
		index, err = bleve.New(path, im)
		if err != nil {
			return nil, fmt.Errorf("create %s index: %w", lang, err)
		}
		logger.Info("Created language index", zap.String("lang", lang), zap.String("path", path))
	}
	return &LanguageIndex{
		lang:   lang,
		path:   path,
		index:  index,
		lock:   lock,
		logger: logger,
	}, nil
}

// Language returns the language code of the index.
func (li *LanguageIndex) Language() string {
	return li.lang
}

// Upsert replaces every document of videoID with docs. Existing documents are
// deleted and committed before the new generation is added, so replaying the
// same request converges to the same document set.
func (li *LanguageIndex) Upsert(ctx context.Context, videoID string, docs []Document) error {
	if strings.TrimSpace(videoID) == "" {
		return fmt.Errorf("%w: video id required", models.ErrInvalid)
	}

	li.writeMu.Lock()
	defer li.writeMu.Unlock()

	removed, err := li.deleteLocked(ctx, videoID)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(docs) > 0 {
		batch := li.index.NewBatch()
		for i, doc := range docs {
			if err := batch.Index(docid.CueDocID(videoID, i), doc.fields(videoID)); err != nil {
				return fmt.Errorf("%w: index %s cue %d of %s: %w", models.ErrService, li.lang, i, videoID, err)
			}
		}
		if err := li.index.Batch(batch); err != nil {
			return fmt.Errorf("%w: commit %s documents of %s: %w", models.ErrService, li.lang, videoID, err)
		}
	}

	li.logger.Debug("Upserted video",
		zap.String("lang", li.lang),
		zap.String("video_id", videoID),
		zap.Int("removed", removed),
		zap.Int("added", len(docs)))
	return nil
}

// DeleteVideo removes every document of videoID and returns how many were removed.
func (li *LanguageIndex) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	li.writeMu.Lock()
	defer li.writeMu.Unlock()
	return li.deleteLocked(ctx, videoID)
}

func (li *LanguageIndex) deleteLocked(ctx context.Context, videoID string) (int, error) {
	ids, err := li.videoDocIDs(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	batch := li.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := li.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("%w: delete %s documents of %s: %w", models.ErrService, li.lang, videoID, err)
	}
	return len(ids), nil
}

func videoQuery(videoID string) blevequery.Query {
	q := bleve.NewTermQuery(videoID)
	q.SetField(FieldVideoID)
	return q
}

// videoDocIDs collects the IDs of every document of videoID.
func (li *LanguageIndex) videoDocIDs(ctx context.Context, videoID string) ([]string, error) {
	var ids []string
	for from := 0; ; from += idPageSize {
		req := bleve.NewSearchRequestOptions(videoQuery(videoID), idPageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := li.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s documents of %s: %w", models.ErrService, li.lang, videoID, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < idPageSize {
			return ids, nil
		}
	}
}

// Count returns the number of documents stored for videoID.
func (li *LanguageIndex) Count(ctx context.Context, videoID string) (int, error) {
	req := bleve.NewSearchRequestOptions(videoQuery(videoID), 0, 0, false)
	res, err := li.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s documents of %s: %w", models.ErrService, li.lang, videoID, err)
	}
	return int(res.Total), nil
}

// DocCount returns the total number of documents in the index.
func (li *LanguageIndex) DocCount() (uint64, error) {
	return li.index.DocCount()
}

// Search runs a query-string query over the body (and video_id) and returns
// the top limit hits. A non-empty videoID restricts hits to that video.
func (li *LanguageIndex) Search(ctx context.Context, queryString, videoID string, limit int) ([]Hit, error) {
	q, err := buildQuery(queryString, videoID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = storedFields
	res, err := li.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s index: %w", models.ErrService, li.lang, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			ID:        h.ID,
			VideoID:   stringField(h.Fields, FieldVideoID),
			TimeLabel: stringField(h.Fields, FieldTimeLabel),
			Body:      stringField(h.Fields, FieldBody),
			Score:     h.Score,
		})
	}
	return hits, nil
}

func buildQuery(queryString, videoID string) (blevequery.Query, error) {
	queryString = strings.TrimSpace(queryString)
	if queryString == "" {
		return nil, fmt.Errorf("%w: empty query", models.ErrQueryParse)
	}
	text, err := blevequery.NewQueryStringQuery(queryString).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", models.ErrQueryParse, queryString, err)
	}
	// _all analyzes the query like the body, which splits ids such as
	// "3f2a-11aa"; an exact id match is added alongside it.
	free := bleve.NewDisjunctionQuery(text, videoQuery(queryString))
	if videoID = strings.TrimSpace(videoID); videoID == "" {
		return free, nil
	}
	return bleve.NewConjunctionQuery(free, videoQuery(videoID)), nil
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Close closes the index and releases its file lock.
func (li *LanguageIndex) Close() error {
	li.writeMu.Lock()
	defer li.writeMu.Unlock()
	err := li.index.Close()
	if unlockErr := li.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
