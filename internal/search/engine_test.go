package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/indexer"
	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/models"
)

func newTestEngine(t *testing.T, cfg *config.SearchConfig) (*Engine, *indexer.Indexer) {
	t.Helper()
	reg, err := keyword.NewRegistry(t.TempDir(), keyword.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return NewEngine(reg, cfg, zap.NewNop()), indexer.NewIndexer(reg)
}

func TestEngine_Search(t *testing.T) {
	ctx := context.Background()
	engine, idx := newTestEngine(t, nil)

	body := "00:00:00.000 Hello world.\n00:01:01.500 The weather is nice today.\n"
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "v1", Language: "en", Body: body}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "v2", Language: "en", Body: "00:00:05.000 Nice weather again.\n"}); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Language: "en-GB", Query: "weather"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Language != "en" || resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d rank = %d", i, r.Rank)
		}
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Language: "en", Query: "weather", VideoID: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("video filter: got %d results", len(resp.Results))
	}
	r := resp.Results[0]
	if r.VideoID != "v1" || r.TimeLabel != "00:01:01.500" || r.StartSeconds != 61.5 {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Body != "The weather is nice today." {
		t.Errorf("body = %q", r.Body)
	}
}

func TestEngine_SearchUnindexedLanguage(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Language: "de", Query: "hallo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 || resp.Total != 0 || resp.DidYouMean != "" {
		t.Errorf("expected empty response, got %+v", resp)
	}
}

func TestEngine_SearchErrors(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	tests := []struct {
		name  string
		query *models.SearchQuery
		want  error
	}{
		{"empty query", &models.SearchQuery{Language: "en"}, models.ErrInvalid},
		{"missing language", &models.SearchQuery{Query: "x"}, models.ErrInvalid},
		{"bad language", &models.SearchQuery{Language: "12", Query: "x"}, models.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Search(ctx, tt.query); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEngine_SnippetAndLimit(t *testing.T) {
	ctx := context.Background()
	engine, idx := newTestEngine(t, &config.SearchConfig{DefaultLimit: 2, MaxLimit: 3, SnippetLength: 5})

	body := ""
	for _, label := range []string{"00:00:01.000", "00:00:02.000", "00:00:03.000", "00:00:04.000"} {
		body += label + " repeated phrase\n"
	}
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "v1", Language: "en", Body: body}); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Language: "en", Query: "phrase"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("default limit: got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Body != "repea..." {
		t.Errorf("snippet = %q", resp.Results[0].Body)
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Language: "en", Query: "phrase", Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("max limit: got %d results, want 3", len(resp.Results))
	}
}

func TestEngine_DidYouMean(t *testing.T) {
	ctx := context.Background()
	engine, idx := newTestEngine(t, nil)
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "v1", Language: "en", Body: "00:00:01.000 Goodbye everyone.\n"}); err != nil {
		t.Fatal(err)
	}
	resp, err := engine.Search(ctx, &models.SearchQuery{Language: "en", Query: "goodbey"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no hits, got %d", len(resp.Results))
	}
	if resp.DidYouMean != "goodbye" {
		t.Errorf("did_you_mean = %q, want goodbye", resp.DidYouMean)
	}
}

type failingIndex struct{}

func (failingIndex) Search(context.Context, string, string, string, int) ([]keyword.Hit, error) {
	return nil, models.ErrService
}

func (failingIndex) Suggest(string, string) (string, bool, error) { return "", false, nil }

func TestEngine_IndexFailure(t *testing.T) {
	engine := NewEngine(failingIndex{}, nil, nil)
	_, err := engine.Search(context.Background(), &models.SearchQuery{Language: "en", Query: "x"})
	if !errors.Is(err, models.ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}

func TestProcessQuery(t *testing.T) {
	cfg := &config.SearchConfig{DefaultLimit: 7, MaxLimit: 20}
	q := &models.SearchQuery{Language: "en", Query: " hi "}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 7 || q.Query != "hi" {
		t.Errorf("got %+v", q)
	}
	q = &models.SearchQuery{Language: "en", Query: "hi", Limit: 99}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 20 {
		t.Errorf("limit = %d, want 20", q.Limit)
	}
}
