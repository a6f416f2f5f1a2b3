package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/subtitle"
)

func testIndexer(t *testing.T) (*Indexer, *keyword.Registry) {
	t.Helper()
	reg, err := keyword.NewRegistry(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return NewIndexer(reg, WithLogger(zap.NewNop())), reg
}

const body = "00:00:00.000 Hello world.\n00:00:01.500 How   are you?\nbroken-line\n00:00:03.000  \n"

func TestDocuments(t *testing.T) {
	docs, skipped := Documents(body)
	if len(skipped) != 1 || skipped[0] != "00:00:03.000" {
		t.Errorf("skipped = %v, want [00:00:03.000]", skipped)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d: %+v", len(docs), docs)
	}
	if docs[0].TimeLabel != "00:00:00.000" || docs[0].Body != "Hello world." {
		t.Errorf("doc 0 = %+v", docs[0])
	}
	if docs[1].Body != "How are you?" {
		t.Errorf("whitespace should be collapsed: %q", docs[1].Body)
	}
}

func TestIndex_LogsSkippedBlankCue(t *testing.T) {
	reg, err := keyword.NewRegistry(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	core, logs := observer.New(zap.DebugLevel)
	idx := NewIndexer(reg, WithLogger(zap.New(core)))

	n, err := idx.Index(context.Background(), models.IndexRequest{VideoID: "vid1", Language: "en", Body: body})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexed = %d, want 2", n)
	}
	entries := logs.FilterMessage("indexer skipped blank cue").All()
	if len(entries) != 1 {
		t.Fatalf("got %d skip entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["time_label"]; got != "00:00:03.000" {
		t.Errorf("time_label = %v", got)
	}
}

func TestIndex_Idempotent(t *testing.T) {
	idx, reg := testIndexer(t)
	ctx := context.Background()
	req := models.IndexRequest{VideoID: "vid1", Language: "en-US", Body: body}

	for i := 0; i < 2; i++ {
		n, err := idx.Index(ctx, req)
		if err != nil {
			t.Fatalf("Index #%d: %v", i, err)
		}
		if n != 2 {
			t.Errorf("indexed %d cues, want 2", n)
		}
	}

	li, err := reg.Index("en")
	if err != nil {
		t.Fatal(err)
	}
	count, err := li.Count(ctx, "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestIndexSubtitle(t *testing.T) {
	idx, reg := testIndexer(t)
	ctx := context.Background()
	sub := subtitle.New([]subtitle.Cue{{StartTime: 61.5, EndTime: 63, Text: "searchable cue"}})

	if _, err := idx.IndexSubtitle(ctx, "vid1", "en", sub); err != nil {
		t.Fatal(err)
	}
	hits, err := reg.Search(ctx, "en", "searchable", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].TimeLabel != "00:01:01.500" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestIndex_InvalidRequest(t *testing.T) {
	idx, _ := testIndexer(t)
	ctx := context.Background()
	if _, err := idx.Index(ctx, models.IndexRequest{Language: "en", Body: body}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("missing video id: expected ErrInvalid, got %v", err)
	}
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "v", Body: body}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("missing language: expected ErrInvalid, got %v", err)
	}
}

func TestDeleteVideo(t *testing.T) {
	idx, reg := testIndexer(t)
	ctx := context.Background()
	if _, err := idx.Index(ctx, models.IndexRequest{VideoID: "vid1", Language: "en", Body: body}); err != nil {
		t.Fatal(err)
	}
	if err := idx.DeleteVideo(ctx, "vid1"); err != nil {
		t.Fatal(err)
	}
	hits, err := reg.Search(ctx, "en", "hello", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after delete, got %d", len(hits))
	}
}
