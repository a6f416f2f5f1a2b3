package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/indexer"
	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/pipeline"
	"github.com/hyperjump/jimaku/internal/search"
	"github.com/hyperjump/jimaku/internal/storage"
	"github.com/hyperjump/jimaku/internal/translate"
)

const transcriptJSON = `{"results":{"items":[
 {"type":"pronunciation","alternatives":[{"content":"Hello"}],"start_time":"0.0","end_time":"0.5"},
 {"type":"pronunciation","alternatives":[{"content":"world"}],"start_time":"0.5","end_time":"1.0"},
 {"type":"punctuation","alternatives":[{"content":"."}]}
]}}`

type fakeQueue struct {
	jobs []models.SubtitleJob
	err  error
}

func (q *fakeQueue) Submit(job models.SubtitleJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type testServer struct {
	srv    *Server
	router http.Handler
	videos *storage.SQLiteStorage
	queue  *fakeQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithIndex(t, nil)
}

// newTestServerWithIndex lets a test wrap the index the API deletes from.
func newTestServerWithIndex(t *testing.T, wrap func(VideoIndex) VideoIndex) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{
		DatabasePath: filepath.Join(dir, "jimaku.db"),
		BlobPath:     filepath.Join(dir, "blobs"),
		IndexPath:    filepath.Join(dir, "indices"),
	}}
	config.ApplyDefaults(cfg)

	videos, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = videos.Close() })
	blobs, err := storage.NewDiskBlobStore(cfg.Storage.BlobPath)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := keyword.NewRegistry(cfg.Storage.IndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	logger := zap.NewNop()
	idx := indexer.NewIndexer(reg)
	engine := search.NewEngine(reg, &cfg.Search, logger)
	sub := pipeline.NewSubtitler(videos, blobs, idx, pipeline.WithTranslator(translate.NewMockTranslator()))
	queue := &fakeQueue{}
	var apiIndex VideoIndex = idx
	if wrap != nil {
		apiIndex = wrap(idx)
	}
	srv := NewServer(engine, apiIndex, sub, queue, videos, blobs, cfg, logger)
	return &testServer{srv: srv, router: srv.Router(), videos: videos, queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, r)
	return w
}

func (ts *testServer) createVideo(t *testing.T, id, lang string) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/videos", fmt.Sprintf(`{"id":%q,"title":"Demo","lang":%q}`, id, lang))
	if w.Code != http.StatusCreated {
		t.Fatalf("create video: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestVideoLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.createVideo(t, "vid1", "en-US")

	w := ts.do(t, http.MethodPost, "/api/v1/videos", `{"id":"vid1","title":"Again","lang":"en"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create: got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/videos/vid1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get video: %d %s", w.Code, w.Body.String())
	}
	var v models.Video
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Language != "en" || v.Title != "Demo" {
		t.Errorf("unexpected video %+v", v)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/videos", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"vid1"`) {
		t.Errorf("list videos: %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/v1/videos/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing video: got %d", w.Code)
	}

	w = ts.do(t, http.MethodDelete, "/api/v1/videos/vid1", "")
	if w.Code != http.StatusOK {
		t.Errorf("delete video: got %d %s", w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodDelete, "/api/v1/videos/vid1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("delete twice: got %d", w.Code)
	}
}

func TestCreateVideo_BadInput(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`not json`, `{"title":"x"}`, `{"lang":"en"}`, `{"title":"x","lang":"??"}`} {
		if w := ts.do(t, http.MethodPost, "/api/v1/videos", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d", body, w.Code)
		}
	}
}

func TestTranscriptToSearch(t *testing.T) {
	ts := newTestServer(t)
	ts.createVideo(t, "vid1", "en")

	w := ts.do(t, http.MethodPut, "/api/v1/videos/vid1/transcript", transcriptJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("put transcript: %d %s", w.Code, w.Body.String())
	}
	var res pipeline.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Cues != 1 || res.Language != "en" {
		t.Errorf("unexpected result %+v", res)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/en.vtt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get vtt: %d %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nHello world.\n\n" {
		t.Errorf("vtt = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vtt") {
		t.Errorf("content type = %s", ct)
	}
	w = ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/en.srt", "")
	if w.Code != http.StatusOK || w.Body.String() != "1\n00:00:00,000 --> 00:00:01,000\nHello world.\n\n" {
		t.Errorf("get srt: %d %q", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/en.txt", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown format: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/ko.vtt", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing subtitle: got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/search?q=hello&lang=en&video_id=vid1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].TimeLabel != "00:00:00.000" || resp.Results[0].Body != "Hello world." {
		t.Errorf("unexpected search response %+v", resp)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/search", `{"q":"world","lang":"en"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"vid1"`) {
		t.Errorf("post search: %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var status struct {
		Videos    int64             `json:"videos"`
		Documents map[string]uint64 `json:"documents"`
	}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Videos != 1 || status.Documents["en"] != 1 {
		t.Errorf("unexpected status %+v", status)
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/videos/vid1", ""); w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/en.vtt", ""); w.Code != http.StatusNotFound {
		t.Errorf("subtitle after delete: got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/api/v1/search?q=hello&lang=en", "")
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), `"vid1"`) {
		t.Errorf("search after delete: %d %s", w.Code, w.Body.String())
	}
}

func TestPutTranscript_Errors(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodPut, "/api/v1/videos/nope/transcript", transcriptJSON); w.Code != http.StatusNotFound {
		t.Errorf("unknown video: got %d", w.Code)
	}
	ts.createVideo(t, "vid1", "en")
	if w := ts.do(t, http.MethodPut, "/api/v1/videos/vid1/transcript", `{"results":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed transcript: got %d", w.Code)
	}
}

func TestSearch_Errors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing query", http.MethodGet, "/api/v1/search?lang=en", "", http.StatusBadRequest},
		{"missing lang", http.MethodGet, "/api/v1/search?q=x", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/search?q=x&lang=en&limit=ten", "", http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/v1/search", "{", http.StatusBadRequest},
		{"malformed query", http.MethodGet, "/api/v1/search?q=body:&lang=en", "", http.StatusBadRequest},
		{"unindexed language", http.MethodGet, "/api/v1/search?q=x&lang=de", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := ts.do(t, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("got %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRequestSubtitle(t *testing.T) {
	ts := newTestServer(t)
	ts.createVideo(t, "vid1", "en")

	if w := ts.do(t, http.MethodPost, "/api/v1/videos/vid1/subtitles", `{"target_lang":"ko"}`); w.Code != http.StatusConflict {
		t.Errorf("no transcript: got %d", w.Code)
	}
	if err := ts.videos.MarkTranscribed(context.Background(), "vid1", "transcription/vid1", "h", time.Now()); err != nil {
		t.Fatal(err)
	}

	w := ts.do(t, http.MethodPost, "/api/v1/videos/vid1/subtitles", `{"target_lang":"ko-KR"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("request subtitle: %d %s", w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodPost, "/api/v1/videos/vid1/subtitles", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("request content subtitle: %d %s", w.Code, w.Body.String())
	}
	if len(ts.queue.jobs) != 2 {
		t.Fatalf("queued %d jobs, want 2", len(ts.queue.jobs))
	}
	if j := ts.queue.jobs[0]; j.ContentLanguage != "en" || j.TranslateLanguage != "ko" {
		t.Errorf("unexpected job %+v", j)
	}
	if j := ts.queue.jobs[1]; j.TranslateLanguage != "" {
		t.Errorf("content language job should not translate: %+v", j)
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/videos/vid1/subtitles", `{"target_lang":"?"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad target: got %d", w.Code)
	}
	ts.queue.err = pipeline.ErrQueueFull
	if w := ts.do(t, http.MethodPost, "/api/v1/videos/vid1/subtitles", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("full queue: got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrParse), http.StatusBadRequest},
		{models.ErrQueryParse, http.StatusBadRequest},
		{models.ErrInvalid, http.StatusBadRequest},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrIO, http.StatusInternalServerError},
		{models.ErrService, http.StatusBadGateway},
		{fmt.Errorf("%w: %w", models.ErrService, keyword.ErrIndexLocked), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type lockedOnceIndex struct {
	VideoIndex
	fail bool
}

func (l *lockedOnceIndex) DeleteVideo(ctx context.Context, videoID string) error {
	if l.fail {
		l.fail = false
		return fmt.Errorf("delete %s: %w", videoID, keyword.ErrIndexLocked)
	}
	return l.VideoIndex.DeleteVideo(ctx, videoID)
}

func TestDeleteVideo_IndexFailureKeepsRecord(t *testing.T) {
	ts := newTestServerWithIndex(t, func(idx VideoIndex) VideoIndex {
		return &lockedOnceIndex{VideoIndex: idx, fail: true}
	})
	ts.createVideo(t, "vid1", "en")
	if w := ts.do(t, http.MethodPut, "/api/v1/videos/vid1/transcript", transcriptJSON); w.Code != http.StatusOK {
		t.Fatalf("put transcript: %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/videos/vid1", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("delete with locked index: got %d %s", w.Code, w.Body.String())
	}
	if _, err := ts.videos.GetVideo(context.Background(), "vid1"); err != nil {
		t.Fatalf("record should survive a failed delete: %v", err)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/videos/vid1/subtitles/en.vtt", ""); w.Code != http.StatusOK {
		t.Errorf("subtitle should survive a failed delete: got %d", w.Code)
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/videos/vid1", ""); w.Code != http.StatusOK {
		t.Fatalf("retried delete: got %d %s", w.Code, w.Body.String())
	}
	w := ts.do(t, http.MethodGet, "/api/v1/search?q=hello&lang=en", "")
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), `"vid1"`) {
		t.Errorf("search after retried delete: %d %s", w.Code, w.Body.String())
	}
}
