package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/keyword"
	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/pipeline"
	"github.com/hyperjump/jimaku/internal/storage"
)

// maxTranscriptBytes bounds a PUT transcript body.
const maxTranscriptBytes = 32 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{
		Language: q.Get("lang"),
		Query:    q.Get("q"),
		VideoID:  q.Get("video_id"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = limit
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.String("lang", query.Language),
		zap.String("video_id", query.VideoID),
		zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	videos, err := s.videos.ListVideos(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list videos failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"videos": videos, "offset": offset, "limit": limit})
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	var input models.VideoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ID != "" {
		if _, err := s.videos.GetVideo(r.Context(), input.ID); err == nil {
			s.respondError(w, http.StatusConflict, "video already exists")
			return
		}
	}
	s.logger.Debug("create video request", zap.String("id", input.ID), zap.String("title", input.Title))
	video, err := pipeline.RegisterVideo(r.Context(), s.videos, input)
	if err != nil {
		s.fail(w, "create video failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, video)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.videos.GetVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get video failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, video)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete video request", zap.String("id", id))
	video, err := s.videos.GetVideo(r.Context(), id)
	if err != nil {
		s.fail(w, "delete video failed", err)
		return
	}
	// Index documents go first and the record last, so a failed step leaves
	// the record in place for a retried DELETE.
	if err := s.indexer.DeleteVideo(r.Context(), id); err != nil {
		s.fail(w, "delete video from index failed", err)
		return
	}
	keys := []string{storage.TranscriptKey(id)}
	if video.VideoKey != "" {
		keys = append(keys, video.VideoKey)
	}
	for _, lang := range video.Subtitles {
		keys = append(keys, storage.SubtitleKey(id, lang, "vtt"), storage.SubtitleKey(id, lang, "srt"))
	}
	for _, key := range keys {
		if err := s.blobs.Delete(r.Context(), key); err != nil {
			s.fail(w, "delete video blobs failed", err)
			return
		}
	}
	if err := s.videos.DeleteVideo(r.Context(), id); err != nil {
		s.fail(w, "delete video failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handlePutTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(data) > maxTranscriptBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "transcript too large")
		return
	}
	s.logger.Debug("transcript upload", zap.String("id", id), zap.Int("bytes", len(data)))
	res, err := s.subtitler.AcceptTranscript(r.Context(), id, data)
	if err != nil {
		s.fail(w, "transcript failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

type subtitleRequest struct {
	TargetLanguage string `json:"target_lang,omitempty"`
}

func (s *Server) handleRequestSubtitle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req subtitleRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	video, err := s.videos.GetVideo(r.Context(), id)
	if err != nil {
		s.fail(w, "subtitle request failed", err)
		return
	}
	if video.TranscriptKey == "" {
		s.respondError(w, http.StatusConflict, "video has no transcript yet")
		return
	}
	job := models.SubtitleJob{VideoID: id, ContentLanguage: video.Language}
	if req.TargetLanguage != "" {
		lang, err := language.Normalize(req.TargetLanguage)
		if err != nil {
			s.fail(w, "subtitle request failed", err)
			return
		}
		if lang != video.Language {
			job.TranslateLanguage = lang
		}
	}
	if err := s.jobs.Submit(job); err != nil {
		s.logger.Warn("subtitle job rejected", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"lang":   job.OutputLanguage(),
		"status": "queued",
	})
}

func (s *Server) handleGetSubtitle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file := chi.URLParam(r, "file")
	lang, ext, ok := strings.Cut(file, ".")
	if !ok || (ext != "vtt" && ext != "srt") {
		s.respondError(w, http.StatusNotFound, "subtitle format must be vtt or srt")
		return
	}
	lang, err := language.Normalize(lang)
	if err != nil {
		s.fail(w, "get subtitle failed", err)
		return
	}
	data, err := s.blobs.Get(r.Context(), storage.SubtitleKey(id, lang, ext))
	if err != nil {
		s.fail(w, "get subtitle failed", err)
		return
	}
	if ext == "vtt" {
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	videoCount, err := s.videos.CountVideos(r.Context())
	if err != nil {
		s.fail(w, "status: count videos failed", err)
		return
	}
	docCounts, err := s.indexer.DocCounts()
	if err != nil {
		s.fail(w, "status: count documents failed", err)
		return
	}
	resp := map[string]interface{}{
		"videos":    videoCount,
		"documents": docCounts,
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"database_path":       s.config.Storage.DatabasePath,
			"blob_path":           s.config.Storage.BlobPath,
			"index_path":          s.config.Storage.IndexPath,
			"translation_enabled": s.config.Translate.Enabled(),
			"inbox":               s.config.Watch.Inbox,
		}
		diskBytes, err := storage.DiskUsageBytes(
			s.config.Storage.DatabasePath,
			s.config.Storage.BlobPath,
			s.config.Storage.IndexPath,
		)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrParse), errors.Is(err, models.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, keyword.ErrIndexLocked):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
