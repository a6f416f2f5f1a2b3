// Package pipeline runs the subtitle job: transcript in, segmented and
// optionally translated subtitle out, rendered files stored, record updated
// and cues indexed.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/contenthash"
	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/storage"
	"github.com/hyperjump/jimaku/internal/subtitle"
	"github.com/hyperjump/jimaku/internal/transcript"
)

// Indexer receives the index body of a finished subtitle.
type Indexer interface {
	Index(ctx context.Context, req models.IndexRequest) (int, error)
}

// Result describes one finished subtitle job.
type Result struct {
	VideoID  string `json:"video_id"`
	Language string `json:"lang"`
	Cues     int    `json:"cues"`
	VTTKey   string `json:"vtt_key"`
	SRTKey   string `json:"srt_key"`
	Indexed  int    `json:"indexed"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Subtitler runs subtitle jobs. Every step is idempotent, so a failed job can
// be retried from the start.
type Subtitler struct {
	videos     storage.VideoStore
	blobs      storage.BlobStore
	indexer    Indexer
	translator subtitle.Translator
	logger     *zap.Logger

	concurrency int
	now         func() time.Time
}

// Option configures a Subtitler.
type Option func(*Subtitler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Subtitler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTranslator sets the translation backend. Without one, jobs that ask for
// a translation fail with models.ErrService.
func WithTranslator(t subtitle.Translator) Option {
	return func(s *Subtitler) { s.translator = t }
}

// WithTranslateConcurrency bounds in-flight translation calls per job.
func WithTranslateConcurrency(n int) Option {
	return func(s *Subtitler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Subtitler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSubtitler creates a subtitler over the given collaborators.
func NewSubtitler(videos storage.VideoStore, blobs storage.BlobStore, indexer Indexer, opts ...Option) *Subtitler {
	s := &Subtitler{
		videos:      videos,
		blobs:       blobs,
		indexer:     indexer,
		logger:      zap.NewNop(),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one subtitle job end to end.
func (s *Subtitler) Process(ctx context.Context, job models.SubtitleJob) (*Result, error) {
	video, err := s.videos.GetVideo(ctx, job.VideoID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(job.ContentLanguage) == "" {
		job.ContentLanguage = video.Language
	}
	contentLang, err := language.Normalize(job.ContentLanguage)
	if err != nil {
		return nil, fmt.Errorf("subtitle %s: %w", job.VideoID, err)
	}
	outLang := contentLang
	if strings.TrimSpace(job.TranslateLanguage) != "" {
		if outLang, err = language.Normalize(job.TranslateLanguage); err != nil {
			return nil, fmt.Errorf("subtitle %s: %w", job.VideoID, err)
		}
	}

	log := s.logger.With(zap.String("video_id", job.VideoID), zap.String("lang", outLang))
	log.Debug("Processing subtitle job", zap.String("content_lang", contentLang))

	raw, err := s.blobs.Get(ctx, storage.TranscriptKey(job.VideoID))
	if err != nil {
		return nil, fmt.Errorf("load transcript of %s: %w", job.VideoID, err)
	}
	tr, err := transcript.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("transcript of %s: %w", job.VideoID, err)
	}
	sub := tr.Subtitle()

	if outLang != contentLang {
		err := sub.Translate(ctx, s.translator, contentLang, outLang, subtitle.WithConcurrency(s.concurrency))
		if err != nil {
			return nil, fmt.Errorf("subtitle %s: %w", job.VideoID, err)
		}
		log.Debug("Translated subtitle", zap.Int("cues", sub.Len()))
	}

	res := &Result{
		VideoID:  job.VideoID,
		Language: outLang,
		Cues:     sub.Len(),
		VTTKey:   storage.SubtitleKey(job.VideoID, outLang, "vtt"),
		SRTKey:   storage.SubtitleKey(job.VideoID, outLang, "srt"),
	}
	if err := s.blobs.Put(ctx, res.VTTKey, []byte(sub.VTT())); err != nil {
		return nil, fmt.Errorf("store subtitle of %s: %w", job.VideoID, err)
	}
	if err := s.blobs.Put(ctx, res.SRTKey, []byte(sub.SRT())); err != nil {
		return nil, fmt.Errorf("store subtitle of %s: %w", job.VideoID, err)
	}

	// The language joins the record only once its cues are searchable, so a
	// failed index write leaves the job eligible for redelivery.
	res.Indexed, err = s.indexer.Index(ctx, models.IndexRequest{
		VideoID:  job.VideoID,
		Language: outLang,
		Body:     sub.IndexBody(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.videos.AddSubtitleLanguage(ctx, job.VideoID, outLang); err != nil {
		return nil, err
	}

	log.Info("Subtitle ready", zap.Int("cues", res.Cues), zap.Int("indexed", res.Indexed))
	return res, nil
}

// AcceptTranscript stores a finished transcript for videoID and runs the
// subtitle job in the video's content language. A transcript identical to the
// one already processed is skipped.
func (s *Subtitler) AcceptTranscript(ctx context.Context, videoID string, data []byte) (*Result, error) {
	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if _, err := transcript.ParseBytes(data); err != nil {
		return nil, fmt.Errorf("transcript of %s: %w", videoID, err)
	}

	hash := contenthash.SumBytes(data)
	contentLang := language.MustNormalize(video.Language)
	if video.TranscriptHash == hash && video.HasSubtitle(contentLang) {
		s.logger.Debug("Transcript unchanged, skipping", zap.String("video_id", videoID))
		return &Result{VideoID: videoID, Language: contentLang, Skipped: true}, nil
	}

	key := storage.TranscriptKey(videoID)
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store transcript of %s: %w", videoID, err)
	}
	// The hash is recorded only after the job succeeds; until then a
	// redelivery of the same bytes is processed again.
	if err := s.videos.MarkTranscribed(ctx, videoID, key, "", s.now()); err != nil {
		return nil, err
	}
	res, err := s.Process(ctx, models.SubtitleJob{VideoID: videoID, ContentLanguage: video.Language})
	if err != nil {
		return nil, err
	}
	if err := s.videos.MarkTranscribed(ctx, videoID, key, hash, s.now()); err != nil {
		return nil, err
	}
	return res, nil
}
