// Package storage defines the persistence collaborators: the video record
// store and the blob store for transcripts and rendered subtitles.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/jimaku/internal/models"
)

// VideoStore persists video records.
type VideoStore interface {
	CreateVideo(ctx context.Context, v *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideos(ctx context.Context, offset, limit int) ([]*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error

	// AddSubtitleLanguage adds lang to the video's subtitle set. Adding a
	// language twice is a no-op.
	AddSubtitleLanguage(ctx context.Context, id, lang string) error
	// MarkTranscribed records the transcript location and content hash.
	MarkTranscribed(ctx context.Context, id, transcriptKey, hash string, at time.Time) error

	CountVideos(ctx context.Context) (int64, error)
	Close() error
}

// BlobStore reads and writes raw objects by key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// TranscriptKey is the blob key of a video's raw transcript.
func TranscriptKey(videoID string) string {
	return "transcription/" + videoID
}

// SubtitleKey is the blob key of a rendered subtitle file; ext is "vtt" or "srt".
func SubtitleKey(videoID, lang, ext string) string {
	return fmt.Sprintf("subtitle/%s/%s.%s", videoID, lang, ext)
}

// VideoKey is the blob key of an uploaded video file.
func VideoKey(videoID, ext string) string {
	return fmt.Sprintf("video/%s.%s", videoID, ext)
}
