package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/storage"
)

// MediaExtensions are the video container formats accepted on ingest.
var MediaExtensions = []string{"mp4", "mov"}

// MediaName is the decoded form of an uploaded file name "<title>.<lang>.<ext>".
type MediaName struct {
	Title    string
	Language string
	Ext      string
}

// ParseMediaName decodes an uploaded file name. The title may be URL encoded
// ("+" for spaces, %xx escapes) and may itself contain dots.
func ParseMediaName(name string) (*MediaName, error) {
	base := filepath.Base(name)
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: media name %q must look like <title>.<lang>.<ext>", models.ErrInvalid, base)
	}
	ext := strings.ToLower(parts[len(parts)-1])
	if !isMediaExt(ext) {
		return nil, fmt.Errorf("%w: unsupported media extension %q", models.ErrInvalid, ext)
	}
	lang, err := language.Normalize(parts[len(parts)-2])
	if err != nil {
		return nil, fmt.Errorf("media name %q: %w", base, err)
	}
	title, err := url.QueryUnescape(strings.Join(parts[:len(parts)-2], "."))
	if err != nil {
		return nil, fmt.Errorf("%w: media name %q: %w", models.ErrInvalid, base, err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: media name %q has an empty title", models.ErrInvalid, base)
	}
	return &MediaName{Title: title, Language: lang, Ext: ext}, nil
}

func isMediaExt(ext string) bool {
	for _, e := range MediaExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// RegisterVideo creates the record for a new video. A missing id is assigned
// a random UUID and the content language is normalized.
func RegisterVideo(ctx context.Context, videos storage.VideoStore, in models.VideoInput) (*models.Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrInvalid)
	}
	lang, err := language.Normalize(in.Language)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", title, err)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	if strings.ContainsAny(id, "/\\:") {
		return nil, fmt.Errorf("%w: video id %q contains a path or key separator", models.ErrInvalid, id)
	}
	v := &models.Video{
		ID:       id,
		Title:    title,
		Language: lang,
		VideoKey: in.VideoKey,
	}
	if err := videos.CreateVideo(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}
