// Package models defines core data structures for videos, subtitle jobs, queries, and search results.
package models

import "time"

// Video is the record kept for every registered video.
type Video struct {
	ID             string     `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Language       string     `json:"lang" db:"lang"`
	Subtitles      []string   `json:"subtitles" db:"subtitles"`
	VideoKey       string     `json:"video_key" db:"video_key"`
	ThumbnailKey   string     `json:"thumbnail_key,omitempty" db:"thumbnail_key"`
	TranscriptKey  string     `json:"transcript_key,omitempty" db:"transcript_key"`
	TranscriptHash string     `json:"-" db:"transcript_hash"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	TranscribedAt  *time.Time `json:"transcribed_at,omitempty" db:"transcribed_at"`
}

// HasSubtitle reports whether a subtitle exists for lang.
func (v *Video) HasSubtitle(lang string) bool {
	for _, s := range v.Subtitles {
		if s == lang {
			return true
		}
	}
	return false
}

// VideoInput is the input for registering a video.
type VideoInput struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Language string `json:"lang"`
	VideoKey string `json:"video_key,omitempty"`
}

// SubtitleJob asks for a subtitle of one video in its content language,
// optionally translated to TranslateLanguage.
type SubtitleJob struct {
	VideoID           string `json:"video_id"`
	ContentLanguage   string `json:"content_language"`
	TranslateLanguage string `json:"translate_language,omitempty"`
}

// OutputLanguage is the language the finished subtitle is written in.
func (j SubtitleJob) OutputLanguage() string {
	if j.TranslateLanguage != "" {
		return j.TranslateLanguage
	}
	return j.ContentLanguage
}

// IndexRequest carries the rendered index body of one subtitle.
type IndexRequest struct {
	VideoID  string `json:"video_id"`
	Language string `json:"lang"`
	Body     string `json:"body"`
}
