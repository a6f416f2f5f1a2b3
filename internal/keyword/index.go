// Package keyword provides the language-partitioned full-text index for
// subtitle cues, backed by Bleve.
package keyword

import "errors"

// Field names of an indexed cue document.
const (
	FieldVideoID   = "video_id"
	FieldTimeLabel = "time_label"
	FieldBody      = "body"
)

// DefaultLimit is the number of hits returned when the caller gives no limit.
const DefaultLimit = 10

// ErrIndexLocked is returned when another process holds a language index.
var ErrIndexLocked = errors.New("index locked by another process")

// Document is one indexed cue.
type Document struct {
	VideoID   string
	TimeLabel string
	Body      string
}

func (d Document) fields(videoID string) map[string]interface{} {
	return map[string]interface{}{
		FieldVideoID:   videoID,
		FieldTimeLabel: d.TimeLabel,
		FieldBody:      d.Body,
	}
}

// Hit is a single search hit with its stored fields. Score is only used for
// ordering and is not exposed past the search engine.
type Hit struct {
	ID        string
	VideoID   string
	TimeLabel string
	Body      string
	Score     float64
}
