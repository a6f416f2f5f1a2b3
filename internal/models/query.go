package models

import (
	"fmt"
	"strings"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// SearchQuery is one search request against a single language partition.
type SearchQuery struct {
	Language string `json:"lang"`
	Query    string `json:"q"`
	VideoID  string `json:"video_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Validate ensures the query has a language and a non-empty text and clamps the limit.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	q.Language = strings.TrimSpace(q.Language)
	q.VideoID = strings.TrimSpace(q.VideoID)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalid)
	}
	if q.Language == "" {
		return fmt.Errorf("%w: lang is required", ErrInvalid)
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	return nil
}
