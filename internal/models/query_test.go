package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &SearchQuery{Language: "en"}, true, 0},
		{"blank query", &SearchQuery{Language: "en", Query: "   "}, true, 0},
		{"missing language", &SearchQuery{Query: "hello"}, true, 0},
		{"valid query", &SearchQuery{Language: "en", Query: "hello"}, false, 10},
		{"keeps limit", &SearchQuery{Language: "en", Query: "x", Limit: 5}, false, 5},
		{"caps limit at 100", &SearchQuery{Language: "en", Query: "x", Limit: 200}, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("error should wrap ErrInvalid: %v", err)
				}
				return
			}
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
		})
	}
}

func TestErrQueryParse_isParseError(t *testing.T) {
	if !errors.Is(ErrQueryParse, ErrParse) {
		t.Error("ErrQueryParse should wrap ErrParse")
	}
}

func TestSubtitleJob_OutputLanguage(t *testing.T) {
	if got := (SubtitleJob{ContentLanguage: "en"}).OutputLanguage(); got != "en" {
		t.Errorf("OutputLanguage() = %q, want en", got)
	}
	if got := (SubtitleJob{ContentLanguage: "en", TranslateLanguage: "ko"}).OutputLanguage(); got != "ko" {
		t.Errorf("OutputLanguage() = %q, want ko", got)
	}
}

func TestVideo_HasSubtitle(t *testing.T) {
	v := &Video{Subtitles: []string{"en", "ko"}}
	if !v.HasSubtitle("ko") || v.HasSubtitle("ja") {
		t.Errorf("HasSubtitle mismatch for %v", v.Subtitles)
	}
}
