package search

import (
	"testing"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		content string
		maxLen  int
		want    string
	}{
		{"short", 10, "short"},
		{"long text here", 4, "long..."},
		{"x", 0, "x"},
		{"こんにちは世界", 5, "こんにちは..."},
		{"안녕하세요", 5, "안녕하세요"},
	}
	for _, tt := range tests {
		if got := Highlight(tt.content, tt.maxLen); got != tt.want {
			t.Errorf("Highlight(%q, %d) = %q, want %q", tt.content, tt.maxLen, got, tt.want)
		}
	}
}
