package search

import "github.com/hyperjump/jimaku/pkg/utils"

// Highlight truncates a cue body to maxLen runes for display.
func Highlight(content string, maxLen int) string {
	return utils.Truncate(content, maxLen)
}
