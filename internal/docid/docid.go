// Package docid provides deterministic index document IDs for subtitle cues.
package docid

import (
	"fmt"
	"strconv"
	"strings"
)

const prefix = "cue:"

// CueDocID returns the document ID of the n-th cue of a video. IDs sort in
// cue order for the same video.
func CueDocID(videoID string, n int) string {
	return fmt.Sprintf("%s%s:%06d", prefix, videoID, n)
}

// Parse splits a cue document ID into its video ID and cue number.
func Parse(id string) (videoID string, n int, ok bool) {
	rest, found := strings.CutPrefix(id, prefix)
	if !found {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(rest[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return rest[:i], n, true
}
