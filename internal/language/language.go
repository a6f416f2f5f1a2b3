// Package language normalizes BCP-47 language tags to the base language codes
// used as index partitions, subtitle file names and record store entries.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/hyperjump/jimaku/internal/models"
)

// Normalize returns the lowercase base language of code ("en-GB" -> "en",
// "zh-Hant-TW" -> "zh", "eng" -> "en").
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: language code required", models.ErrInvalid)
	}

	if tag, err := language.Parse(code); err == nil {
		if base, conf := tag.Base(); conf != language.No && base.String() != "und" {
			return base.String(), nil
		}
	}

	// Private or unregistered subtags: keep the primary subtag if it looks like one.
	primary, _, _ := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-")
	primary = strings.ToLower(primary)
	if !isPrimarySubtag(primary) {
		return "", fmt.Errorf("%w: invalid language code %q", models.ErrInvalid, code)
	}
	return primary, nil
}

// MustNormalize is Normalize for codes known to be valid; it returns code
// lowercased when normalization fails.
func MustNormalize(code string) string {
	n, err := Normalize(code)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(code))
	}
	return n
}

func isPrimarySubtag(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// DisplayName returns the English name of code, or the uppercased code when unknown.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

// NeedsSegmentation reports whether text in lang is written without spaces
// between words and needs dictionary or n-gram segmentation to be searched.
func NeedsSegmentation(lang string) bool {
	switch MustNormalize(lang) {
	case "ja", "ko", "zh":
		return true
	default:
		return false
	}
}
