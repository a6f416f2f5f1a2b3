// Package timecode converts fractional seconds to and from HH:MM:SS<sep>mmm labels.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// SRTSeparator separates seconds from milliseconds in SRT files.
	SRTSeparator = ","
	// VTTSeparator separates seconds from milliseconds in WebVTT files and index labels.
	VTTSeparator = "."
)

// Format renders seconds as HH:MM:SS<sep>mmm. Hours are not wrapped at 24.
// Negative input is clamped to zero.
func Format(seconds float64, sep string) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	h := totalMs / 3_600_000
	totalMs -= h * 3_600_000
	m := totalMs / 60_000
	totalMs -= m * 60_000
	s := totalMs / 1000
	ms := totalMs - s*1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}

// Parse reads a label produced by Format with either separator.
func Parse(label string) (float64, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	label = strings.ReplaceAll(label, SRTSeparator, VTTSeparator)
	clock, frac, ok := strings.Cut(label, VTTSeparator)
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", label)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", label)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", label)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || secs < 0 || secs > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("timestamp out of range %q", label)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}
