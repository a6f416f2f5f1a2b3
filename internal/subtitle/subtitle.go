// Package subtitle holds time-coded cues and renders them as SRT, WebVTT, and index body text.
package subtitle

import (
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/jimaku/internal/timecode"
)

const vttHeader = "WEBVTT\n\n"

// Cue is one displayable subtitle line.
type Cue struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

// Subtitle is the ordered cue sequence for one (video, language) pair.
type Subtitle struct {
	Cues []Cue `json:"cues"`
}

// New wraps cues in a Subtitle.
func New(cues []Cue) *Subtitle {
	return &Subtitle{Cues: cues}
}

// Len returns the number of cues.
func (s *Subtitle) Len() int {
	return len(s.Cues)
}

// SRT renders the subtitle as SubRip text, cues numbered from 1.
func (s *Subtitle) SRT() string {
	var b strings.Builder
	for i, c := range s.Cues {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		writeTiming(&b, c, timecode.SRTSeparator)
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// VTT renders the subtitle as WebVTT text.
func (s *Subtitle) VTT() string {
	var b strings.Builder
	b.WriteString(vttHeader)
	for _, c := range s.Cues {
		writeTiming(&b, c, timecode.VTTSeparator)
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// IndexBody renders one "<start> <text>" line per cue. The format is parsed
// back by ParseIndexBody, so it must stay stable.
func (s *Subtitle) IndexBody() string {
	var b strings.Builder
	for _, c := range s.Cues {
		b.WriteString(timecode.Format(c.StartTime, timecode.VTTSeparator))
		b.WriteByte(' ')
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteSRT writes the SRT rendering to w.
func (s *Subtitle) WriteSRT(w io.Writer) error {
	_, err := io.WriteString(w, s.SRT())
	return err
}

// WriteVTT writes the WebVTT rendering to w.
func (s *Subtitle) WriteVTT(w io.Writer) error {
	_, err := io.WriteString(w, s.VTT())
	return err
}

func writeTiming(b *strings.Builder, c Cue, sep string) {
	b.WriteString(timecode.Format(c.StartTime, sep))
	b.WriteString(" --> ")
	b.WriteString(timecode.Format(c.EndTime, sep))
	b.WriteByte('\n')
}

// IndexLine is one parsed line of an index body.
type IndexLine struct {
	TimeLabel string
	Text      string
}

// ParseIndexBody splits an index body into lines of (time label, text).
// Lines without a space separator are skipped.
func ParseIndexBody(body string) []IndexLine {
	var out []IndexLine
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		label, text, ok := strings.Cut(line, " ")
		if !ok || label == "" {
			continue
		}
		out = append(out, IndexLine{TimeLabel: label, Text: text})
	}
	return out
}
