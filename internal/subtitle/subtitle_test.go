package subtitle

import (
	"bytes"
	"strings"
	"testing"
)

func sampleSubtitle() *Subtitle {
	return New([]Cue{
		{StartTime: 0, EndTime: 1.0, Text: "Hello world."},
		{StartTime: 1.5, EndTime: 3725.125, Text: "How are you?"},
	})
}

func TestSRT(t *testing.T) {
	want := "1\n00:00:00,000 --> 00:00:01,000\nHello world.\n\n" +
		"2\n00:00:01,500 --> 01:02:05,125\nHow are you?\n\n"
	if got := sampleSubtitle().SRT(); got != want {
		t.Errorf("SRT() =\n%q\nwant\n%q", got, want)
	}
}

func TestVTT(t *testing.T) {
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:01.000\nHello world.\n\n" +
		"00:00:01.500 --> 01:02:05.125\nHow are you?\n\n"
	if got := sampleSubtitle().VTT(); got != want {
		t.Errorf("VTT() =\n%q\nwant\n%q", got, want)
	}
}

func TestIndexBody(t *testing.T) {
	want := "00:00:00.000 Hello world.\n00:00:01.500 How are you?\n"
	if got := sampleSubtitle().IndexBody(); got != want {
		t.Errorf("IndexBody() = %q, want %q", got, want)
	}
}

func TestEmptySubtitle(t *testing.T) {
	s := New(nil)
	if s.SRT() != "" {
		t.Errorf("empty SRT = %q", s.SRT())
	}
	if s.VTT() != "WEBVTT\n\n" {
		t.Errorf("empty VTT = %q", s.VTT())
	}
	if s.IndexBody() != "" {
		t.Errorf("empty index body = %q", s.IndexBody())
	}
}

func TestSRTAndVTTCarrySameCues(t *testing.T) {
	s := sampleSubtitle()
	srtBlocks := strings.Split(strings.TrimSpace(s.SRT()), "\n\n")
	vttBlocks := strings.Split(strings.TrimSpace(strings.TrimPrefix(s.VTT(), "WEBVTT\n\n")), "\n\n")
	if len(srtBlocks) != s.Len() || len(vttBlocks) != s.Len() {
		t.Fatalf("blocks: srt=%d vtt=%d cues=%d", len(srtBlocks), len(vttBlocks), s.Len())
	}
	for i := range srtBlocks {
		srtLines := strings.Split(srtBlocks[i], "\n")
		vttLines := strings.Split(vttBlocks[i], "\n")
		if srtLines[2] != vttLines[1] {
			t.Errorf("cue %d text differs: %q vs %q", i, srtLines[2], vttLines[1])
		}
		if strings.ReplaceAll(srtLines[1], ",", ".") != vttLines[0] {
			t.Errorf("cue %d timing differs: %q vs %q", i, srtLines[1], vttLines[0])
		}
	}
}

func TestRenderingIsIdempotent(t *testing.T) {
	s := sampleSubtitle()
	if s.SRT() != s.SRT() || s.VTT() != s.VTT() || s.IndexBody() != s.IndexBody() {
		t.Error("rendering the same subtitle twice should produce identical output")
	}
}

func TestWriteSRTAndVTT(t *testing.T) {
	s := sampleSubtitle()
	var srt, vtt bytes.Buffer
	if err := s.WriteSRT(&srt); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteVTT(&vtt); err != nil {
		t.Fatal(err)
	}
	if srt.String() != s.SRT() || vtt.String() != s.VTT() {
		t.Error("writer output should match string rendering")
	}
}

func TestParseIndexBody(t *testing.T) {
	body := sampleSubtitle().IndexBody() + "garbage\n\r\n00:00:09.000 trailing line"
	lines := ParseIndexBody(body)
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %+v", len(lines), lines)
	}
	if lines[0].TimeLabel != "00:00:00.000" || lines[0].Text != "Hello world." {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[1].TimeLabel != "00:00:01.500" || lines[1].Text != "How are you?" {
		t.Errorf("line 1 = %+v", lines[1])
	}
	if lines[2].Text != "trailing line" {
		t.Errorf("line 2 = %+v", lines[2])
	}
}
