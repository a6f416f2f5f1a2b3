package contenthash

import (
	"errors"
	"strings"
	"testing"
)

func TestSumBytes(t *testing.T) {
	a := SumBytes([]byte(`{"status":"COMPLETED"}`))
	b := SumBytes([]byte(`{"status":"COMPLETED"}`))
	c := SumBytes([]byte(`{"status":"FAILED"}`))
	if a != b {
		t.Errorf("same content should hash equal: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different content should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestSum_MatchesSumBytes(t *testing.T) {
	got, err := Sum(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if got != SumBytes([]byte("hello")) {
		t.Error("Sum and SumBytes disagree")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSum_ReadError(t *testing.T) {
	if _, err := Sum(failingReader{}); err == nil {
		t.Error("expected read error")
	}
}
