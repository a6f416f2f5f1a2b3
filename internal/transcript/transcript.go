// Package transcript decodes speech recognition output and groups its word
// tokens into subtitle cues.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/jimaku/internal/models"
)

// Token kinds as tagged by the transcription source.
const (
	KindPronunciation = "pronunciation"
	KindPunctuation   = "punctuation"
)

// Token is one recognized unit of speech. Punctuation usually carries no timing.
type Token struct {
	Kind      string
	Text      string
	StartTime *float64
	EndTime   *float64
}

// Transcript is a decoded transcription job result.
type Transcript struct {
	JobName   string
	AccountID string
	Status    string
	tokens    []Token
}

// Tokens returns the recognized tokens in order of occurrence.
func (t *Transcript) Tokens() []Token {
	return t.tokens
}

type rawTranscript struct {
	JobName   string `json:"jobName"`
	AccountID string `json:"accountId"`
	Status    string `json:"status"`
	Results   struct {
		Items []rawItem `json:"items"`
	} `json:"results"`
}

type rawItem struct {
	Type         *string          `json:"type"`
	Alternatives []rawAlternative `json:"alternatives"`
	StartTime    *string          `json:"start_time"`
	EndTime      *string          `json:"end_time"`
}

type rawAlternative struct {
	Confidence string  `json:"confidence"`
	Content    *string `json:"content"`
}

// Parse decodes a transcription document. Any malformed item fails the whole
// parse with models.ErrParse.
func Parse(r io.Reader) (*Transcript, error) {
	var raw rawTranscript
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode transcript: %w", models.ErrParse, err)
	}

	tokens := make([]Token, 0, len(raw.Results.Items))
	for i, item := range raw.Results.Items {
		tok, err := item.token()
		if err != nil {
			return nil, fmt.Errorf("%w: transcript item %d: %w", models.ErrParse, i, err)
		}
		tokens = append(tokens, tok)
	}

	return &Transcript{
		JobName:   raw.JobName,
		AccountID: raw.AccountID,
		Status:    raw.Status,
		tokens:    tokens,
	}, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Transcript, error) {
	return Parse(bytes.NewReader(data))
}

func (item rawItem) token() (Token, error) {
	if item.Type == nil {
		return Token{}, fmt.Errorf("missing type")
	}
	if len(item.Alternatives) == 0 {
		return Token{}, fmt.Errorf("missing alternatives")
	}
	content := item.Alternatives[0].Content
	if content == nil {
		return Token{}, fmt.Errorf("missing content")
	}
	return Token{
		Kind:      *item.Type,
		Text:      *content,
		StartTime: parseSeconds(item.StartTime),
		EndTime:   parseSeconds(item.EndTime),
	}, nil
}

// parseSeconds treats unparseable or negative values as absent.
func parseSeconds(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
