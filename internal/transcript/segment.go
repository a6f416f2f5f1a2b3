package transcript

import "github.com/hyperjump/jimaku/internal/subtitle"

// isTerminator reports whether text closes a cue. Only "." and "?" do.
func isTerminator(text string) bool {
	return text == "." || text == "?"
}

type cueState int

const (
	cueEmpty cueState = iota
	cueInProgress
)

// Segment groups tokens into cues in a single pass. A cue starts at the first
// token after the previous terminator, grows with every non-terminator token
// (its end tracking the latest timed token) and closes on a terminator. Any
// trailing text without a terminator becomes the final cue.
func Segment(tokens []Token) []subtitle.Cue {
	var (
		cues  []subtitle.Cue
		cur   subtitle.Cue
		state = cueEmpty
	)

	for _, tok := range tokens {
		switch {
		case state == cueEmpty:
			cur = subtitle.Cue{
				StartTime: valueOr(tok.StartTime, 0),
				EndTime:   valueOr(tok.EndTime, 0),
				Text:      tok.Text,
			}
			state = cueInProgress
		case !isTerminator(tok.Text):
			cur.Text += " " + tok.Text
			if tok.EndTime != nil {
				cur.EndTime = *tok.EndTime
			}
		default:
			cur.Text += tok.Text
			cues = append(cues, cur)
			cur = subtitle.Cue{}
			state = cueEmpty
		}
	}

	if state == cueInProgress {
		cues = append(cues, cur)
	}
	return cues
}

// Subtitle segments the transcript's tokens into a new subtitle.
func (t *Transcript) Subtitle() *subtitle.Subtitle {
	return subtitle.New(Segment(t.tokens))
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
