package keyword

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/hyperjump/jimaku/internal/models"
)

// TermDictionary exposes the indexed body terms with their document frequency.
type TermDictionary interface {
	BodyTerms() (map[string]int, error)
}

// Suggester proposes a corrected query from the terms of an index.
type Suggester struct {
	dictionary  TermDictionary
	maxDistance int
	minFreq     int
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance of a correction.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms that occur in fewer documents.
func WithMinFrequency(f int) SuggesterOption {
	return func(s *Suggester) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// NewSuggester creates a suggester over dict.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{dictionary: dict, maxDistance: 2, minFreq: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns query with every unknown term replaced by its closest
// indexed term. ok is false when nothing was corrected.
func (s *Suggester) Suggest(query string) (corrected string, ok bool, err error) {
	terms, err := s.dictionary.BodyTerms()
	if err != nil {
		return "", false, err
	}
	words := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, known := terms[w]; known || !isPlainTerm(w) {
			out = append(out, w)
			continue
		}
		if best, found := s.closest(w, terms); found {
			out = append(out, best)
			ok = true
			continue
		}
		out = append(out, w)
	}
	if !ok {
		return "", false, nil
	}
	return strings.Join(out, " "), true, nil
}

type candidate struct {
	term     string
	distance int
	freq     int
}

// closest finds the best correction for word. Distances are bleve's byte
// Levenshtein distance, bounded by maxDistance.
func (s *Suggester) closest(word string, terms map[string]int) (string, bool) {
	var (
		cands   []candidate
		scratch []int
	)
	for term, freq := range terms {
		if freq < s.minFreq {
			continue
		}
		var (
			d        int
			exceeded bool
		)
		d, exceeded, scratch = search.LevenshteinDistanceMaxReuseSlice(word, term, s.maxDistance, scratch)
		if !exceeded && d <= s.maxDistance {
			cands = append(cands, candidate{term: term, distance: d, freq: freq})
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].distance != cands[j].distance {
			return cands[i].distance < cands[j].distance
		}
		if cands[i].freq != cands[j].freq {
			return cands[i].freq > cands[j].freq
		}
		return cands[i].term < cands[j].term
	})
	return cands[0].term, true
}

// isPlainTerm excludes query syntax (fields, operators, phrases) from correction.
func isPlainTerm(w string) bool {
	return len([]rune(w)) > 2 && !strings.ContainsAny(w, `:"+-*?~^()\/`)
}

// BodyTerms returns every term of the body field with its document frequency.
func (li *LanguageIndex) BodyTerms() (map[string]int, error) {
	dict, err := li.index.FieldDict(FieldBody)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s term dictionary: %w", models.ErrService, li.lang, err)
	}
	defer dict.Close()

	terms := make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s term dictionary: %w", models.ErrService, li.lang, err)
		}
		if entry == nil {
			return terms, nil
		}
		terms[entry.Term] = int(entry.Count)
	}
}

// Suggest proposes a corrected query for languages with word-delimited text.
func (r *Registry) Suggest(lang, query string) (string, bool, error) {
	if AnalyzerFor(lang) != standard.Name || !r.Exists(lang) {
		return "", false, nil
	}
	li, err := r.Index(lang)
	if err != nil {
		return "", false, err
	}
	return NewSuggester(li).Suggest(query)
}
