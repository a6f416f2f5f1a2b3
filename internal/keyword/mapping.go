package keyword

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/jimaku/internal/language"
)

const (
	// CJKAnalyzerName is the analyzer registered for Japanese and Chinese:
	// ideographs and kana are indexed as overlapping bigrams.
	CJKAnalyzerName = "lang_cjk"
	// KoreanAnalyzerName is the analyzer registered for Korean. Hangul words
	// are agglutinative, so every word is indexed as its syllable unigrams
	// and bigrams.
	KoreanAnalyzerName = "lang_ko"

	koreanNgramFilter = "ko_ngram"
	docType           = "cue"
)

// AnalyzerFor returns the body analyzer used for lang.
func AnalyzerFor(lang string) string {
	if !language.NeedsSegmentation(lang) {
		return standard.Name
	}
	if language.MustNormalize(lang) == "ko" {
		return KoreanAnalyzerName
	}
	return CJKAnalyzerName
}

func registerAnalyzer(im *mapping.IndexMappingImpl, name string) error {
	switch name {
	case CJKAnalyzerName:
		return im.AddCustomAnalyzer(CJKAnalyzerName, map[string]interface{}{
			"type":      custom.Name,
			"tokenizer": unicode.Name,
			"token_filters": []interface{}{
				cjk.WidthName,
				lowercase.Name,
				cjk.BigramName,
			},
		})
	case KoreanAnalyzerName:
		err := im.AddCustomTokenFilter(koreanNgramFilter, map[string]interface{}{
			"type": ngram.Name,
			"min":  1.0,
			"max":  2.0,
		})
		if err != nil {
			return err
		}
		return im.AddCustomAnalyzer(KoreanAnalyzerName, map[string]interface{}{
			"type":      custom.Name,
			"tokenizer": unicode.Name,
			"token_filters": []interface{}{
				cjk.WidthName,
				lowercase.Name,
				koreanNgramFilter,
			},
		})
	}
	return nil
}

// NewIndexMapping builds the cue mapping for lang. A non-default analyzer is
// registered before any field refers to it and persists with the index.
func NewIndexMapping(lang string) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	analyzer := AnalyzerFor(lang)
	if err := registerAnalyzer(im, analyzer); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()

	videoID := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(FieldVideoID, videoID)

	timeLabel := bleve.NewKeywordFieldMapping()
	timeLabel.IncludeInAll = false
	timeLabel.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(FieldTimeLabel, timeLabel)

	body := bleve.NewTextFieldMapping()
	body.Analyzer = analyzer
	docMapping.AddFieldMappingsAt(FieldBody, body)

	im.AddDocumentMapping(docType, docMapping)
	im.DefaultType = docType
	im.DefaultMapping = docMapping
	// Unqualified query terms search _all and are analyzed like the body.
	im.DefaultAnalyzer = analyzer

	return im, nil
}
