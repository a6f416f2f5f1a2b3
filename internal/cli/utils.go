// Package cli provides output helpers for the jimaku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text.
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
	// OutputTable is a bordered table.
	OutputTable SearchOutputFormat = "table"
	// OutputAuto picks OutputTable on a terminal and OutputJSON otherwise.
	OutputAuto SearchOutputFormat = "auto"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON, OutputTable, OutputAuto:
		return f, nil
	case "":
		return OutputAuto, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, table, json or auto)", s)
	}
}

// ResolveFormat turns OutputAuto into a concrete format for w.
func ResolveFormat(w io.Writer, format SearchOutputFormat) SearchOutputFormat {
	if format != OutputAuto {
		return format
	}
	if IsTerminal(w) {
		return OutputTable
	}
	return OutputJSON
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch ResolveFormat(w, format) {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputTable:
		return writeSearchResultsTable(w, response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q [%s] in %dms\n\n",
		response.Total, response.Query, response.Language, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	writeDidYouMean(w, response)
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d  %s  @ %s\n", result.Rank, result.VideoID, result.TimeLabel)
	fmt.Fprintf(w, "\n%s\n", Truncate(result.Body, 200))
	fmt.Fprintln(w)
}

func writeDidYouMean(w io.Writer, response *models.SearchResponse) {
	if response.DidYouMean != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", response.DidYouMean)
	}
}

func writeSearchResultsTable(w io.Writer, response *models.SearchResponse) error {
	rows := make([][]string, 0, len(response.Results))
	for _, r := range response.Results {
		rows = append(rows, []string{strconv.Itoa(r.Rank), r.VideoID, r.TimeLabel, TruncateWords(r.Body, 16)})
	}
	out := renderTable(
		[]string{"#", "Video", "Time", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}
	if response.DidYouMean != "" {
		writeDidYouMean(w, response)
	}
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
