package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hyperjump/jimaku/internal/language"
	"github.com/hyperjump/jimaku/internal/models"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// WriteVideos writes a table of video records with their subtitle languages.
func WriteVideos(w io.Writer, videos []*models.Video) error {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		transcribed := "-"
		if v.TranscribedAt != nil {
			transcribed = v.TranscribedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			v.ID,
			Truncate(v.Title, 40),
			language.DisplayName(v.Language),
			strings.Join(v.Subtitles, ","),
			transcribed,
		})
	}
	out := renderTable([]string{"ID", "Title", "Language", "Subtitles", "Transcribed"}, rows, nil)
	_, err := fmt.Fprintln(w, out)
	return err
}

// WriteDocCounts writes a table of indexed cue counts per language.
func WriteDocCounts(w io.Writer, counts map[string]uint64, langs []string) error {
	rows := make([][]string, 0, len(langs))
	for _, lang := range langs {
		rows = append(rows, []string{lang, language.DisplayName(lang), strconv.FormatUint(counts[lang], 10)})
	}
	out := renderTable([]string{"Lang", "Name", "Cues"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
	_, err := fmt.Fprintln(w, out)
	return err
}
