package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/spigell/hh-ranker/internal/ranking"
	"github.com/spigell/hh-ranker/internal/utils"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	titleWidth = 40
)

var (
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen)
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	return table
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// printRanking writes the top results either as a table or as JSON.
func printRanking(w io.Writer, r *ranking.Ranking, top int, format string) error {
	if format == outputJSON {
		view := *r
		view.Results = r.Top(top)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	if format != outputTable {
		return fmt.Errorf("unknown output format: %q", format)
	}

	table := newTable(w, []string{"rank", "job", "title", "score", "fit", "bandit", "skills"})
	for _, res := range r.Top(top) {
		if err := table.Append([]string{
			strconv.Itoa(res.Rank),
			res.JobID,
			utils.TruncateForLog(res.Title, titleWidth),
			formatScore(res.Score),
			formatScore(res.Fit),
			formatScore(res.Bandit),
			formatScore(res.Breakdown.Skills),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d of %d jobs scored in %s (request %s)\n", r.Scored, r.Total, r.Elapsed, r.RequestID)
	if r.Partial || r.OverBudget {
		warnColor.Fprint(w, summary)
		return nil
	}
	okColor.Fprint(w, summary)
	return nil
}
