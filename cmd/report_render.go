package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"kernelconform/internal/report"
	kstrings "kernelconform/pkg/strings"
)

// renderTable writes rep as a human-readable table to w, one row per
// check plus a trailing score summary.
func renderTable(w io.Writer, rep *report.KernelReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Tier", "Check", "Result", "Duration", "Reason"})

	for _, rec := range rep.Results {
		t.AppendRow(table.Row{
			rec.Category.Description(),
			rec.Name,
			resultCell(rec.Result),
			time.Duration(rec.Duration).String(),
			reasonCell(rec.Result),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "Score", fmt.Sprintf("%d/%d", rep.Passed(), rep.Total())})
	t.Render()
}

// reasonCell picks the field that actually carries the explanation for the
// row's status: Notes for partial passes, Reason for everything else.
func reasonCell(r report.TestResult) string {
	explanation := r.Reason
	if r.Status == report.StatusPartialPass {
		explanation = r.Notes
	}
	return kstrings.TruncateDescription(explanation, kstrings.DefaultDescriptionMaxLen)
}

func resultCell(r report.TestResult) string {
	symbol := r.Symbol()
	switch r.Status {
	case report.StatusPass:
		return text.Colors{text.FgGreen}.Sprintf("%s %s", symbol, r.Status)
	case report.StatusFail, report.StatusTimeout:
		return text.Colors{text.FgRed}.Sprintf("%s %s", symbol, r.Status)
	case report.StatusPartialPass:
		return text.Colors{text.FgYellow}.Sprintf("%s %s", symbol, r.Status)
	default:
		return fmt.Sprintf("%s %s", symbol, r.Status)
	}
}

// renderJSON writes rep to w as indented JSON.
func renderJSON(w io.Writer, rep *report.KernelReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
