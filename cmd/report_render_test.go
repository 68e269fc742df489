package cmd

import (
	"bytes"
	"strings"
	"testing"

	"kernelconform/internal/report"
)

func TestReasonCellUsesNotesForPartialPass(t *testing.T) {
	r := report.Partial(0.5, "only display_data observed")
	if got := reasonCell(r); got != r.Notes {
		t.Errorf("reasonCell() = %q, want %q", got, r.Notes)
	}
}

func TestReasonCellUsesReasonForFail(t *testing.T) {
	r := report.Fail("execute_reply status was error", report.FailureUnexpectedContent)
	if got := reasonCell(r); got != r.Reason {
		t.Errorf("reasonCell() = %q, want %q", got, r.Reason)
	}
}

func TestReasonCellTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", 200)
	r := report.Fail(long, report.FailureUnexpectedContent)
	got := reasonCell(r)
	if len(got) >= len(long) {
		t.Errorf("expected reasonCell to truncate a %d-char reason, got %d chars", len(long), len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated reason to end in \"...\", got %q", got)
	}
}

func TestReasonCellEmptyForPass(t *testing.T) {
	if got := reasonCell(report.Pass()); got != "" {
		t.Errorf("reasonCell(Pass()) = %q, want empty", got)
	}
}

func TestRenderTableIncludesScoreFooter(t *testing.T) {
	rep := &report.KernelReport{
		KernelName: "test-kernel",
		Results: []report.TestRecord{
			{Name: "heartbeat", Category: report.Tier1Basic, Result: report.Pass()},
			{Name: "history_request_ok", Category: report.Tier2Interactive, Result: report.Partial(0.5, "partial credit: only tail history returned")},
		},
	}

	var buf bytes.Buffer
	renderTable(&buf, rep)

	out := buf.String()
	if !strings.Contains(out, "2/2") {
		t.Errorf("expected score footer \"2/2\" in table output, got:\n%s", out)
	}
	if !strings.Contains(out, "partial credit") {
		t.Errorf("expected partial-pass Notes text in table output, got:\n%s", out)
	}
}
