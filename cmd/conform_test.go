package cmd

import (
	"errors"
	"testing"

	"kernelconform/internal/harnesserr"
	"kernelconform/internal/report"
)

func TestParseTiersAcceptsCanonicalNames(t *testing.T) {
	tiers, err := parseTiers([]string{"tier1_basic", "tier3_rich_output"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiers) != 2 || tiers[0] != report.Tier1Basic || tiers[1] != report.Tier3RichOutput {
		t.Errorf("unexpected tiers: %v", tiers)
	}
}

func TestParseTiersAcceptsAliases(t *testing.T) {
	tiers, err := parseTiers([]string{"basic", "advanced"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiers) != 2 || tiers[0] != report.Tier1Basic || tiers[1] != report.Tier4Advanced {
		t.Errorf("unexpected tiers: %v", tiers)
	}
}

func TestParseTiersRejectsUnknownName(t *testing.T) {
	if _, err := parseTiers([]string{"tier9_nonexistent"}); err == nil {
		t.Error("expected an error for an unknown tier name")
	}
}

func TestParseTiersRejectsEmptySelection(t *testing.T) {
	if _, err := parseTiers(nil); err == nil {
		t.Error("expected an error for an empty tier selection")
	}
}

func TestNewConformCmdHasExpectedFlags(t *testing.T) {
	cmd := newConformCmd()
	for _, name := range []string{"language", "display-name", "tier", "timeout", "format", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected a %q flag", name)
		}
	}
}

func TestRunConformReturnsLaunchErrorForMissingBinary(t *testing.T) {
	conformTiers = []string{"tier1_basic"}
	conformTimeout = 200_000_000 // 200ms, in time.Duration's nanosecond units
	conformFormat = "json"
	conformDisplay = ""
	conformLanguage = "python"

	cmd := newConformCmd()
	err := runConform(cmd, []string{"nonexistent-kernel-xyz", "/nonexistent/path/to/kernel-binary"})
	if err == nil {
		t.Fatal("expected a launch error")
	}
	var launchErr *harnesserr.LaunchError
	if !errors.As(err, &launchErr) {
		t.Errorf("expected a *harnesserr.LaunchError, got %T: %v", err, err)
	}
}
