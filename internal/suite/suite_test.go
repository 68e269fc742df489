package suite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernelconform/internal/checks"
	"kernelconform/internal/kernelspec"
	"kernelconform/internal/report"
)

func TestOrderChecksPinsShutdownLastEvenWhenTier1Unrequested(t *testing.T) {
	catalog := []checks.Check{
		{Name: checks.ShutdownCheckName, Category: report.Tier1Basic},
		{Name: "tier2-a", Category: report.Tier2Interactive},
		{Name: "tier3-a", Category: report.Tier3RichOutput},
	}

	ordered := orderChecks(catalog, []report.TestCategory{report.Tier2Interactive, report.Tier3RichOutput})

	require.Len(t, ordered, 3)
	assert.Equal(t, checks.ShutdownCheckName, ordered[len(ordered)-1].Name)
}

func TestOrderChecksSkipsUnrequestedTiers(t *testing.T) {
	catalog := []checks.Check{
		{Name: checks.ShutdownCheckName, Category: report.Tier1Basic},
		{Name: "tier1-a", Category: report.Tier1Basic},
		{Name: "tier2-a", Category: report.Tier2Interactive},
		{Name: "tier4-a", Category: report.Tier4Advanced},
	}

	ordered := orderChecks(catalog, []report.TestCategory{report.Tier1Basic})

	var names []string
	for _, c := range ordered {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"tier1-a", checks.ShutdownCheckName}, names)
}

func TestOrderChecksPreservesCatalogOrderWithinSelectedTiers(t *testing.T) {
	catalog := []checks.Check{
		{Name: "tier1-a", Category: report.Tier1Basic},
		{Name: "tier1-b", Category: report.Tier1Basic},
		{Name: checks.ShutdownCheckName, Category: report.Tier1Basic},
	}

	ordered := orderChecks(catalog, []report.TestCategory{report.Tier1Basic})

	var names []string
	for _, c := range ordered {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"tier1-a", "tier1-b", checks.ShutdownCheckName}, names)
}

func TestRunReturnsStartupFailureWhenKernelCannotLaunch(t *testing.T) {
	spec := kernelspec.KernelSpec{
		Name:     "nonexistent-kernel",
		Language: "python",
		Argv:     []string{"/nonexistent/path/to/kernel-binary-xyz", "{connection_file}"},
	}

	rep := Run(context.Background(), spec, []report.TestCategory{report.Tier1Basic}, 500*time.Millisecond, checks.All())

	require.True(t, rep.HasStartupError())
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "kernel_startup", rep.Results[0].Name)
	assert.Equal(t, report.StatusFail, rep.Results[0].Result.Status)
}
