package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kernelconform/internal/checks"
	"kernelconform/internal/harnesserr"
	"kernelconform/internal/kernelspec"
	"kernelconform/internal/report"
	"kernelconform/internal/suite"
	"kernelconform/pkg/logging"
)

var (
	conformLanguage string
	conformDisplay  string
	conformTiers    []string
	conformTimeout  time.Duration
	conformFormat   string
	conformVerbose  bool
)

var allTierNames = []string{"tier1_basic", "tier2_interactive", "tier3_rich_output", "tier4_advanced"}

// newConformCmd creates the Cobra command that runs the conformance
// suite against one kernel.
func newConformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conform <kernel-name> -- <argv...>",
		Short: "Run the conformance suite against a kernel",
		Long: `conform launches the named kernel by executing the argv given after
"--" (with "{connection_file}" replaced by the connection descriptor
path, or the path appended if no placeholder is present), drives it
through the check catalog, and prints a conformance report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConform,
	}

	cmd.Flags().StringVar(&conformLanguage, "language", "python", "initial snippet-table language guess")
	cmd.Flags().StringVar(&conformDisplay, "display-name", "", "human-readable label for the report (defaults to kernel name)")
	cmd.Flags().StringSliceVar(&conformTiers, "tier", allTierNames, "tiers to run (tier1_basic, tier2_interactive, tier3_rich_output, tier4_advanced)")
	cmd.Flags().DurationVar(&conformTimeout, "timeout", 10*time.Second, "per-check deadline")
	cmd.Flags().StringVar(&conformFormat, "format", "table", "output format: table or json")
	cmd.Flags().BoolVarP(&conformVerbose, "verbose", "v", false, "enable debug logging to stderr")

	return cmd
}

func runConform(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if conformVerbose {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	name := args[0]
	argv := args[1:]
	if len(argv) == 0 {
		argv = []string{name}
	}

	displayName := conformDisplay
	if displayName == "" {
		displayName = name
	}

	tiers, err := parseTiers(conformTiers)
	if err != nil {
		return err
	}

	spec := kernelspec.KernelSpec{
		Name:        name,
		DisplayName: displayName,
		Language:    conformLanguage,
		Argv:        argv,
	}

	rep := suite.Run(context.Background(), spec, tiers, conformTimeout, checks.All())

	if rep.HasStartupError() {
		err := fmt.Errorf("%s", rep.StartupError)
		if conformFormat == "json" {
			_ = renderJSON(cmd.OutOrStdout(), rep)
		}
		return &harnesserr.LaunchError{Kernel: name, Err: err}
	}

	switch conformFormat {
	case "json":
		if err := renderJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	default:
		renderTable(cmd.OutOrStdout(), rep)
	}

	if failed := rep.Total() - rep.Passed(); failed > 0 {
		return &harnesserr.ReportFailedError{Kernel: name, Failed: failed, Total: rep.Total()}
	}
	return nil
}

func parseTiers(names []string) ([]report.TestCategory, error) {
	tiers := make([]report.TestCategory, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(n) {
		case "tier1_basic", "tier1", "basic":
			tiers = append(tiers, report.Tier1Basic)
		case "tier2_interactive", "tier2", "interactive":
			tiers = append(tiers, report.Tier2Interactive)
		case "tier3_rich_output", "tier3", "rich_output":
			tiers = append(tiers, report.Tier3RichOutput)
		case "tier4_advanced", "tier4", "advanced":
			tiers = append(tiers, report.Tier4Advanced)
		default:
			return nil, fmt.Errorf("unknown tier %q (want one of %s)", n, strings.Join(allTierNames, ", "))
		}
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers requested")
	}
	return tiers, nil
}
