package checks

import (
	"context"

	"kernelconform/internal/driver"
	"kernelconform/internal/report"
	"kernelconform/internal/snippets"
)

var tier3Checks = []Check{
	{
		Name:        "simple_expr_execute_result",
		Category:    report.Tier3RichOutput,
		Description: "executing simple_expr emits an execute_result broadcast",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			code := k.Snippets().SimpleExpr
			if snippets.IsUnsupported(code) {
				return report.Unsupported()
			}
			_, broadcasts, err := k.ExecuteAndCollect(ctx, code)
			if err != nil {
				return classifyError(err)
			}
			if hasMsgType(broadcasts, "execute_result") {
				return report.Pass()
			}
			return report.Fail("no execute_result broadcast observed", report.FailureUnexpectedContent)
		},
	},
	{
		Name:        "display_data_emitted",
		Category:    report.Tier3RichOutput,
		Description: "executing display_data_code emits a display_data broadcast",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			code := k.Snippets().DisplayDataCode
			if snippets.IsUnsupported(code) {
				return report.Unsupported()
			}
			_, broadcasts, err := k.ExecuteAndCollect(ctx, code)
			if err != nil {
				return classifyError(err)
			}
			if hasMsgType(broadcasts, "display_data") {
				return report.Pass()
			}
			// Absence of display_data is a capability gap, not a protocol
			// violation: kernels without rich display simply never send it.
			return report.Unsupported()
		},
	},
	{
		Name:        "update_display_data_emitted",
		Category:    report.Tier3RichOutput,
		Description: "executing update_display_data_code emits both display_data and update_display_data",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			code := k.Snippets().UpdateDisplayDataCode
			if snippets.IsUnsupported(code) {
				return report.Unsupported()
			}
			_, broadcasts, err := k.ExecuteAndCollect(ctx, code)
			if err != nil {
				return classifyError(err)
			}

			sawDisplay := hasMsgType(broadcasts, "display_data")
			sawUpdate := hasMsgType(broadcasts, "update_display_data")

			switch {
			case sawDisplay && sawUpdate:
				return report.Pass()
			case sawDisplay:
				return report.Partial(0.5, "saw display_data but no update_display_data")
			default:
				return report.Fail("neither display_data nor update_display_data observed", report.FailureUnexpectedContent)
			}
		},
	},
}
