package checks

import (
	"context"
	"fmt"

	"kernelconform/internal/driver"
	"kernelconform/internal/report"
	"kernelconform/internal/wire"
)

var tier2Checks = []Check{
	{
		Name:        "complete_request_ok",
		Category:    report.Tier2Interactive,
		Description: "complete_request after defining completion_var returns complete_reply ok",
		MessageType: "complete_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			snippets := k.Snippets()
			if _, _, err := k.ExecuteAndCollect(ctx, snippets.CompletionSetup); err != nil {
				return classifyError(err)
			}

			reply, err := k.ShellRequest(ctx, "complete_request", wire.CompleteRequest{
				Code:      snippets.CompletionPrefix,
				CursorPos: len(snippets.CompletionPrefix),
			})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "complete_reply" {
				return report.Fail(fmt.Sprintf("expected complete_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			var content wire.CompleteReply
			if err := reply.DecodeContent(&content); err != nil {
				return report.Fail("decoding complete_reply: "+err.Error(), report.FailureProtocolError)
			}
			if content.Status != "ok" {
				return report.Fail(fmt.Sprintf("complete_reply status was %q", content.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
	{
		Name:        "inspect_request_ok",
		Category:    report.Tier2Interactive,
		Description: "inspect_request on completion_var returns inspect_reply ok",
		MessageType: "inspect_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			snippets := k.Snippets()
			if _, _, err := k.ExecuteAndCollect(ctx, snippets.CompletionSetup); err != nil {
				return classifyError(err)
			}

			reply, err := k.ShellRequest(ctx, "inspect_request", wire.InspectRequest{
				Code:      snippets.CompletionVar,
				CursorPos: len(snippets.CompletionVar),
			})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "inspect_reply" {
				return report.Fail(fmt.Sprintf("expected inspect_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			var content wire.InspectReply
			if err := reply.DecodeContent(&content); err != nil {
				return report.Fail("decoding inspect_reply: "+err.Error(), report.FailureProtocolError)
			}
			if content.Status != "ok" {
				return report.Fail(fmt.Sprintf("inspect_reply status was %q", content.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
	{
		Name:        "is_complete_complete_code",
		Category:    report.Tier2Interactive,
		Description: "is_complete_request on complete_code returns status complete",
		MessageType: "is_complete_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			return isCompleteResult(ctx, k, k.Snippets().CompleteCode, "complete")
		},
	},
	{
		Name:        "is_complete_incomplete_code",
		Category:    report.Tier2Interactive,
		Description: "is_complete_request on incomplete_code returns status incomplete",
		MessageType: "is_complete_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			return isCompleteResult(ctx, k, k.Snippets().IncompleteCode, "incomplete")
		},
	},
	{
		Name:        "history_request_ok",
		Category:    report.Tier2Interactive,
		Description: "history_request (tail n=10, raw, no output) is answered with a history_reply (the reply's status is not checked)",
		MessageType: "history_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, err := k.ShellRequest(ctx, "history_request", wire.HistoryRequest{
				HistAccessType: "tail",
				N:              10,
				Raw:            true,
				Output:         false,
			})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "history_reply" {
				return report.Fail(fmt.Sprintf("expected history_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			return report.Pass()
		},
	},
	{
		Name:        "comm_info_request_ok",
		Category:    report.Tier2Interactive,
		Description: "comm_info_request with no target filter returns comm_info_reply ok",
		MessageType: "comm_info_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, err := k.ShellRequest(ctx, "comm_info_request", wire.CommInfoRequest{})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "comm_info_reply" {
				return report.Fail(fmt.Sprintf("expected comm_info_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			var content wire.CommInfoReply
			if err := reply.DecodeContent(&content); err != nil {
				return report.Fail("decoding comm_info_reply: "+err.Error(), report.FailureProtocolError)
			}
			if content.Status != "ok" {
				return report.Fail(fmt.Sprintf("comm_info_reply status was %q", content.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
	{
		Name:        "syntax_error_reported",
		Category:    report.Tier2Interactive,
		Description: "executing syntax_error produces an execute_reply error or an error_output broadcast",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().SyntaxError)
			if err != nil {
				return classifyError(err)
			}

			var execReply wire.ExecuteReply
			if decodeErr := reply.DecodeContent(&execReply); decodeErr == nil && execReply.Status == "error" {
				return report.Pass()
			}
			for _, b := range broadcasts {
				if b.Header.MsgType == "error" {
					return report.Pass()
				}
			}
			return report.Fail("syntax error produced neither an execute_reply error nor an error_output broadcast", report.FailureUnexpectedContent)
		},
	},
}

// isCompleteResult runs is_complete_request on code and checks its
// status against want, awarding partial credit when the kernel
// responded but disagreed about completeness.
func isCompleteResult(ctx context.Context, k *driver.KernelUnderTest, code, want string) report.TestResult {
	reply, err := k.ShellRequest(ctx, "is_complete_request", wire.IsCompleteRequest{Code: code})
	if err != nil {
		return classifyError(err)
	}
	if reply.Header.MsgType != "is_complete_reply" {
		return report.Fail(fmt.Sprintf("expected is_complete_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
	}
	var content wire.IsCompleteReply
	if err := reply.DecodeContent(&content); err != nil {
		return report.Fail("decoding is_complete_reply: "+err.Error(), report.FailureProtocolError)
	}
	if content.Status == want {
		return report.Pass()
	}
	return report.Partial(0.5, fmt.Sprintf("expected is_complete status %q, got %q", want, content.Status))
}
