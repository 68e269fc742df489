package checks

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"kernelconform/internal/driver"
	"kernelconform/internal/report"
	"kernelconform/internal/snippets"
	"kernelconform/internal/wire"
)

var tier4Checks = []Check{
	{
		Name:        "stdin_input_request_round_trip",
		Category:    report.Tier4Advanced,
		Description: "stdin input_request round trip via execute_with_stdin",
		MessageType: "input_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			code := k.Snippets().InputPrompt
			if snippets.IsUnsupported(code) {
				return report.Unsupported()
			}

			reply, _, sawInputRequest, err := k.ExecuteWithStdin(ctx, code, "test_input_42")
			if err != nil {
				return classifyError(err)
			}
			if !sawInputRequest {
				return report.Fail("no input_request observed on stdin", report.FailureUnexpectedContent)
			}
			return requireExecuteReplyOk(reply)
		},
	},
	{
		Name:        "comm_lifecycle",
		Category:    report.Tier4Advanced,
		Description: "comm_open to an unregistered target is rejected or the kernel stays responsive afterwards",
		MessageType: "comm_open",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			commID := freshUUID()
			rejected, err := k.SendCommOpen(ctx, commID, "kernelconform-unregistered-target", nil)
			if err != nil {
				return classifyError(err)
			}
			if rejected {
				return report.Pass()
			}

			if err := k.SendCommClose(ctx, commID, nil); err != nil {
				return classifyError(err)
			}
			reply, _, err := k.ExecuteAndCollect(ctx, k.Snippets().CompleteCode)
			if err != nil {
				return classifyError(err)
			}
			return requireExecuteReplyOk(reply)
		},
	},
	{
		Name:        "interrupt_request_ok",
		Category:    report.Tier4Advanced,
		Description: "interrupt_request on control returns interrupt_reply ok",
		MessageType: "interrupt_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, err := k.ControlRequest(ctx, "interrupt_request", wire.InterruptRequest{})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "interrupt_reply" {
				return report.Fail(fmt.Sprintf("expected interrupt_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			var content wire.InterruptReply
			if err := reply.DecodeContent(&content); err != nil {
				return report.Fail("decoding interrupt_reply: "+err.Error(), report.FailureProtocolError)
			}
			if content.Status != "ok" {
				return report.Fail(fmt.Sprintf("interrupt_reply status was %q", content.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
	{
		Name:        "execution_count_increments",
		Category:    report.Tier4Advanced,
		Description: "two successive executes of complete_code produce strictly increasing execution counts",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			code := k.Snippets().CompleteCode

			first, _, err := k.ExecuteAndCollect(ctx, code)
			if err != nil {
				return classifyError(err)
			}
			second, _, err := k.ExecuteAndCollect(ctx, code)
			if err != nil {
				return classifyError(err)
			}

			var firstReply, secondReply wire.ExecuteReply
			if err := first.DecodeContent(&firstReply); err != nil {
				return report.Fail("decoding first execute_reply: "+err.Error(), report.FailureProtocolError)
			}
			if err := second.DecodeContent(&secondReply); err != nil {
				return report.Fail("decoding second execute_reply: "+err.Error(), report.FailureProtocolError)
			}
			if secondReply.ExecutionCount <= firstReply.ExecutionCount {
				return report.Fail(fmt.Sprintf("execution_count did not increase: %d then %d", firstReply.ExecutionCount, secondReply.ExecutionCount), report.FailureUnexpectedContent)
			}
			return report.Pass()
		},
	},
	{
		Name:        "parent_header_always_present",
		Category:    report.Tier4Advanced,
		Description: "every iopub message and the final reply of a simple execution carry a non-empty parent_header",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().CompleteCode)
			if err != nil {
				return classifyError(err)
			}
			if reply.ParentHeader.MsgID == "" {
				return report.Fail("execute_reply had an empty parent_header", report.FailureUnexpectedContent)
			}
			for _, b := range broadcasts {
				if b.ParentHeader.MsgID == "" {
					return report.Fail(fmt.Sprintf("%s broadcast had an empty parent_header", b.Header.MsgType), report.FailureUnexpectedContent)
				}
			}
			return report.Pass()
		},
	},
}

func freshUUID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "00000000-0000-0000-0000-000000000000"
	}
	return id.String()
}
