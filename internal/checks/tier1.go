package checks

import (
	"context"
	"fmt"
	"strings"

	"kernelconform/internal/driver"
	"kernelconform/internal/report"
	"kernelconform/internal/wire"
)

var tier1Checks = []Check{
	{
		Name:        "heartbeat",
		Category:    report.Tier1Basic,
		Description: "heartbeat channel echoes a ping within the per-check deadline",
		MessageType: "heartbeat",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			if err := k.Heartbeat(ctx); err != nil {
				return classifyError(err)
			}
			return report.Pass()
		},
	},
	{
		Name:        "kernel_info_status_ok",
		Category:    report.Tier1Basic,
		Description: "kernel_info_reply reports status ok",
		MessageType: "kernel_info_reply",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			info := k.KernelInfo()
			if info == nil {
				return report.FailSimple("no kernel_info_reply was gathered at launch")
			}
			if info.Status != "ok" {
				return report.Fail(fmt.Sprintf("kernel_info_reply status was %q", info.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
	{
		Name:        "kernel_info_language_name",
		Category:    report.Tier1Basic,
		Description: "kernel_info_reply carries a non-empty language_info.name",
		MessageType: "kernel_info_reply",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			info := k.KernelInfo()
			if info == nil || info.LanguageInfo.Name == "" {
				return report.Fail("language_info.name is empty", report.FailureUnexpectedContent)
			}
			return report.Pass()
		},
	},
	{
		Name:        "kernel_info_protocol_version",
		Category:    report.Tier1Basic,
		Description: "kernel_info_reply carries a non-empty protocol_version",
		MessageType: "kernel_info_reply",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			info := k.KernelInfo()
			if info == nil || info.ProtocolVersion == "" {
				return report.Fail("protocol_version is empty", report.FailureUnexpectedContent)
			}
			return report.Pass()
		},
	},
	{
		Name:        "print_hello_stdout",
		Category:    report.Tier1Basic,
		Description: `executing print_hello yields a stream(stdout) broadcast containing "hello"`,
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			_, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().PrintHello)
			if err != nil {
				return classifyError(err)
			}
			if streamContains(broadcasts, "stdout", "hello") {
				return report.Pass()
			}
			return report.Fail("no stream(stdout) broadcast contained \"hello\"", report.FailureUnexpectedContent)
		},
	},
	{
		Name:        "print_stderr_stream",
		Category:    report.Tier1Basic,
		Description: `executing print_stderr yields a stream(stderr) broadcast containing "error"`,
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			_, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().PrintStderr)
			if err != nil {
				return classifyError(err)
			}
			if streamContains(broadcasts, "stderr", "error") {
				return report.Pass()
			}
			return report.Fail("no stream(stderr) broadcast contained \"error\"", report.FailureUnexpectedContent)
		},
	},
	{
		Name:        "complete_code_execute_reply_ok",
		Category:    report.Tier1Basic,
		Description: "executing complete_code yields execute_reply status ok",
		MessageType: "execute_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, _, err := k.ExecuteAndCollect(ctx, k.Snippets().CompleteCode)
			if err != nil {
				return classifyError(err)
			}
			return requireExecuteReplyOk(reply)
		},
	},
	{
		Name:        "status_busy_before_idle",
		Category:    report.Tier1Basic,
		Description: "status broadcasts during execution include busy strictly before idle",
		MessageType: "status",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			_, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().CompleteCode)
			if err != nil {
				return classifyError(err)
			}

			busyIdx, idleIdx := -1, -1
			for i, b := range broadcasts {
				state, ok := statusState(b)
				if !ok {
					continue
				}
				if state == wire.ExecutionStateBusy && busyIdx == -1 {
					busyIdx = i
				}
				if state == wire.ExecutionStateIdle {
					idleIdx = i
				}
			}
			if busyIdx == -1 {
				return report.Fail("no status(busy) broadcast observed", report.FailureUnexpectedContent)
			}
			if idleIdx == -1 {
				return report.Fail("no status(idle) broadcast observed", report.FailureUnexpectedContent)
			}
			if busyIdx >= idleIdx {
				return report.Fail("status(busy) did not precede status(idle)", report.FailureUnexpectedContent)
			}
			return report.Pass()
		},
	},
	{
		Name:        "execute_input_broadcast",
		Category:    report.Tier1Basic,
		Description: "executing code emits an execute_input broadcast",
		MessageType: "execute_input",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			_, broadcasts, err := k.ExecuteAndCollect(ctx, k.Snippets().CompleteCode)
			if err != nil {
				return classifyError(err)
			}
			for _, b := range broadcasts {
				if b.Header.MsgType == "execute_input" {
					return report.Pass()
				}
			}
			return report.Fail("no execute_input broadcast observed", report.FailureUnexpectedContent)
		},
	},
	{
		Name:        ShutdownCheckName,
		Category:    report.Tier1Basic,
		Description: "a shutdown_request on control receives a shutdown_reply ok",
		MessageType: "shutdown_request",
		Run: func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult {
			reply, err := k.ControlRequest(ctx, "shutdown_request", wire.ShutdownRequest{Restart: false})
			if err != nil {
				return classifyError(err)
			}
			if reply.Header.MsgType != "shutdown_reply" {
				return report.Fail(fmt.Sprintf("expected shutdown_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
			}
			var content wire.ShutdownReply
			if err := reply.DecodeContent(&content); err != nil {
				return report.Fail("decoding shutdown_reply: "+err.Error(), report.FailureProtocolError)
			}
			if content.Status != "ok" {
				return report.Fail(fmt.Sprintf("shutdown_reply status was %q", content.Status), report.FailureKernelError)
			}
			return report.Pass()
		},
	},
}

// streamContains reports whether any broadcast in broadcasts is a
// stream message on the named stream containing substr.
func streamContains(broadcasts []*wire.Envelope, streamName, substr string) bool {
	for _, b := range broadcasts {
		if b.Header.MsgType != "stream" {
			continue
		}
		var stream wire.StreamContent
		if err := b.DecodeContent(&stream); err != nil {
			continue
		}
		if stream.Name == streamName && strings.Contains(stream.Text, substr) {
			return true
		}
	}
	return false
}

// statusState decodes a status broadcast's execution_state, reporting
// ok=false for anything that is not a status message.
func statusState(env *wire.Envelope) (state string, ok bool) {
	if env.Header.MsgType != "status" {
		return "", false
	}
	var content wire.StatusContent
	if err := env.DecodeContent(&content); err != nil {
		return "", false
	}
	return content.ExecutionState, true
}

// requireExecuteReplyOk decodes reply as an execute_reply and checks
// its status is ok.
func requireExecuteReplyOk(reply *wire.Envelope) report.TestResult {
	if reply.Header.MsgType != "execute_reply" {
		return report.Fail(fmt.Sprintf("expected execute_reply, got %s", reply.Header.MsgType), report.FailureUnexpectedMessageType)
	}
	var content wire.ExecuteReply
	if err := reply.DecodeContent(&content); err != nil {
		return report.Fail("decoding execute_reply: "+err.Error(), report.FailureProtocolError)
	}
	if content.Status != "ok" {
		return report.Fail(fmt.Sprintf("execute_reply status was %q (%s: %s)", content.Status, content.ErrorName, content.ErrorValue), report.FailureKernelError)
	}
	return report.Pass()
}
