// Package driver implements the Kernel-Under-Test Driver: it owns a
// kernel subprocess and its five wire channels, correlates iopub
// broadcasts to the request that caused them, and exposes the small
// set of operations every conformance check is built from.
//
// Translated from a single-threaded cooperative-async design
// (original_source/harness.rs's KernelUnderTest) into Go's
// goroutine-per-socket-fan-in idiom: internal/wire.Channel owns the
// background reads, but only the goroutine calling these methods ever
// mutates a KernelUnderTest's state, so the "single owner, no locking"
// invariant still holds.
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"

	"kernelconform/internal/kernelspec"
	"kernelconform/internal/snippets"
	"kernelconform/internal/wire"
	"kernelconform/pkg/logging"
)

const (
	launchGrace      = 500 * time.Millisecond
	iopubSettleDelay = 100 * time.Millisecond
	innerPollTimeout = 100 * time.Millisecond
	stdinPollTimeout = 50 * time.Millisecond
	commRejectWindow = 500 * time.Millisecond
	shutdownGrace    = 500 * time.Millisecond

	defaultPerCheckDeadline = 10 * time.Second
)

// KernelUnderTest owns one kernel subprocess and its five channels for
// the duration of a conformance run. Every method is a suspension
// point (channel read/write, sleep, process signal); between
// suspension points it is the sole mutator of its own state.
type KernelUnderTest struct {
	process *exec.Cmd

	connDesc    *wire.ConnectionDescriptor
	connPath    string
	sessionID   string
	signKey     []byte
	perCheckTTL time.Duration

	shell     *wire.Channel
	iopub     *wire.Channel
	control   *wire.Channel
	stdin     *wire.Channel
	heartbeat *wire.Channel

	kernelInfo *wire.KernelInfoReply
	snippets   snippets.Snippets
}

// Launch spawns spec's kernel process, writes its connection
// descriptor, opens all five channels, and fetches kernel_info to
// learn the kernel's reported language. perCheckDeadline bounds every
// subsequent blocking operation on the returned driver; zero selects
// the default of 10 seconds.
func Launch(ctx context.Context, spec kernelspec.KernelSpec, perCheckDeadline time.Duration) (*KernelUnderTest, error) {
	if perCheckDeadline <= 0 {
		perCheckDeadline = defaultPerCheckDeadline
	}

	sessionIDValue, err := uuid.NewV4()
	if err != nil {
		return nil, newLaunchFailed("generating session id", err)
	}
	sessionID := sessionIDValue.String()

	descriptor, err := wire.NewConnectionDescriptor(spec.Name)
	if err != nil {
		return nil, newLaunchFailed("allocating connection descriptor", err)
	}

	runtimeDir, err := runtimeDirectory()
	if err != nil {
		return nil, newLaunchFailed("resolving runtime directory", err)
	}

	connPath, err := descriptor.Write(runtimeDir, sessionID)
	if err != nil {
		return nil, newLaunchFailed("writing connection file", err)
	}

	cmd := spec.Command(connPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		wire.Remove(connPath)
		return nil, newLaunchFailed(fmt.Sprintf("spawning kernel %q", spec.Name), err)
	}

	logging.Debug("driver", "kernel %q spawned as pid %d (session %s)", spec.Name, cmd.Process.Pid, logging.TruncateID(sessionID))

	k := &KernelUnderTest{
		process:     cmd,
		connDesc:    descriptor,
		connPath:    connPath,
		sessionID:   sessionID,
		signKey:     []byte(descriptor.Key),
		perCheckTTL: perCheckDeadline,
		snippets:    snippets.For(spec.Language),
	}

	select {
	case <-time.After(launchGrace):
	case <-ctx.Done():
		k.killProcess()
		wire.Remove(connPath)
		return nil, newLaunchFailed("waiting for kernel startup grace period", ctx.Err())
	}

	identity := wire.Identity(sessionID)
	if err := k.dialAll(ctx, identity); err != nil {
		k.killProcess()
		wire.Remove(connPath)
		return nil, err
	}

	select {
	case <-time.After(iopubSettleDelay):
	case <-ctx.Done():
		k.teardown()
		return nil, newLaunchFailed("waiting for iopub settle delay", ctx.Err())
	}

	if err := k.fetchKernelInfo(ctx); err != nil {
		k.teardown()
		return nil, err
	}

	return k, nil
}

// Attach binds all five channels to an already-running kernel
// described by desc, without spawning a process or owning a
// connection file. It exists for driving a kernel started by some
// other means (an external discovery service, or a test double) and
// is otherwise identical to the post-spawn half of Launch.
func Attach(ctx context.Context, desc *wire.ConnectionDescriptor, sessionID string, perCheckDeadline time.Duration) (*KernelUnderTest, error) {
	if perCheckDeadline <= 0 {
		perCheckDeadline = defaultPerCheckDeadline
	}

	k := &KernelUnderTest{
		connDesc:    desc,
		sessionID:   sessionID,
		signKey:     []byte(desc.Key),
		perCheckTTL: perCheckDeadline,
		snippets:    snippets.For(desc.KernelName),
	}

	if err := k.dialAll(ctx, wire.Identity(sessionID)); err != nil {
		return nil, err
	}

	select {
	case <-time.After(iopubSettleDelay):
	case <-ctx.Done():
		k.teardown()
		return nil, newLaunchFailed("waiting for iopub settle delay", ctx.Err())
	}

	if err := k.fetchKernelInfo(ctx); err != nil {
		k.teardown()
		return nil, err
	}

	return k, nil
}

func (k *KernelUnderTest) dialAll(ctx context.Context, identity []byte) error {
	var err error
	if k.shell, err = wire.Dial(ctx, wire.KindShell, k.connDesc.ShellAddr(), identity); err != nil {
		return newConnectionFailed("shell", err)
	}
	if k.iopub, err = wire.Dial(ctx, wire.KindIOPub, k.connDesc.IOPubAddr(), nil); err != nil {
		return newConnectionFailed("iopub", err)
	}
	if k.control, err = wire.Dial(ctx, wire.KindControl, k.connDesc.ControlAddr(), nil); err != nil {
		return newConnectionFailed("control", err)
	}
	if k.stdin, err = wire.Dial(ctx, wire.KindStdin, k.connDesc.StdinAddr(), identity); err != nil {
		return newConnectionFailed("stdin", err)
	}
	if k.heartbeat, err = wire.Dial(ctx, wire.KindHeartbeat, k.connDesc.HBAddr(), nil); err != nil {
		return newConnectionFailed("heartbeat", err)
	}
	return nil
}

func runtimeDirectory() (string, error) {
	dir := filepath.Join(os.TempDir(), "kernelconform-runtime")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func (k *KernelUnderTest) fetchKernelInfo(ctx context.Context) error {
	reply, err := k.ShellRequest(ctx, "kernel_info_request", struct{}{})
	if err != nil {
		return err
	}
	if reply.Header.MsgType != "kernel_info_reply" {
		return newProtocolError(fmt.Sprintf("expected kernel_info_reply, got %s", reply.Header.MsgType), nil)
	}

	var info wire.KernelInfoReply
	if err := reply.DecodeContent(&info); err != nil {
		return newProtocolError("decoding kernel_info_reply", err)
	}

	k.kernelInfo = &info
	k.snippets = snippets.For(info.LanguageInfo.Name)
	return nil
}

// KernelInfo returns the kernel_info_reply gathered at launch, or nil
// if launch failed before it was obtained.
func (k *KernelUnderTest) KernelInfo() *wire.KernelInfoReply { return k.kernelInfo }

// Snippets returns the language-specific snippet table selected for
// this kernel.
func (k *KernelUnderTest) Snippets() snippets.Snippets { return k.snippets }

// SessionID returns the session id this driver's channels and
// connection file are keyed by.
func (k *KernelUnderTest) SessionID() string { return k.sessionID }

// ShellRequest sends content as a fresh request of msgType on shell
// and returns the single reply read within the per-check deadline. It
// does not drain iopub.
func (k *KernelUnderTest) ShellRequest(ctx context.Context, msgType string, content any) (*wire.Envelope, error) {
	return k.requestReply(ctx, k.shell, msgType, content, "shell reply")
}

// ControlRequest sends content as a fresh request of msgType on
// control and returns the single reply read within the per-check
// deadline.
func (k *KernelUnderTest) ControlRequest(ctx context.Context, msgType string, content any) (*wire.Envelope, error) {
	return k.requestReply(ctx, k.control, msgType, content, "control reply")
}

func (k *KernelUnderTest) requestReply(ctx context.Context, ch *wire.Channel, msgType string, content any, waitingFor string) (*wire.Envelope, error) {
	req, err := wire.NewRequest(k.sessionID, msgType, content)
	if err != nil {
		return nil, newProtocolError("building request", err)
	}
	if err := ch.Send(req, k.signKey); err != nil {
		return nil, newProtocolError(fmt.Sprintf("sending %s", msgType), err)
	}

	env, got, err := ch.RecvEnvelope(ctx, k.perCheckTTL, k.signKey)
	if err != nil {
		return nil, newProtocolError(waitingFor, err)
	}
	if !got {
		return nil, newTimeout(waitingFor)
	}
	return env, nil
}

// ShellRequestWithIOPub sends content as a fresh request of msgType on
// shell, drains iopub broadcasts correlated to it until a matching
// Status(Idle), then reads the shell reply.
func (k *KernelUnderTest) ShellRequestWithIOPub(ctx context.Context, msgType string, content any) (*wire.Envelope, []*wire.Envelope, error) {
	req, err := wire.NewRequest(k.sessionID, msgType, content)
	if err != nil {
		return nil, nil, newProtocolError("building request", err)
	}
	if err := k.shell.Send(req, k.signKey); err != nil {
		return nil, nil, newProtocolError(fmt.Sprintf("sending %s", msgType), err)
	}

	broadcasts, err := k.drainIOPub(ctx, req.Header.MsgID)
	if err != nil {
		return nil, nil, err
	}

	reply, got, err := k.shell.RecvEnvelope(ctx, k.perCheckTTL, k.signKey)
	if err != nil {
		return nil, nil, newProtocolError("shell reply", err)
	}
	if !got {
		return nil, nil, newTimeout("shell reply")
	}
	return reply, broadcasts, nil
}

// ExecuteAndCollect sends an execute_request for code and returns the
// execute_reply together with every iopub broadcast correlated to the
// request, in emission order, up to and including the terminating
// Status(Idle).
func (k *KernelUnderTest) ExecuteAndCollect(ctx context.Context, code string) (*wire.Envelope, []*wire.Envelope, error) {
	return k.ShellRequestWithIOPub(ctx, "execute_request", wire.ExecuteRequest{Code: code})
}

// ExecuteWithStdin is ExecuteAndCollect plus servicing the stdin
// channel: if the kernel issues an input_request, mockResponse is sent
// back as an input_reply. sawInputRequest reports whether any
// input_request was observed.
func (k *KernelUnderTest) ExecuteWithStdin(ctx context.Context, code, mockResponse string) (reply *wire.Envelope, iopubMessages []*wire.Envelope, sawInputRequest bool, err error) {
	req, err := wire.NewRequest(k.sessionID, "execute_request", wire.ExecuteRequest{Code: code, AllowStdin: true})
	if err != nil {
		return nil, nil, false, newProtocolError("building request", err)
	}
	if err := k.shell.Send(req, k.signKey); err != nil {
		return nil, nil, false, newProtocolError("sending execute_request", err)
	}

	msgID := req.Header.MsgID
	deadline := time.Now().Add(k.perCheckTTL)
	var broadcasts []*wire.Envelope

	for {
		if time.Now().After(deadline) {
			return nil, nil, sawInputRequest, newTimeout("iopub idle (stdin test)")
		}

		stdinEnv, got, stdinErr := k.stdin.RecvEnvelope(ctx, stdinPollTimeout, k.signKey)
		if stdinErr != nil {
			logging.Error("driver", stdinErr, "stdin read error, continuing")
		} else if got && stdinEnv.Header.MsgType == "input_request" {
			sawInputRequest = true
			var ir wire.InputRequest
			_ = stdinEnv.DecodeContent(&ir)

			replyEnv, buildErr := wire.NewRequest(k.sessionID, "input_reply", wire.InputReply{
				Status: "ok",
				Value:  mockResponse,
			})
			if buildErr != nil {
				return nil, nil, sawInputRequest, newProtocolError("building input_reply", buildErr)
			}
			replyEnv.ParentHeader = stdinEnv.Header
			if sendErr := k.stdin.Send(replyEnv, k.signKey); sendErr != nil {
				return nil, nil, sawInputRequest, newProtocolError("sending input_reply", sendErr)
			}
		}

		iopubEnv, got, iopubErr := k.iopub.RecvEnvelope(ctx, stdinPollTimeout, k.signKey)
		if iopubErr != nil {
			return nil, nil, sawInputRequest, newProtocolError("iopub idle (stdin test)", iopubErr)
		}
		if !got {
			continue
		}
		if iopubEnv.ParentHeader.MsgID != msgID {
			continue
		}
		broadcasts = append(broadcasts, iopubEnv)
		if isIdle(iopubEnv) {
			break
		}
	}

	replyEnv, got, err := k.shell.RecvEnvelope(ctx, k.perCheckTTL, k.signKey)
	if err != nil {
		return nil, nil, sawInputRequest, newProtocolError("execute_reply (stdin test)", err)
	}
	if !got {
		return nil, nil, sawInputRequest, newTimeout("execute_reply (stdin test)")
	}

	return replyEnv, broadcasts, sawInputRequest, nil
}

func (k *KernelUnderTest) drainIOPub(ctx context.Context, msgID string) ([]*wire.Envelope, error) {
	var collected []*wire.Envelope
	deadline := time.Now().Add(k.perCheckTTL)

	for {
		if time.Now().After(deadline) {
			return nil, newTimeout("iopub idle")
		}

		env, got, err := k.iopub.RecvEnvelope(ctx, innerPollTimeout, k.signKey)
		if err != nil {
			return nil, newProtocolError("iopub idle", err)
		}
		if !got {
			continue
		}
		if env.ParentHeader.MsgID != msgID {
			continue
		}
		collected = append(collected, env)
		if isIdle(env) {
			return collected, nil
		}
	}
}

func isIdle(env *wire.Envelope) bool {
	if env.Header.MsgType != "status" {
		return false
	}
	var status wire.StatusContent
	if err := env.DecodeContent(&status); err != nil {
		return false
	}
	return status.ExecutionState == wire.ExecutionStateIdle
}

// Heartbeat performs one heartbeat round trip bounded by the
// per-check deadline.
func (k *KernelUnderTest) Heartbeat(ctx context.Context) error {
	if err := k.heartbeat.SendRaw([][]byte{[]byte("ping")}); err != nil {
		return newProtocolError("sending heartbeat", err)
	}
	_, err, got := k.heartbeat.Recv(ctx, k.perCheckTTL)
	if err != nil {
		return newProtocolError("heartbeat", err)
	}
	if !got {
		return newTimeout("heartbeat")
	}
	return nil
}

// SendCommOpen sends a comm_open for targetName with a fresh commID and
// polls iopub for up to 500ms for a matching comm_close, which
// indicates the kernel actively rejected the target. rejected is false
// if no such close is observed (silently accepted or ignored).
func (k *KernelUnderTest) SendCommOpen(ctx context.Context, commID, targetName string, data map[string]any) (rejected bool, err error) {
	req, err := wire.NewRequest(k.sessionID, "comm_open", wire.CommOpenContent{
		CommID:     commID,
		TargetName: targetName,
		Data:       data,
	})
	if err != nil {
		return false, newProtocolError("building comm_open", err)
	}
	if err := k.shell.Send(req, k.signKey); err != nil {
		return false, newProtocolError("sending comm_open", err)
	}

	deadline := time.Now().Add(commRejectWindow)
	for time.Now().Before(deadline) {
		env, got, recvErr := k.iopub.RecvEnvelope(ctx, innerPollTimeout, k.signKey)
		if recvErr != nil || !got {
			continue
		}
		if env.Header.MsgType != "comm_close" {
			continue
		}
		var commClose wire.CommCloseContent
		if err := env.DecodeContent(&commClose); err != nil {
			continue
		}
		if commClose.CommID == commID {
			return true, nil
		}
	}
	return false, nil
}

// SendCommClose sends a comm_close for commID and briefly waits for
// the kernel to process it.
func (k *KernelUnderTest) SendCommClose(ctx context.Context, commID string, data map[string]any) error {
	req, err := wire.NewRequest(k.sessionID, "comm_close", wire.CommCloseContent{CommID: commID, Data: data})
	if err != nil {
		return newProtocolError("building comm_close", err)
	}
	if err := k.shell.Send(req, k.signKey); err != nil {
		return newProtocolError("sending comm_close", err)
	}

	select {
	case <-time.After(iopubSettleDelay):
	case <-ctx.Done():
		return newProtocolError("waiting after comm_close", ctx.Err())
	}
	return nil
}

// Shutdown sends a shutdown_request on control, gives the kernel a
// brief grace period to exit, force-kills it if still alive, and
// removes the connection file. All three steps are always attempted,
// even if an earlier one failed.
func (k *KernelUnderTest) Shutdown(ctx context.Context) error {
	_, shutdownErr := k.ControlRequest(ctx, "shutdown_request", wire.ShutdownRequest{Restart: false})

	select {
	case <-time.After(shutdownGrace):
	case <-ctx.Done():
	}

	k.killProcess()
	k.closeChannels()
	wire.Remove(k.connPath)

	return shutdownErr
}

func (k *KernelUnderTest) teardown() {
	k.killProcess()
	k.closeChannels()
	wire.Remove(k.connPath)
}

func (k *KernelUnderTest) killProcess() {
	if k.process != nil && k.process.Process != nil {
		_ = k.process.Process.Kill()
		_, _ = k.process.Process.Wait()
	}
}

func (k *KernelUnderTest) closeChannels() {
	for _, ch := range []*wire.Channel{k.shell, k.iopub, k.control, k.stdin, k.heartbeat} {
		if ch != nil {
			_ = ch.Close()
		}
	}
}
