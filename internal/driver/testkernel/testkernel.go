// Package testkernel is a programmable stub that binds the five wire
// channels a real kernel would bind and scripts its protocol
// behavior, so internal/driver's correlation, deadline, and
// interleaving logic can be exercised without spawning a real kernel
// process. It plays the role muster's internal/testing/mock package
// played for MCP servers, adapted to the Jupyter wire protocol.
package testkernel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/gofrs/uuid"

	"kernelconform/internal/wire"
)

// BroadcastSpec is one step of a scripted execute_request's iopub
// behavior: either a direct broadcast, or (when StdinPrompt is set) a
// pause to perform an input_request/input_reply round trip on stdin
// before continuing.
type BroadcastSpec struct {
	MsgType     string
	Content     any
	StdinPrompt string
}

// Stream builds a stream broadcast step.
func Stream(name, text string) BroadcastSpec {
	return BroadcastSpec{MsgType: "stream", Content: wire.StreamContent{Name: name, Text: text}}
}

// ExecuteInputBroadcast builds an execute_input broadcast step.
func ExecuteInputBroadcast(code string, count int) BroadcastSpec {
	return BroadcastSpec{MsgType: "execute_input", Content: wire.ExecuteInputContent{Code: code, ExecutionCount: count}}
}

// ExecuteResult builds an execute_result broadcast step.
func ExecuteResult(count int, data wire.MIMEMap) BroadcastSpec {
	return BroadcastSpec{MsgType: "execute_result", Content: wire.ExecuteResultContent{ExecutionCount: count, Data: data}}
}

// DisplayData builds a display_data broadcast step.
func DisplayData(data wire.MIMEMap) BroadcastSpec {
	return BroadcastSpec{MsgType: "display_data", Content: wire.DisplayDataContent{Data: data}}
}

// UpdateDisplayData builds an update_display_data broadcast step.
func UpdateDisplayData(data wire.MIMEMap) BroadcastSpec {
	return BroadcastSpec{MsgType: "update_display_data", Content: wire.DisplayDataContent{Data: data}}
}

// ErrorOutput builds an error broadcast step.
func ErrorOutput(ename, evalue string, traceback []string) BroadcastSpec {
	return BroadcastSpec{MsgType: "error", Content: wire.ErrorContent{ErrorName: ename, ErrorValue: evalue, Traceback: traceback}}
}

// StdinRoundTrip builds a step that pauses to request input on stdin.
func StdinRoundTrip(prompt string) BroadcastSpec {
	return BroadcastSpec{StdinPrompt: prompt}
}

// ExecuteScript describes how the mock kernel responds to one
// execute_request.
type ExecuteScript struct {
	Broadcasts []BroadcastSpec
	Reply      wire.ExecuteReply
	// SkipIdle, when true, never emits the terminating Status(Idle) -
	// used to script S6's timeout scenario.
	SkipIdle bool
	// StrayBroadcast, when true, additionally emits one iopub message
	// whose parent header does not match this request, to exercise the
	// no-cross-request-leakage property.
	StrayBroadcast bool
}

// Script is the full programmable behavior of a mock kernel.
type Script struct {
	KernelInfo   wire.KernelInfoReply
	OnExecute    func(code string) ExecuteScript
	OnCommOpen   func(commID, targetName string) (rejected bool)
	OnInterrupt  func() wire.InterruptReply
	OnComplete   func(req wire.CompleteRequest) wire.CompleteReply
	OnInspect    func(req wire.InspectRequest) wire.InspectReply
	OnIsComplete func(req wire.IsCompleteRequest) wire.IsCompleteReply
	OnHistory    func(req wire.HistoryRequest) wire.HistoryReply
	OnCommInfo   func(req wire.CommInfoRequest) wire.CommInfoReply
}

// LastInputReply records the most recent input_reply value observed
// during a stdin round trip, for test assertions.
type LastInputReply struct {
	Value string
}

// MockKernel is a running stub bound to all five channels of desc.
type MockKernel struct {
	desc     *wire.ConnectionDescriptor
	identity []byte
	signKey  []byte
	script   Script

	shellSock   zmq4.Socket
	iopubSock   zmq4.Socket
	controlSock zmq4.Socket
	stdinSock   zmq4.Socket
	hbSock      zmq4.Socket

	LastInput LastInputReply

	done chan struct{}
}

// Start binds all five channels described by desc and begins servicing
// requests according to script. sessionID must match the identity the
// driver-under-test's shell/stdin dealers were configured with.
func Start(ctx context.Context, desc *wire.ConnectionDescriptor, sessionID string, script Script) (*MockKernel, error) {
	k := &MockKernel{
		desc:     desc,
		identity: wire.Identity(sessionID),
		signKey:  []byte(desc.Key),
		script:   script,
		done:     make(chan struct{}),
	}

	var err error
	if k.shellSock, err = bindRouter(ctx, desc.ShellAddr()); err != nil {
		return nil, fmt.Errorf("testkernel: binding shell: %w", err)
	}
	if k.iopubSock, err = bindPub(ctx, desc.IOPubAddr()); err != nil {
		return nil, fmt.Errorf("testkernel: binding iopub: %w", err)
	}
	if k.controlSock, err = bindRouter(ctx, desc.ControlAddr()); err != nil {
		return nil, fmt.Errorf("testkernel: binding control: %w", err)
	}
	if k.stdinSock, err = bindRouter(ctx, desc.StdinAddr()); err != nil {
		return nil, fmt.Errorf("testkernel: binding stdin: %w", err)
	}
	if k.hbSock, err = bindRep(ctx, desc.HBAddr()); err != nil {
		return nil, fmt.Errorf("testkernel: binding heartbeat: %w", err)
	}

	go k.shellLoop(ctx)
	go k.controlLoop(ctx)
	go k.heartbeatLoop(ctx)

	return k, nil
}

func bindRouter(ctx context.Context, addr string) (zmq4.Socket, error) {
	s := zmq4.NewRouter(ctx)
	if err := s.Listen(addr); err != nil {
		return nil, err
	}
	return s, nil
}

func bindPub(ctx context.Context, addr string) (zmq4.Socket, error) {
	s := zmq4.NewPub(ctx)
	if err := s.Listen(addr); err != nil {
		return nil, err
	}
	return s, nil
}

func bindRep(ctx context.Context, addr string) (zmq4.Socket, error) {
	s := zmq4.NewRep(ctx)
	if err := s.Listen(addr); err != nil {
		return nil, err
	}
	return s, nil
}

// Stop closes every bound socket and halts the service loops.
func (k *MockKernel) Stop() {
	close(k.done)
	_ = k.shellSock.Close()
	_ = k.iopubSock.Close()
	_ = k.controlSock.Close()
	_ = k.stdinSock.Close()
	_ = k.hbSock.Close()
}

func splitRouterFrames(frames [][]byte) (identity [][]byte, rest [][]byte) {
	for i, f := range frames {
		if string(f) == wire.Delimiter {
			return frames[:i], frames[i:]
		}
	}
	return nil, frames
}

func (k *MockKernel) shellLoop(ctx context.Context) {
	for {
		msg, err := k.shellSock.Recv()
		select {
		case <-k.done:
			return
		default:
		}
		if err != nil {
			continue
		}

		identity, rest := splitRouterFrames(msg.Frames)
		env, err := wire.UnmarshalFrames(rest, k.signKey)
		if err != nil {
			continue
		}

		switch env.Header.MsgType {
		case "kernel_info_request":
			k.replyShell(identity, env.Header, "kernel_info_reply", k.script.KernelInfo)
		case "execute_request":
			k.handleExecute(identity, env)
		case "comm_open":
			k.handleCommOpen(env)
		case "complete_request":
			var req wire.CompleteRequest
			_ = env.DecodeContent(&req)
			reply := wire.CompleteReply{Status: "ok"}
			if k.script.OnComplete != nil {
				reply = k.script.OnComplete(req)
			}
			k.replyShell(identity, env.Header, "complete_reply", reply)
		case "inspect_request":
			var req wire.InspectRequest
			_ = env.DecodeContent(&req)
			reply := wire.InspectReply{Status: "ok", Found: true}
			if k.script.OnInspect != nil {
				reply = k.script.OnInspect(req)
			}
			k.replyShell(identity, env.Header, "inspect_reply", reply)
		case "is_complete_request":
			var req wire.IsCompleteRequest
			_ = env.DecodeContent(&req)
			reply := wire.IsCompleteReply{Status: "complete"}
			if k.script.OnIsComplete != nil {
				reply = k.script.OnIsComplete(req)
			}
			k.replyShell(identity, env.Header, "is_complete_reply", reply)
		case "history_request":
			var req wire.HistoryRequest
			_ = env.DecodeContent(&req)
			reply := wire.HistoryReply{}
			if k.script.OnHistory != nil {
				reply = k.script.OnHistory(req)
			}
			k.replyShell(identity, env.Header, "history_reply", reply)
		case "comm_info_request":
			var req wire.CommInfoRequest
			_ = env.DecodeContent(&req)
			reply := wire.CommInfoReply{Status: "ok", Comms: map[string]map[string]string{}}
			if k.script.OnCommInfo != nil {
				reply = k.script.OnCommInfo(req)
			}
			k.replyShell(identity, env.Header, "comm_info_reply", reply)
		}
	}
}

func (k *MockKernel) handleExecute(identity [][]byte, req *wire.Envelope) {
	var execReq wire.ExecuteRequest
	_ = req.DecodeContent(&execReq)

	script := ExecuteScript{Reply: wire.ExecuteReply{Status: "ok"}}
	if k.script.OnExecute != nil {
		script = k.script.OnExecute(execReq.Code)
	}

	k.publishIOPub(req.Header, "status", wire.StatusContent{ExecutionState: wire.ExecutionStateBusy})

	if script.StrayBroadcast {
		stray := wire.Header{
			MsgID: mustUUID(), Session: req.Header.Session, MsgType: "stream",
			Version: wire.ProtocolVersion, Date: time.Now().UTC().Format(time.RFC3339),
		}
		k.publishRaw(stray, wire.Header{MsgID: "not-this-request"}, "stream", wire.StreamContent{Name: "stdout", Text: "stray"})
	}

	for _, step := range script.Broadcasts {
		if step.StdinPrompt != "" {
			k.stdinRoundTrip(req.Header, step.StdinPrompt)
			continue
		}
		k.publishIOPub(req.Header, step.MsgType, step.Content)
	}

	if !script.SkipIdle {
		k.publishIOPub(req.Header, "status", wire.StatusContent{ExecutionState: wire.ExecutionStateIdle})
	}

	k.replyShell(identity, req.Header, "execute_reply", script.Reply)
}

func (k *MockKernel) handleCommOpen(req *wire.Envelope) {
	var open wire.CommOpenContent
	_ = req.DecodeContent(&open)

	rejected := false
	if k.script.OnCommOpen != nil {
		rejected = k.script.OnCommOpen(open.CommID, open.TargetName)
	}
	if rejected {
		k.publishIOPub(req.Header, "comm_close", wire.CommCloseContent{CommID: open.CommID})
	}
}

func (k *MockKernel) stdinRoundTrip(parent wire.Header, prompt string) {
	env := &wire.Envelope{
		Header: wire.Header{
			MsgID: mustUUID(), Session: parent.Session, MsgType: "input_request",
			Version: wire.ProtocolVersion, Date: time.Now().UTC().Format(time.RFC3339),
		},
		ParentHeader: parent,
	}
	body, _ := json.Marshal(wire.InputRequest{Prompt: prompt})
	env.Content = body

	frames, err := env.Frames(k.signKey)
	if err != nil {
		return
	}
	full := append([][]byte{k.identity}, frames...)
	if err := k.stdinSock.Send(zmq4.NewMsgFrom(full...)); err != nil {
		return
	}

	msg, err := k.stdinSock.Recv()
	if err != nil {
		return
	}
	_, rest := splitRouterFrames(msg.Frames)
	reply, err := wire.UnmarshalFrames(rest, k.signKey)
	if err != nil {
		return
	}
	var ir wire.InputReply
	if err := reply.DecodeContent(&ir); err == nil {
		k.LastInput = LastInputReply{Value: ir.Value}
	}
}

func (k *MockKernel) controlLoop(ctx context.Context) {
	for {
		msg, err := k.controlSock.Recv()
		select {
		case <-k.done:
			return
		default:
		}
		if err != nil {
			continue
		}

		identity, rest := splitRouterFrames(msg.Frames)
		env, err := wire.UnmarshalFrames(rest, k.signKey)
		if err != nil {
			continue
		}

		switch env.Header.MsgType {
		case "shutdown_request":
			k.replyControl(identity, env.Header, "shutdown_reply", wire.ShutdownReply{Status: "ok"})
		case "interrupt_request":
			reply := wire.InterruptReply{Status: "ok"}
			if k.script.OnInterrupt != nil {
				reply = k.script.OnInterrupt()
			}
			k.replyControl(identity, env.Header, "interrupt_reply", reply)
		}
	}
}

func (k *MockKernel) heartbeatLoop(ctx context.Context) {
	for {
		msg, err := k.hbSock.Recv()
		select {
		case <-k.done:
			return
		default:
		}
		if err != nil {
			continue
		}
		_ = k.hbSock.Send(msg)
	}
}

func (k *MockKernel) publishIOPub(parent wire.Header, msgType string, content any) {
	k.publishRaw(wire.Header{
		MsgID: mustUUID(), Session: parent.Session, MsgType: msgType,
		Version: wire.ProtocolVersion, Date: time.Now().UTC().Format(time.RFC3339),
	}, parent, msgType, content)
}

func (k *MockKernel) publishRaw(header, parent wire.Header, _ string, content any) {
	env := &wire.Envelope{Header: header, ParentHeader: parent}
	body, err := json.Marshal(content)
	if err != nil {
		return
	}
	env.Content = body

	frames, err := env.Frames(k.signKey)
	if err != nil {
		return
	}
	_ = k.iopubSock.Send(zmq4.NewMsgFrom(frames...))
}

func (k *MockKernel) replyShell(identity [][]byte, parent wire.Header, msgType string, content any) {
	k.reply(k.shellSock, identity, parent, msgType, content)
}

func (k *MockKernel) replyControl(identity [][]byte, parent wire.Header, msgType string, content any) {
	k.reply(k.controlSock, identity, parent, msgType, content)
}

func (k *MockKernel) reply(sock zmq4.Socket, identity [][]byte, parent wire.Header, msgType string, content any) {
	env := &wire.Envelope{
		Header: wire.Header{
			MsgID: mustUUID(), Session: parent.Session, MsgType: msgType,
			Version: wire.ProtocolVersion, Date: time.Now().UTC().Format(time.RFC3339),
		},
		ParentHeader: parent,
	}
	body, err := json.Marshal(content)
	if err != nil {
		return
	}
	env.Content = body

	frames, err := env.Frames(k.signKey)
	if err != nil {
		return
	}
	full := append(append([][]byte{}, identity...), frames...)
	_ = sock.Send(zmq4.NewMsgFrom(full...))
}

func mustUUID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "00000000-0000-0000-0000-000000000000"
	}
	return id.String()
}
