package wire

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zeromq/zmq4"
)

// Kind identifies which of the five transports a Channel wraps, and
// therefore which zmq4 socket type and framing rules apply.
type Kind int

const (
	KindShell Kind = iota
	KindIOPub
	KindControl
	KindStdin
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindShell:
		return "shell"
	case KindIOPub:
		return "iopub"
	case KindControl:
		return "control"
	case KindStdin:
		return "stdin"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// inbound pairs a received raw multipart message with any error recv
// produced, so a closed/errored socket can still be observed through the
// channel rather than silently going quiet.
type inbound struct {
	msg zmq4.Msg
	err error
}

// Channel owns one zmq4.Socket and a background goroutine that forwards
// every Recv() onto a buffered Go channel. This is the idiomatic-Go
// restatement of the cooperative, non-blocking discipline spec.md
// describes for a single-threaded driver: the KernelUnderTest driver
// remains the sole reader of every Channel's output and the sole mutator
// of its own state, so no locking is required even though five sockets
// are being serviced concurrently under the hood.
type Channel struct {
	Kind   Kind
	socket zmq4.Socket
	recvC  chan inbound
	done   chan struct{}
}

// Dial opens a zmq4 socket of the given kind against addr and starts its
// fan-in goroutine. Shell and stdin sockets share identity (a DEALER
// socket option) per spec.md's "shell and stdin must be opened with a
// shared peer identity derived from the session id".
func Dial(ctx context.Context, kind Kind, addr string, identity []byte) (*Channel, error) {
	var socket zmq4.Socket

	switch kind {
	case KindShell, KindStdin:
		socket = zmq4.NewDealer(ctx)
	case KindControl:
		socket = zmq4.NewDealer(ctx)
	case KindIOPub:
		socket = zmq4.NewSub(ctx)
	case KindHeartbeat:
		socket = zmq4.NewReq(ctx)
	default:
		return nil, fmt.Errorf("wire: unknown channel kind %v", kind)
	}

	if kind == KindShell || kind == KindStdin {
		if err := socket.SetOption(zmq4.OptionIdentity, string(identity)); err != nil {
			return nil, fmt.Errorf("setting %s socket identity: %w", kind, err)
		}
	}

	if err := socket.Dial(addr); err != nil {
		return nil, fmt.Errorf("dialing %s socket at %s: %w", kind, addr, err)
	}

	if kind == KindIOPub {
		if err := socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
			return nil, fmt.Errorf("subscribing iopub socket: %w", err)
		}
	}

	c := &Channel{
		Kind:   kind,
		socket: socket,
		recvC:  make(chan inbound, 64),
		done:   make(chan struct{}),
	}
	go c.pump()
	return c, nil
}

func (c *Channel) pump() {
	for {
		msg, err := c.socket.Recv()
		select {
		case c.recvC <- inbound{msg: msg, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Send signs env and writes it to the socket. Heartbeat does not use
// envelopes; see SendRaw.
func (c *Channel) Send(env *Envelope, signKey []byte) error {
	frames, err := env.Frames(signKey)
	if err != nil {
		return err
	}
	return c.SendRaw(frames)
}

// SendRaw writes a pre-built multipart message, used directly by the
// heartbeat channel which has no envelope structure.
func (c *Channel) SendRaw(frames [][]byte) error {
	return c.socket.Send(zmq4.NewMsgFrom(frames...))
}

// Recv waits up to timeout for the next raw multipart message. A
// (nil, nil, false) result means the timeout elapsed with nothing to
// report - this is the inner poll timeout spec.md describes, not an
// error.
func (c *Channel) Recv(ctx context.Context, timeout time.Duration) ([][]byte, error, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case in := <-c.recvC:
		if in.err != nil {
			return nil, in.err, true
		}
		return in.msg.Frames, nil, true
	case <-t.C:
		return nil, nil, false
	case <-ctx.Done():
		return nil, ctx.Err(), true
	}
}

// RecvEnvelope is Recv plus signature verification and decoding.
func (c *Channel) RecvEnvelope(ctx context.Context, timeout time.Duration, signKey []byte) (*Envelope, bool, error) {
	frames, err, got := c.Recv(ctx, timeout)
	if !got {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	env, err := UnmarshalFrames(frames, signKey)
	if err != nil {
		return nil, true, err
	}
	return env, true, nil
}

// Close stops the fan-in goroutine and closes the underlying socket.
func (c *Channel) Close() error {
	close(c.done)
	return c.socket.Close()
}

// Identity derives the shared shell/stdin peer identity from a session id,
// grounded on gonb's use of a fixed per-kernel socket identity.
func Identity(sessionID string) []byte {
	return []byte("kernelconform-" + sessionID)
}
