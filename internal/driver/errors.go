package driver

import "fmt"

// Error is the taxonomy of failures the driver itself can raise,
// distinct from report.FailureKind, which is the diagnostic tag a
// check attaches to a TestResult. A check maps an Error to the
// best-fit FailureKind at its own boundary; the driver never does
// that mapping itself.
type Error struct {
	Kind    ErrorKind
	Context string
	Err     error
}

// ErrorKind enumerates the driver's error taxonomy.
type ErrorKind int

const (
	// LaunchFailed indicates the kernel process or its connection file
	// could not be created.
	LaunchFailed ErrorKind = iota
	// ConnectionFailed indicates one of the five channels could not be
	// established.
	ConnectionFailed
	// Timeout indicates a monotonic deadline elapsed awaiting a named
	// event.
	Timeout
	// ProtocolError indicates malformed framing, an unexpected message
	// type, or an underlying transport failure.
	ProtocolError
	// IOError indicates a filesystem or OS failure.
	IOError
	// RuntimeError indicates a failure surfaced from the ZeroMQ
	// transport itself.
	RuntimeError
)

func (k ErrorKind) String() string {
	switch k {
	case LaunchFailed:
		return "LaunchFailed"
	case ConnectionFailed:
		return "ConnectionFailed"
	case Timeout:
		return "Timeout"
	case ProtocolError:
		return "ProtocolError"
	case IOError:
		return "IOError"
	case RuntimeError:
		return "RuntimeError"
	default:
		return "Unknown"
	}
}

func (e *Error) Error() string {
	switch e.Kind {
	case LaunchFailed:
		return fmt.Sprintf("kernel launch failed: %s", e.detail())
	case ConnectionFailed:
		return fmt.Sprintf("connection failed: %s", e.detail())
	case Timeout:
		return fmt.Sprintf("timeout waiting for %s", e.Context)
	case ProtocolError:
		return fmt.Sprintf("protocol error: %s", e.detail())
	case IOError:
		return fmt.Sprintf("io error: %s", e.detail())
	case RuntimeError:
		return fmt.Sprintf("runtime error: %s", e.detail())
	default:
		return e.detail()
	}
}

func (e *Error) detail() string {
	if e.Err != nil {
		if e.Context != "" {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Context
}

func (e *Error) Unwrap() error { return e.Err }

func newLaunchFailed(context string, err error) *Error {
	return &Error{Kind: LaunchFailed, Context: context, Err: err}
}

func newConnectionFailed(context string, err error) *Error {
	return &Error{Kind: ConnectionFailed, Context: context, Err: err}
}

func newTimeout(context string) *Error {
	return &Error{Kind: Timeout, Context: context}
}

func newProtocolError(context string, err error) *Error {
	return &Error{Kind: ProtocolError, Context: context, Err: err}
}
