// Package checks is the static conformance check catalog: one record
// per protocol behavior, each a pure function from a driver to a
// report.TestResult. The suite runner iterates this list; nothing in
// this package owns a driver or a process.
//
// Grounded on original_source/tests.rs's ConformanceTest record shape
// (name, tier, description, message type, run closure) and
// original_source/harness.rs's error-to-FailureKind mapping at each
// check's boundary.
package checks

import (
	"context"
	"strings"

	"kernelconform/internal/driver"
	"kernelconform/internal/report"
	"kernelconform/internal/wire"
)

// hasMsgType reports whether any envelope in envs has the given
// message type.
func hasMsgType(envs []*wire.Envelope, msgType string) bool {
	for _, e := range envs {
		if e.Header.MsgType == msgType {
			return true
		}
	}
	return false
}

// Check is one static catalog entry.
type Check struct {
	Name        string
	Category    report.TestCategory
	Description string
	MessageType string
	Run         func(ctx context.Context, k *driver.KernelUnderTest) report.TestResult
}

// classifyError maps a driver.Error to the best-fit FailureKind, per
// the taxonomy: Timeout stays Timeout, an unexpected-message-type
// complaint (the driver phrases these as "expected X, got Y") becomes
// FailureUnexpectedMessageType, and everything else the driver raises
// is a harness-side failure.
func classifyError(err error) report.TestResult {
	driverErr, ok := err.(*driver.Error)
	if !ok {
		return report.FailSimple(err.Error())
	}

	switch driverErr.Kind {
	case driver.Timeout:
		return report.Timeout()
	case driver.ProtocolError:
		if strings.HasPrefix(driverErr.Context, "expected ") {
			return report.Fail(driverErr.Error(), report.FailureUnexpectedMessageType)
		}
		return report.Fail(driverErr.Error(), report.FailureHarnessError)
	default:
		return report.Fail(driverErr.Error(), report.FailureHarnessError)
	}
}

// All is the complete catalog, in the order the suite runner must
// iterate it. Shutdown is a Tier 1 check but is pinned last by the
// suite runner regardless of this slice's order, since it terminates
// the kernel.
func All() []Check {
	all := make([]Check, 0, len(tier1Checks)+len(tier2Checks)+len(tier3Checks)+len(tier4Checks))
	all = append(all, tier1Checks...)
	all = append(all, tier2Checks...)
	all = append(all, tier3Checks...)
	all = append(all, tier4Checks...)
	return all
}

// ShutdownCheckName is the name the suite runner looks for to pin the
// shutdown check last regardless of requested tier order.
const ShutdownCheckName = "shutdown"
