// Package kernelspec describes the minimal shape needed to launch a
// kernel-under-test process. Kernel discovery (finding installed
// kernelspecs, parsing kernel.json files from a kernelspec directory
// tree) is an external concern; this package only models the result of
// that discovery, opaque to the driver and suite runner.
package kernelspec

import (
	"os/exec"
	"strings"
)

// KernelSpec is the launch recipe for one kernel-under-test.
type KernelSpec struct {
	// Name is the short identifier (e.g. "python3"), also sent to the
	// kernel process as the connection descriptor's kernel_name.
	Name string
	// DisplayName is a human-readable label for reports.
	DisplayName string
	// Language is the initial snippet-table language guess, used only
	// until kernel_info_reply supersedes it with the kernel's own
	// report.
	Language string
	// Argv is the kernel's launch command, following the Jupyter
	// kernelspec convention where "{connection_file}" is replaced with
	// the actual connection file path. A bare Argv with no placeholder
	// has the path appended as the final argument.
	Argv []string
}

const connectionFilePlaceholder = "{connection_file}"

// Command builds the *exec.Cmd that launches this kernel, substituting
// connectionFilePath for the "{connection_file}" placeholder in Argv
// (or appending it, if Argv does not use the placeholder convention).
func (s KernelSpec) Command(connectionFilePath string) *exec.Cmd {
	args := make([]string, len(s.Argv))
	copy(args, s.Argv)

	substituted := false
	for i, a := range args {
		if strings.Contains(a, connectionFilePlaceholder) {
			args[i] = strings.ReplaceAll(a, connectionFilePlaceholder, connectionFilePath)
			substituted = true
		}
	}
	if !substituted {
		args = append(args, connectionFilePath)
	}

	if len(args) == 0 {
		return exec.Command("")
	}
	return exec.Command(args[0], args[1:]...)
}
