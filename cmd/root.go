package cmd

import (
	"errors"
	"os"

	"kernelconform/internal/harnesserr"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates every requested check passed.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (bad flags, internal failure).
	ExitCodeError = 1
	// ExitCodeLaunchFailed indicates the kernel subprocess could not be
	// started or failed its initial handshake.
	ExitCodeLaunchFailed = 2
	// ExitCodeChecksFailed indicates the suite ran to completion but one
	// or more checks failed, timed out, or were not fully supported.
	ExitCodeChecksFailed = 3
)

// rootCmd is the entry point when the application is called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "kernelconform",
	Short: "Run Jupyter protocol conformance checks against a kernel",
	Long: `kernelconform launches a Jupyter-protocol-speaking kernel as a
subprocess, drives it through a fixed sequence of protocol interactions
over its five ZeroMQ channels, and reports which checks it passed,
failed, or does not support.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, typically injected at
// build time from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the entry point called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kernelconform version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps typed errors surfaced by subcommands to a process exit
// code, so that CI scripts can distinguish "harness could not run the
// kernel" from "kernel ran but failed some checks".
func getExitCode(err error) int {
	var launchErr *harnesserr.LaunchError
	if errors.As(err, &launchErr) {
		return ExitCodeLaunchFailed
	}

	var reportErr *harnesserr.ReportFailedError
	if errors.As(err, &reportErr) {
		return ExitCodeChecksFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newConformCmd())
}
