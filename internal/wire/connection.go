// Package wire drives the Jupyter wire protocol's transport concerns: the
// connection descriptor file a kernel is launched with, the HMAC-signed
// multipart message framing, and a channel abstraction that lets the
// driver multiplex reads across five ZeroMQ sockets without blocking.
package wire

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
)

// SignatureScheme is the only signing scheme this harness speaks.
const SignatureScheme = "hmac-sha256"

// ConnectionDescriptor is the JSON connection file a kernel subprocess is
// launched with. Field names and casing match the protocol exactly.
type ConnectionDescriptor struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	StdinPort       int    `json:"stdin_port"`
	ControlPort     int    `json:"control_port"`
	HBPort          int    `json:"hb_port"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	SignatureScheme string `json:"signature_scheme"`
	Key             string `json:"key"`
	KernelName      string `json:"kernel_name"`
}

// NewConnectionDescriptor picks five free loopback TCP ports and a random
// signing key, and returns a descriptor ready to be written to disk.
func NewConnectionDescriptor(kernelName string) (*ConnectionDescriptor, error) {
	ports, err := fiveFreePorts()
	if err != nil {
		return nil, fmt.Errorf("allocating ports: %w", err)
	}

	key, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}

	return &ConnectionDescriptor{
		Transport:       "tcp",
		IP:              "127.0.0.1",
		ShellPort:       ports[0],
		IOPubPort:       ports[1],
		ControlPort:     ports[2],
		StdinPort:       ports[3],
		HBPort:          ports[4],
		SignatureScheme: SignatureScheme,
		Key:             key.String(),
		KernelName:      kernelName,
	}, nil
}

// fiveFreePorts binds five ephemeral loopback listeners just long enough to
// learn their port numbers, then releases them. There is an inherent race
// between release and the kernel binding the same ports, acceptable for a
// test harness launching a single kernel at a time (spec.md's
// shared-resource policy: kernels are tested sequentially).
func fiveFreePorts() ([5]int, error) {
	var ports [5]int
	var listeners [5]*net.TCPListener

	defer func() {
		for _, l := range listeners {
			if l != nil {
				l.Close()
			}
		}
	}()

	for i := range ports {
		l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			return ports, err
		}
		listeners[i] = l
		ports[i] = l.Addr().(*net.TCPAddr).Port
	}
	return ports, nil
}

// addr returns the "tcp://ip:port" dial address for one of the five ports.
func (d *ConnectionDescriptor) addr(port int) string {
	return fmt.Sprintf("%s://%s:%d", d.Transport, d.IP, port)
}

func (d *ConnectionDescriptor) ShellAddr() string   { return d.addr(d.ShellPort) }
func (d *ConnectionDescriptor) IOPubAddr() string   { return d.addr(d.IOPubPort) }
func (d *ConnectionDescriptor) ControlAddr() string { return d.addr(d.ControlPort) }
func (d *ConnectionDescriptor) StdinAddr() string   { return d.addr(d.StdinPort) }
func (d *ConnectionDescriptor) HBAddr() string      { return d.addr(d.HBPort) }

// connectionFileName is the file a descriptor is persisted to, keyed by the
// run's session id.
func connectionFileName(sessionID string) string {
	return fmt.Sprintf("kernel-test-%s.json", sessionID)
}

// Write persists the descriptor as JSON under dir and returns the path the
// kernel subprocess should be launched with.
func (d *ConnectionDescriptor) Write(dir, sessionID string) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling connection descriptor: %w", err)
	}

	path := filepath.Join(dir, connectionFileName(sessionID))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing connection file %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the connection file at path, best effort - shutdown
// always attempts this even if earlier cleanup steps failed.
func Remove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
