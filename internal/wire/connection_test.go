package wire

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionDescriptorAllocatesDistinctPorts(t *testing.T) {
	d, err := NewConnectionDescriptor("python3")
	require.NoError(t, err)

	assert.Equal(t, "tcp", d.Transport)
	assert.Equal(t, "127.0.0.1", d.IP)
	assert.Equal(t, SignatureScheme, d.SignatureScheme)
	assert.Equal(t, "python3", d.KernelName)
	assert.NotEmpty(t, d.Key)

	ports := map[int]bool{
		d.ShellPort: true, d.IOPubPort: true, d.ControlPort: true,
		d.StdinPort: true, d.HBPort: true,
	}
	assert.Len(t, ports, 5, "all five ports must be distinct")
}

func TestConnectionDescriptorAddrHelpers(t *testing.T) {
	d := &ConnectionDescriptor{Transport: "tcp", IP: "127.0.0.1", ShellPort: 1, IOPubPort: 2, ControlPort: 3, StdinPort: 4, HBPort: 5}

	assert.Equal(t, "tcp://127.0.0.1:1", d.ShellAddr())
	assert.Equal(t, "tcp://127.0.0.1:2", d.IOPubAddr())
	assert.Equal(t, "tcp://127.0.0.1:3", d.ControlAddr())
	assert.Equal(t, "tcp://127.0.0.1:4", d.StdinAddr())
	assert.Equal(t, "tcp://127.0.0.1:5", d.HBAddr())
}

func TestConnectionDescriptorJSONFieldNames(t *testing.T) {
	d := &ConnectionDescriptor{
		Transport: "tcp", IP: "127.0.0.1",
		StdinPort: 1, ControlPort: 2, HBPort: 3, ShellPort: 4, IOPubPort: 5,
		SignatureScheme: SignatureScheme, Key: "abc", KernelName: "python3",
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, field := range []string{
		"transport", "ip", "stdin_port", "control_port", "hb_port",
		"shell_port", "iopub_port", "signature_scheme", "key", "kernel_name",
	} {
		assert.Contains(t, raw, field)
	}
}

func TestWriteAndRemoveConnectionFile(t *testing.T) {
	d, err := NewConnectionDescriptor("python3")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := d.Write(dir, "session-abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kernel-test-session-abc.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var roundTripped ConnectionDescriptor
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	assert.Equal(t, *d, roundTripped)

	Remove(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIgnoresEmptyPath(t *testing.T) {
	Remove("")
}
