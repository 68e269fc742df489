package kernelspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandSubstitutesPlaceholder(t *testing.T) {
	s := KernelSpec{
		Name:     "python3",
		Language: "python",
		Argv:     []string{"python3", "-m", "ipykernel_launcher", "-f", "{connection_file}"},
	}

	cmd := s.Command("/run/kernel-test-abc.json")
	assert.Equal(t, "python3", cmd.Args[0])
	assert.Equal(t, []string{"python3", "-m", "ipykernel_launcher", "-f", "/run/kernel-test-abc.json"}, cmd.Args)
}

func TestCommandAppendsPathWithoutPlaceholder(t *testing.T) {
	s := KernelSpec{Name: "custom", Argv: []string{"my-kernel"}}

	cmd := s.Command("/run/kernel-test-abc.json")
	assert.Equal(t, []string{"my-kernel", "/run/kernel-test-abc.json"}, cmd.Args)
}
