package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureKindHints(t *testing.T) {
	for _, k := range []FailureKind{
		FailureTimeout, FailureProtocolError, FailureUnexpectedMessageType,
		FailureUnexpectedContent, FailureKernelError, FailureHarnessError,
	} {
		assert.NotEmpty(t, k.ActionableHint())
		assert.NotEmpty(t, k.LikelySource())
	}
}

func TestFailureKindLikelySource(t *testing.T) {
	assert.Equal(t, "wire", FailureProtocolError.LikelySource())
	assert.Equal(t, "harness", FailureHarnessError.LikelySource())
	assert.Equal(t, "kernel", FailureTimeout.LikelySource())
}

func TestTestResultConstructors(t *testing.T) {
	assert.True(t, Pass().IsPass())
	assert.True(t, Partial(0.5, "half done").IsPass())
	assert.False(t, Unsupported().IsPass())
	assert.False(t, Timeout().IsPass())
	assert.False(t, FailSimple("nope").IsPass())

	f := Fail("bad content", FailureUnexpectedContent)
	kind, ok := f.FailureKind()
	require.True(t, ok)
	assert.Equal(t, FailureUnexpectedContent, kind)

	_, ok = FailSimple("nope").FailureKind()
	assert.False(t, ok)

	kind, ok = Timeout().FailureKind()
	require.True(t, ok)
	assert.Equal(t, FailureTimeout, kind)
}

func TestTestResultSymbol(t *testing.T) {
	assert.Equal(t, "PASS", Pass().Symbol())
	assert.Equal(t, "FAIL", FailSimple("x").Symbol())
	assert.Equal(t, "SKIP", Unsupported().Symbol())
	assert.Equal(t, "TIME", Timeout().Symbol())
	assert.Equal(t, "PART", Partial(0.5, "x").Symbol())
}

func TestTestResultJSONTagging(t *testing.T) {
	data, err := json.Marshal(Fail("boom", FailureKernelError))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"fail","reason":"boom","kind":"kernel_error"}`, string(data))

	data, err = json.Marshal(Pass())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"pass"}`, string(data))
}

func TestDurationMarshalsAsMilliseconds(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "1500", string(data))

	var decoded Duration
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded)
}

func TestTestCategoryMetadata(t *testing.T) {
	assert.Equal(t, 1, Tier1Basic.TierNumber())
	assert.Equal(t, 4, Tier4Advanced.TierNumber())
	assert.Equal(t, "Basic Protocol", Tier1Basic.Description())
}

func TestNewStartupFailure(t *testing.T) {
	r := NewStartupFailure("python3", "python", "connection refused", 2*time.Second)

	require.True(t, r.HasStartupError())
	require.Len(t, r.Results, 1)
	assert.Equal(t, "kernel_startup", r.Results[0].Name)
	assert.Equal(t, Tier1Basic, r.Results[0].Category)
	assert.Equal(t, 0, r.Passed())
	assert.Equal(t, 1, r.Total())
	assert.Equal(t, float32(0), r.Score())
}

func TestKernelReportScoring(t *testing.T) {
	r := &KernelReport{
		KernelName: "python3",
		Results: []TestRecord{
			{Name: "a", Category: Tier1Basic, Result: Pass()},
			{Name: "b", Category: Tier1Basic, Result: FailSimple("no")},
			{Name: "c", Category: Tier2Interactive, Result: Partial(0.5, "meh")},
			{Name: "d", Category: Tier2Interactive, Result: Unsupported()},
		},
	}

	assert.Equal(t, 2, r.Passed())
	assert.Equal(t, 4, r.Total())
	assert.Equal(t, float32(0.5), r.Score())

	passed, total := r.TierScore(Tier1Basic)
	assert.Equal(t, 1, passed)
	assert.Equal(t, 2, total)

	passed, total = r.TierScore(Tier2Interactive)
	assert.Equal(t, 1, passed)
	assert.Equal(t, 2, total)
}

func TestConformanceMatrixAllTestNames(t *testing.T) {
	m := NewConformanceMatrix([]*KernelReport{
		{Results: []TestRecord{{Name: "b"}, {Name: "a"}}},
		{Results: []TestRecord{{Name: "a"}, {Name: "c"}}},
	})

	assert.Equal(t, []string{"a", "b", "c"}, m.AllTestNames())
	assert.False(t, m.GeneratedAt.IsZero())
}
