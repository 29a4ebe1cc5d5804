package counts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want Command
	}{
		{IntrinsicBeginEstimateCaching, []any{"adder", 4}, BeginEstimateCaching{CacheName: "adder", Variant: 4}},
		{IntrinsicEndEstimateCaching, nil, EndEstimateCaching{}},
		{IntrinsicBeginRepeatEstimates, []any{int64(12)}, BeginRepeatEstimates{Count: 12}},
		{IntrinsicEndRepeatEstimates, nil, EndRepeatEstimates{}},
		{
			IntrinsicAccountForEstimates,
			[]any{[]any{[]any{1, 3}, []any{5, 2.0}}, 1, []any{0, 2}},
			AccountForEstimates{
				Estimates: []Estimate{{EstimateT, 3}, {EstimateMeasurements, 2}},
				Layout:    1,
				Qubits:    []int{0, 2},
			},
		},
		{IntrinsicEnableMemoryComputeArchitecture, []any{8, 1}, EnableMemoryComputeArchitecture{ComputeCapacity: 8, Strategy: LeastFrequentlyUsed}},
		{"GlobalPhase", []any{0.5}, NoOp{Name: "GlobalPhase"}},
		{"ApplyIdleNoise", nil, NoOp{Name: "ApplyIdleNoise"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand(tt.name, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.IntrinsicName())
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		intr    string
		args    []any
		wantMsg string
	}{
		{"unknown", "Teleport", nil, "unknown intrinsic"},
		{"wrong arity", IntrinsicBeginEstimateCaching, []any{"x"}, "expects 2 arguments"},
		{"name not a string", IntrinsicBeginEstimateCaching, []any{1, 1}, "must be a string"},
		{"fractional count", IntrinsicBeginRepeatEstimates, []any{1.5}, "not an integer"},
		{"count of two to the 63", IntrinsicBeginRepeatEstimates, []any{float64(1 << 63)}, "not an integer"},
		{"count below int64", IntrinsicBeginRepeatEstimates, []any{-float64(1 << 64)}, "not an integer"},
		{"estimates not pairs", IntrinsicAccountForEstimates, []any{[]any{1}, 1, []any{}}, "[kind, count] pair"},
		{"negative qubit", IntrinsicAccountForEstimates, []any{[]any{}, 1, []any{-1}}, "negative id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.intr, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
	_, err := DecodeCommand("Teleport", nil)
	assert.ErrorIs(t, err, ErrUnknownIntrinsic)
}

func TestCustomIntrinsic_CachingSkipsSecondBody(t *testing.T) {
	// GIVEN a counter driven only through named intrinsics
	c := newTestCounter(0)
	q := c.QubitAllocate()
	executions := 0

	for i := 0; i < 3; i++ {
		// WHEN the same cached region is requested three times
		proceed, err := c.CustomIntrinsic(IntrinsicBeginEstimateCaching, []any{"op", 0})
		require.NoError(t, err)
		if proceed {
			executions++
			c.T(q)
			_, err = c.CustomIntrinsic(IntrinsicEndEstimateCaching, nil)
			require.NoError(t, err)
		}
	}

	// THEN the body ran once and its cost counted three times
	assert.Equal(t, 1, executions)
	assert.Equal(t, uint64(3), c.LogicalResources().TCount)
}

func TestCustomIntrinsic_WrapsErrors(t *testing.T) {
	c := newTestCounter(0)

	_, err := c.CustomIntrinsic(IntrinsicEndRepeatEstimates, nil)

	assert.ErrorIs(t, err, ErrNoActiveRepeat)
	assert.Contains(t, err.Error(), IntrinsicEndRepeatEstimates)
}

func TestCustomIntrinsic_AccountForEstimates(t *testing.T) {
	c := newTestCounter(0)
	allocate(c, 2)

	proceed, err := c.CustomIntrinsic(IntrinsicAccountForEstimates,
		[]any{[]any{[]any{2, 4}, []any{3, 2}}, 1, []any{0, 1}})

	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Equal(t, []Layer{{R: 2}, {R: 2}}, c.Layers())
}
