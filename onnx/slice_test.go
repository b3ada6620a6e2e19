package onnx

import (
	"testing"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSliceRanges(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 5)

	// No named axes: everything keeps its full range.
	ranges, err := resolveSliceRanges(shape, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 0, step: 1, count: 5}}, ranges)

	// Explicit full range is the identity.
	ranges, err = resolveSliceRanges(shape, []int{0}, []int{5}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 0, step: 1, count: 5}}, ranges)

	// A large stop clamps to the dimension.
	ranges, err = resolveSliceRanges(shape, []int{0}, []int{100}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 0, step: 1, count: 5}}, ranges)

	// start=-1 selects the same element as start=dim-1.
	ranges, err = resolveSliceRanges(shape, []int{-1}, []int{5}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 4, step: 1, count: 1}}, ranges)

	// Full reversal: start at the last element, stop just below index 0.
	for _, start := range []int{4, -1} {
		ranges, err = resolveSliceRanges(shape, []int{start}, []int{-1}, nil, []int{-1})
		require.NoError(t, err)
		assert.Equal(t, []axisRange{{begin: 4, step: -1, count: 5}}, ranges)
	}

	// Negative step with a stride: indices 4, 2, 0.
	ranges, err = resolveSliceRanges(shape, []int{4}, []int{-1}, nil, []int{-2})
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 4, step: -2, count: 3}}, ranges)

	// Non-negative stop with a negative step clamps to dim-1.
	ranges, err = resolveSliceRanges(shape, []int{4}, []int{1}, nil, []int{-1})
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 4, step: -1, count: 3}}, ranges)

	// start == stop selects nothing.
	ranges, err = resolveSliceRanges(shape, []int{2}, []int{2}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ranges[0].count)

	// A backwards range with a positive step also selects nothing.
	ranges, err = resolveSliceRanges(shape, []int{4}, []int{1}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ranges[0].count)

	// A stride of 2 over 5 elements takes 3.
	ranges, err = resolveSliceRanges(shape, []int{0}, []int{5}, nil, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []axisRange{{begin: 0, step: 2, count: 3}}, ranges)

	// Zero strides are rejected.
	_, err = resolveSliceRanges(shape, []int{0}, []int{5}, nil, []int{0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestResolveSliceRangesAxes(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 2, 5, 3)

	// Only the named axis is sliced, negative axes count from the end.
	ranges, err := resolveSliceRanges(shape, []int{1}, []int{4}, []int{-2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []axisRange{
		{begin: 0, step: 1, count: 2},
		{begin: 1, step: 1, count: 3},
		{begin: 0, step: 1, count: 3},
	}, ranges)

	_, err = resolveSliceRanges(shape, []int{0}, []int{1}, []int{3}, nil)
	require.Error(t, err)

	// Mismatched specification lengths are rejected.
	_, err = resolveSliceRanges(shape, []int{0, 0}, []int{1}, nil, nil)
	require.Error(t, err)
}
