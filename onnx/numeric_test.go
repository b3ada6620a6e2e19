package onnx

import (
	"math"
	"testing"

	"github.com/gomlx/onnx-ir/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardSwish(t *testing.T) {
	got, err := HardSwish(tensors.FromFlatDataAndDimensions([]float32{-4, -3, 0, 1.5, 3, 4}, 6))
	require.NoError(t, err)
	// Saturates to 0 at x<=-3 and to x at x>=3; at 1.5 the gate is 0.75.
	assert.Equal(t, []float32{0, 0, 0, 1.125, 3, 4}, tensors.Flat[float32](got))
}

func TestReciprocal(t *testing.T) {
	got := must.M1(Reciprocal(tensors.FromFlatDataAndDimensions([]float32{1, 2, 4}, 3)))
	assert.Equal(t, []float32{1, 0.5, 0.25}, tensors.Flat[float32](got))
}

func TestIdentity(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)
	got := must.M1(Identity(x))
	assert.True(t, got.Equal(x))
	tensors.Flat[float32](got)[0] = 7
	assert.Equal(t, float32(1), tensors.Flat[float32](x)[0])
}

func TestLogSumExp(t *testing.T) {
	got, err := LogSumExp(tensors.FromFlatDataAndDimensions([]float64{0, 0}, 2), nil, false)
	require.NoError(t, err)
	assert.True(t, got.IsScalar())
	assert.InDelta(t, math.Log(2), tensors.Flat[float64](got)[0], 1e-12)

	got, err = LogSum(tensors.FromFlatDataAndDimensions([]float64{1, math.E - 1}, 2), nil, false)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tensors.Flat[float64](got)[0], 1e-12)
}

func TestNorms(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float32{-1, 2, -3}, 3)

	got := must.M1(L1Norm(x, nil, false))
	assert.Equal(t, float32(6), tensors.Flat[float32](got)[0])

	// L2Norm keeps the squared sum, no square root.
	got = must.M1(L2Norm(x, nil, false))
	assert.Equal(t, float32(14), tensors.Flat[float32](got)[0])

	got = must.M1(SumSquare(x, nil, true))
	assert.Equal(t, []int{1}, got.Shape().Dimensions)
	assert.Equal(t, float32(14), tensors.Flat[float32](got)[0])
}

func TestMean(t *testing.T) {
	got := must.M1(Mean(
		tensors.FromFlatDataAndDimensions([]float32{1, 3, 5}, 3),
		tensors.FromScalar[float32](1)))
	assert.Equal(t, []float32{1, 2, 3}, tensors.Flat[float32](got))
}

func TestLRN(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 1, 4, 1, 1)
	got, err := LRN(x, 2, 1, 1, 1)
	require.NoError(t, err)
	// Squared sum over the leading window is 30, so the denominator is
	// 1 + 30/2 = 16 everywhere.
	assert.Equal(t, []float32{0.0625, 0.125, 0.1875, 0.25}, tensors.Flat[float32](got))
	assert.True(t, got.Shape().Equal(x.Shape()))

	_, err = LRN(x, 5, 1, 1, 1)
	require.Error(t, err)
}

func TestReduceConfigFromOp(t *testing.T) {
	op := &Operator{
		OpType:     "ReduceL1",
		Output:     "y",
		Attributes: []*Attribute{IntsAttr("axes", 0, -1), IntAttr("keepdims", 1)},
	}
	config, err := reduceConfigFromOp(op)
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1}, config.axes)
	assert.True(t, config.keepDims)

	op.Attributes = append(op.Attributes, IntAttr("noop_with_empty_axes", 1))
	_, err = reduceConfigFromOp(op)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
