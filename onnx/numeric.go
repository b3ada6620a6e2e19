package onnx

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
)

// This file implements the closed-form numeric operators as pure functions
// over materialized tensors. The translator uses them for constant folding;
// they are exported so execution backends can reuse them for the
// corresponding deferred nodes. Float32 tensors are computed with math32,
// everything else in float64.

// HardSwish computes x * clamp(x/6 + 0.5, 0, 1) element-wise.
func HardSwish(x *tensors.Tensor) (*tensors.Tensor, error) {
	return tensors.Unary(x,
		func(v float32) float32 { return v * math32.Min(math32.Max(v/6+0.5, 0), 1) },
		func(v float64) float64 { return v * math.Min(math.Max(v/6+0.5, 0), 1) })
}

// Reciprocal computes 1/x element-wise.
func Reciprocal(x *tensors.Tensor) (*tensors.Tensor, error) {
	return tensors.Unary(x,
		func(v float32) float32 { return 1 / v },
		func(v float64) float64 { return 1 / v })
}

// Identity returns a copy of x.
func Identity(x *tensors.Tensor) (*tensors.Tensor, error) {
	return x.Clone(), nil
}

// LogSum computes log(sum(x, axes)).
func LogSum(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	sum, err := tensors.ReduceSum(x, axes, keepDims)
	if err != nil {
		return nil, err
	}
	return tensors.Unary(sum, math32.Log, math.Log)
}

// LogSumExp computes log(sum(exp(x), axes)).
func LogSumExp(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	exp, err := tensors.Unary(x, math32.Exp, math.Exp)
	if err != nil {
		return nil, err
	}
	return LogSum(exp, axes, keepDims)
}

// SumSquare computes sum(x², axes).
func SumSquare(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	squares, err := tensors.Unary(x,
		func(v float32) float32 { return v * v },
		func(v float64) float64 { return v * v })
	if err != nil {
		return nil, err
	}
	return tensors.ReduceSum(squares, axes, keepDims)
}

// L1Norm computes sum(|x|, axes).
func L1Norm(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	abs, err := tensors.Unary(x, math32.Abs, math.Abs)
	if err != nil {
		return nil, err
	}
	return tensors.ReduceSum(abs, axes, keepDims)
}

// L2Norm computes sum(x², axes).
//
// Note this is the *squared* sum: the upstream translation never applies the
// square root, and callers that need a true L2 norm must take it themselves.
func L2Norm(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	return SumSquare(x, axes, keepDims)
}

// Mean computes the pairwise element-wise mean (x+y)/2, with NumPy-style
// broadcasting between the operands.
func Mean(x, y *tensors.Tensor) (*tensors.Tensor, error) {
	return tensors.Binary(x, y, func(a, b float64) float64 { return (a + b) / 2 })
}

// LRN computes the local response normalization
//
//	x / (bias + alpha/size * sum(x², leading axes 0..size-1))^beta
//
// with the squared sum keeping its dims so it broadcasts back over x.
// The window covers the leading axes rather than being centered on the
// current channel; this reproduces the upstream translation as-is.
func LRN(x *tensors.Tensor, size int, alpha, beta, bias float32) (*tensors.Tensor, error) {
	if size < 1 || size > x.Rank() {
		return nil, errors.Errorf("LRN size %d out of range for rank-%d input", size, x.Rank())
	}
	axes := make([]int, size)
	for axis := range axes {
		axes[axis] = axis
	}
	windowSum, err := SumSquare(x, axes, true)
	if err != nil {
		return nil, err
	}
	denom, err := tensors.Unary(windowSum,
		func(v float32) float32 { return math32.Pow(bias+alpha/float32(size)*v, beta) },
		func(v float64) float64 {
			return math.Pow(float64(bias)+float64(alpha)/float64(size)*v, float64(beta))
		})
	if err != nil {
		return nil, err
	}
	return tensors.Binary(x, denom, func(a, d float64) float64 { return a / d })
}

// reduceConfig holds the recognized reduction options. Axes default to all
// axes (empty list), keepDims defaults to false.
type reduceConfig struct {
	axes     []int
	keepDims bool
}

// reduceConfigFromOp parses the configuration of a reduction operator.
// Any attribute other than "axes" and "keepdims" fails with ErrInvalidConfig.
func reduceConfigFromOp(op *Operator) (reduceConfig, error) {
	if err := checkOpAttributes(op, "axes", "keepdims"); err != nil {
		return reduceConfig{}, err
	}
	return reduceConfig{
		axes:     getIntsAttrOr(op, "axes", nil),
		keepDims: getBoolAttrOr(op, "keepdims", false),
	}, nil
}
