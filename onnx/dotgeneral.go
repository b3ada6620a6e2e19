package onnx

import (
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/pkg/errors"
)

// ContractionAxes describes a general dot product: which operand axes are
// contracted against each other and which are matching batch axes. All
// remaining axes cross. This is the static configuration a "DotGeneral"
// graph node carries.
type ContractionAxes struct {
	LhsContracting, LhsBatch []int
	RhsContracting, RhsBatch []int
}

// MatMulAxes returns the contraction axes of a matrix multiplication between
// the two shapes, following NumPy matmul conventions: the last axis of lhs
// contracts with the second-to-last axis of rhs (the only axis, for a
// vector), and all leading axes beyond the trailing matrix dimensions are
// batch axes. Scalar operands yield empty axes on both sides.
func MatMulAxes(lhs, rhs shapes.Shape) (axes ContractionAxes) {
	if lhs.Rank() == 0 || rhs.Rank() == 0 {
		return
	}
	axes.LhsContracting = []int{lhs.Rank() - 1}
	axes.RhsContracting = []int{max(rhs.Rank()-2, 0)}
	for axis := 0; axis < lhs.Rank()-2; axis++ {
		axes.LhsBatch = append(axes.LhsBatch, axis)
	}
	for axis := 0; axis < rhs.Rank()-2; axis++ {
		axes.RhsBatch = append(axes.RhsBatch, axis)
	}
	return
}

// dotGeneralShape infers the output shape of a general dot product: the
// broadcast batch dimensions, then the lhs cross dimensions, then the rhs
// cross dimensions. The dtype follows the promotion rule for mixed-dtype
// operands. Contracted axis pairs must have equal dimensions, batch axes
// broadcast.
func dotGeneralShape(lhs, rhs shapes.Shape, axes ContractionAxes) (shapes.Shape, error) {
	if len(axes.LhsContracting) != len(axes.RhsContracting) {
		return shapes.Shape{}, errors.Errorf("mismatched number of contracting axes: %d vs %d",
			len(axes.LhsContracting), len(axes.RhsContracting))
	}
	if len(axes.LhsBatch) != len(axes.RhsBatch) {
		return shapes.Shape{}, errors.Errorf("mismatched number of batch axes: %d vs %d",
			len(axes.LhsBatch), len(axes.RhsBatch))
	}
	for i, lhsAxis := range axes.LhsContracting {
		rhsAxis := axes.RhsContracting[i]
		if lhs.Dim(lhsAxis) != rhs.Dim(rhsAxis) {
			return shapes.Shape{}, errors.Errorf(
				"contracting dimensions do not match: lhs axis %d (dim %d) vs rhs axis %d (dim %d)",
				lhsAxis, lhs.Dim(lhsAxis), rhsAxis, rhs.Dim(rhsAxis))
		}
	}

	lhsUsed := make([]bool, lhs.Rank())
	rhsUsed := make([]bool, rhs.Rank())
	for _, axis := range axes.LhsContracting {
		lhsUsed[axis] = true
	}
	for _, axis := range axes.RhsContracting {
		rhsUsed[axis] = true
	}

	var outDims []int
	for i, lhsAxis := range axes.LhsBatch {
		rhsAxis := axes.RhsBatch[i]
		lhsUsed[lhsAxis], rhsUsed[rhsAxis] = true, true
		lhsDim, rhsDim := lhs.Dim(lhsAxis), rhs.Dim(rhsAxis)
		switch {
		case lhsDim == rhsDim:
			outDims = append(outDims, lhsDim)
		case lhsDim == 1:
			outDims = append(outDims, rhsDim)
		case rhsDim == 1:
			outDims = append(outDims, lhsDim)
		default:
			return shapes.Shape{}, errors.Errorf(
				"batch dimensions do not broadcast: lhs axis %d (dim %d) vs rhs axis %d (dim %d)",
				lhsAxis, lhsDim, rhsAxis, rhsDim)
		}
	}
	for axis, dim := range lhs.Dimensions {
		if !lhsUsed[axis] {
			outDims = append(outDims, dim)
		}
	}
	for axis, dim := range rhs.Dimensions {
		if !rhsUsed[axis] {
			outDims = append(outDims, dim)
		}
	}
	return shapes.Make(promoteDTypes(lhs.DType, rhs.DType), outDims...), nil
}

// broadcastShapes infers the output shape of an element-wise binary node:
// NumPy broadcast dimensions with the promoted dtype.
func broadcastShapes(lhs, rhs shapes.Shape) (shapes.Shape, error) {
	rank := max(lhs.Rank(), rhs.Rank())
	outDims := make([]int, rank)
	for d := 0; d < rank; d++ {
		lhsDim, rhsDim := 1, 1
		if d >= rank-lhs.Rank() {
			lhsDim = lhs.Dimensions[d-(rank-lhs.Rank())]
		}
		if d >= rank-rhs.Rank() {
			rhsDim = rhs.Dimensions[d-(rank-rhs.Rank())]
		}
		switch {
		case lhsDim == rhsDim:
			outDims[d] = lhsDim
		case lhsDim == 1:
			outDims[d] = rhsDim
		case rhsDim == 1:
			outDims[d] = lhsDim
		default:
			return shapes.Shape{}, errors.Errorf("shapes %s and %s are not broadcastable", lhs, rhs)
		}
	}
	return shapes.Make(promoteDTypes(lhs.DType, rhs.DType), outDims...), nil
}
