package tensors

import (
	"reflect"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// This file implements the numeric capability backing the translation
// core: element-wise maps, broadcast binary ops, axis sum-reduction and
// strided slicing. Everything here is eager and pure: inputs are never
// mutated.

// Unary applies an element-wise function, returning a new tensor with the
// same shape and dtype. Float32 tensors take the f32 fast path (callers
// typically back it with math32), every other numeric dtype goes through
// f64. Integer dtypes truncate the result toward zero.
func Unary(t *Tensor, f32 func(float32) float32, f64 func(float64) float64) (*Tensor, error) {
	if isComplexDType(t.DType()) {
		return nil, errors.Errorf("element-wise op not supported for dtype %s", t.DType())
	}
	out := FromShape(t.shape.Clone())
	if data, ok := t.data.([]float32); ok {
		outData := out.data.([]float32)
		for i, v := range data {
			outData[i] = f32(v)
		}
		return out, nil
	}
	for i := 0; i < t.Size(); i++ {
		out.setFloat(i, f64(t.floatAt(i)))
	}
	return out, nil
}

// Binary applies an element-wise binary function with NumPy-style
// broadcasting: shapes are right-aligned and axes of dimension 1 broadcast.
// Both operands must have the same dtype, which is also the result dtype.
func Binary(a, b *Tensor, fn func(x, y float64) float64) (*Tensor, error) {
	if a.DType() != b.DType() {
		return nil, errors.Errorf("binary op requires matching dtypes, got %s and %s", a.DType(), b.DType())
	}
	if isComplexDType(a.DType()) {
		return nil, errors.Errorf("element-wise op not supported for dtype %s", a.DType())
	}
	outDims, err := broadcastDims(a.shape.Dimensions, b.shape.Dimensions)
	if err != nil {
		return nil, err
	}
	out := FromShape(shapes.Make(a.DType(), outDims...))
	if out.Size() == 0 {
		return out, nil
	}

	aStrides := broadcastStrides(a.shape.Dimensions, outDims)
	bStrides := broadcastStrides(b.shape.Dimensions, outDims)
	idx := make([]int, len(outDims))
	flat := 0
	for {
		aFlat, bFlat := 0, 0
		for d, i := range idx {
			aFlat += i * aStrides[d]
			bFlat += i * bStrides[d]
		}
		out.setFloat(flat, fn(a.floatAt(aFlat), b.floatAt(bFlat)))
		flat++
		if !incrementIndex(idx, outDims) {
			break
		}
	}
	return out, nil
}

// ReduceSum sums over the given axes -- all axes when none are given.
// Negative axes are resolved against the rank. If keepDims is set the
// reduced axes are kept with dimension 1, otherwise they are dropped.
// The result keeps the input dtype; accumulation happens in float64.
func ReduceSum(t *Tensor, axes []int, keepDims bool) (*Tensor, error) {
	if isComplexDType(t.DType()) {
		return nil, errors.Errorf("reduction not supported for dtype %s", t.DType())
	}
	rank := t.Rank()
	reduced := make([]bool, rank)
	if len(axes) == 0 {
		for axis := range reduced {
			reduced[axis] = true
		}
	}
	for _, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("reduction axis %d out of range for rank %d", axis, rank)
		}
		reduced[axis] = true
	}

	var outDims []int
	for axis, dim := range t.shape.Dimensions {
		if reduced[axis] {
			if keepDims {
				outDims = append(outDims, 1)
			}
			continue
		}
		outDims = append(outDims, dim)
	}
	out := FromShape(shapes.Make(t.DType(), outDims...))
	acc := make([]float64, out.Size())
	if t.Size() > 0 {
		outStrides := rowMajorStrides(outDims)
		idx := make([]int, rank)
		flat := 0
		for {
			outFlat, outAxis := 0, 0
			for axis, i := range idx {
				if reduced[axis] {
					if keepDims {
						outAxis++
					}
					continue
				}
				outFlat += i * outStrides[outAxis]
				outAxis++
			}
			acc[outFlat] += t.floatAt(flat)
			flat++
			if !incrementIndex(idx, t.shape.Dimensions) {
				break
			}
		}
	}
	for i, v := range acc {
		out.setFloat(i, v)
	}
	return out, nil
}

// Slice extracts a strided slice: for every axis it takes counts[axis]
// elements starting at begins[axis], stepping by steps[axis]. Steps may be
// negative; a count of zero yields an empty tensor. All three slices must
// have one entry per axis and the selected indices must be in bounds.
func Slice(t *Tensor, begins, steps, counts []int) (*Tensor, error) {
	rank := t.Rank()
	if len(begins) != rank || len(steps) != rank || len(counts) != rank {
		return nil, errors.Errorf("slice of rank-%d tensor requires %d begin/step/count entries, got %d/%d/%d",
			rank, rank, len(begins), len(steps), len(counts))
	}
	for axis, count := range counts {
		if count < 0 {
			return nil, errors.Errorf("negative slice count %d for axis %d", count, axis)
		}
		if count == 0 {
			continue
		}
		last := begins[axis] + (count-1)*steps[axis]
		dim := t.shape.Dimensions[axis]
		if begins[axis] < 0 || begins[axis] >= dim || last < 0 || last >= dim {
			return nil, errors.Errorf("slice of axis %d (begin=%d, step=%d, count=%d) out of bounds for dimension %d",
				axis, begins[axis], steps[axis], count, dim)
		}
	}

	out := FromShape(shapes.Make(t.DType(), counts...))
	if out.Size() == 0 {
		return out, nil
	}
	src := reflect.ValueOf(t.data)
	dst := reflect.ValueOf(out.data)
	srcStrides := rowMajorStrides(t.shape.Dimensions)
	idx := make([]int, rank)
	flat := 0
	for {
		srcFlat := 0
		for axis, i := range idx {
			srcFlat += (begins[axis] + i*steps[axis]) * srcStrides[axis]
		}
		dst.Index(flat).Set(src.Index(srcFlat))
		flat++
		if !incrementIndex(idx, counts) {
			break
		}
	}
	return out, nil
}

// ConvertDType converts the tensor to the given dtype. Integer-to-integer
// conversions go through int64 and are exact within range; any path through
// floats rounds like a Go conversion. Complex dtypes only convert among
// themselves.
func ConvertDType(t *Tensor, to dtypes.DType) (*Tensor, error) {
	if to == t.DType() {
		return t.Clone(), nil
	}
	if isComplexDType(t.DType()) || isComplexDType(to) {
		if !isComplexDType(t.DType()) || !isComplexDType(to) {
			return nil, errors.Errorf("cannot convert dtype %s to %s", t.DType(), to)
		}
		return convertComplex(t, to), nil
	}
	out := FromShape(shapes.Make(to, t.shape.Dimensions...))
	intToInt := t.DType().IsInt() && to.IsInt()
	for i := 0; i < t.Size(); i++ {
		if intToInt {
			out.setInt(i, t.intAt(i))
		} else {
			out.setFloat(i, t.floatAt(i))
		}
	}
	return out, nil
}

func convertComplex(t *Tensor, to dtypes.DType) *Tensor {
	out := FromShape(shapes.Make(to, t.shape.Dimensions...))
	if to == dtypes.Complex128 {
		src := t.data.([]complex64)
		dst := out.data.([]complex128)
		for i, v := range src {
			dst[i] = complex128(v)
		}
	} else {
		src := t.data.([]complex128)
		dst := out.data.([]complex64)
		for i, v := range src {
			dst[i] = complex64(v)
		}
	}
	return out
}

// broadcastDims computes the NumPy-style broadcast of two dimension lists:
// right-aligned, missing axes prepended as 1, axes of dimension 1 broadcast
// to the other operand's dimension.
func broadcastDims(a, b []int) ([]int, error) {
	rank := max(len(a), len(b))
	out := make([]int, rank)
	for d := 0; d < rank; d++ {
		dimA, dimB := 1, 1
		if d >= rank-len(a) {
			dimA = a[d-(rank-len(a))]
		}
		if d >= rank-len(b) {
			dimB = b[d-(rank-len(b))]
		}
		switch {
		case dimA == dimB:
			out[d] = dimA
		case dimA == 1:
			out[d] = dimB
		case dimB == 1:
			out[d] = dimA
		default:
			return nil, errors.Errorf("dimensions %v and %v are not broadcastable", a, b)
		}
	}
	return out, nil
}

// broadcastStrides returns the row-major strides of dims aligned to the
// (broadcast) outDims: prepended axes and axes of dimension 1 get stride 0.
func broadcastStrides(dims, outDims []int) []int {
	strides := rowMajorStrides(dims)
	out := make([]int, len(outDims))
	offset := len(outDims) - len(dims)
	for d := range dims {
		if dims[d] != 1 {
			out[offset+d] = strides[d]
		}
	}
	return out
}

// rowMajorStrides returns the flat-index stride of each axis.
func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}

// incrementIndex advances a row-major multi-index by one position,
// returning false once it wraps around.
func incrementIndex(idx, dims []int) bool {
	for axis := len(dims) - 1; axis >= 0; axis-- {
		idx[axis]++
		if idx[axis] < dims[axis] {
			return true
		}
		idx[axis] = 0
	}
	return false
}
