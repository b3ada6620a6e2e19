// Package tensors implements the materialized tensor values used during
// graph translation: constant tensors embedded in the model description,
// eagerly folded results and parameter values.
//
// It is not an execution engine. It implements only the capabilities the
// translation core needs -- element-wise maps, axis sum-reductions, strided
// slicing and dtype conversion -- on dense row-major data. Deferred graph
// nodes are evaluated by the execution backend, not here.
package tensors

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// Supported are the Go types a Tensor can store. One flat slice of one of
// these backs every tensor, in row-major order. Booleans are not listed:
// the interchange format's boolean tensors are byte-aliased to uint8.
type Supported interface {
	float32 | float64 | float16.Float16 | bfloat16.BFloat16 |
		int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		complex64 | complex128
}

// Tensor is a materialized tensor value: a concrete shape (dtype included)
// and its flat data in row-major order.
type Tensor struct {
	shape shapes.Shape
	data  any
}

// FromFlatDataAndDimensions creates a tensor from a flat slice and
// dimensions. The dtype is taken from the slice element type. It panics if
// the data length doesn't match the dimensions.
func FromFlatDataAndDimensions[T Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: shape %s has size %d, but got %d values",
			shape, shape.Size(), len(data))
	}
	flat := make([]T, len(data))
	copy(flat, data)
	return &Tensor{shape: shape, data: flat}
}

// FromScalar creates a rank-0 tensor holding the given value.
func FromScalar[T Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromShape creates a zero-initialized tensor of the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	return &Tensor{shape: shape, data: allocFlat(shape.DType, shape.Size())}
}

// allocFlat allocates the flat data slice for one of the supported dtypes.
func allocFlat(dtype dtypes.DType, size int) any {
	switch dtype {
	case dtypes.Float32:
		return make([]float32, size)
	case dtypes.Float64:
		return make([]float64, size)
	case dtypes.Float16:
		return make([]float16.Float16, size)
	case dtypes.BFloat16:
		return make([]bfloat16.BFloat16, size)
	case dtypes.Int8:
		return make([]int8, size)
	case dtypes.Int16:
		return make([]int16, size)
	case dtypes.Int32:
		return make([]int32, size)
	case dtypes.Int64:
		return make([]int64, size)
	case dtypes.Uint8:
		return make([]uint8, size)
	case dtypes.Uint16:
		return make([]uint16, size)
	case dtypes.Uint32:
		return make([]uint32, size)
	case dtypes.Uint64:
		return make([]uint64, size)
	case dtypes.Complex64:
		return make([]complex64, size)
	case dtypes.Complex128:
		return make([]complex128, size)
	default:
		exceptions.Panicf("tensors: cannot allocate tensor with dtype %s", dtype)
		panic(nil) // lint.
	}
}

// Shape returns the tensor's shape (dtype included).
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the tensor's element type.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank returns the tensor's rank.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size returns the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar reports whether the tensor is rank-0.
func (t *Tensor) IsScalar() bool { return t.shape.Rank() == 0 }

// Flat returns the tensor's flat data. It panics if T doesn't match the
// tensor's dtype. The returned slice is the tensor's backing storage.
func Flat[T Supported](t *Tensor) []T {
	flat, ok := t.data.([]T)
	if !ok {
		exceptions.Panicf("tensors.Flat[%T] called on tensor with dtype %s", *new(T), t.DType())
	}
	return flat
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	src := reflect.ValueOf(t.data)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return &Tensor{shape: t.shape.Clone(), data: dst.Interface()}
}

// Equal reports whether both tensors have the same shape, dtype and values.
func (t *Tensor) Equal(other *Tensor) bool {
	if other == nil {
		return false
	}
	return t.shape.Equal(other.shape) && reflect.DeepEqual(t.data, other.data)
}

// String prints the shape and values.
func (t *Tensor) String() string {
	return fmt.Sprintf("%s: %v", t.shape, t.data)
}

// ToInts converts the tensor values to a flat []int. Only integer dtypes
// are supported: it is meant for axes, indices and slice bound tensors.
func (t *Tensor) ToInts() []int {
	if !t.DType().IsInt() {
		exceptions.Panicf("tensors.ToInts: tensor has dtype %s, expected an integer type", t.DType())
	}
	res := make([]int, t.Size())
	intType := reflect.TypeOf(int(0))
	valueOf := reflect.ValueOf(t.data)
	for ii := range res {
		res[ii] = valueOf.Index(ii).Convert(intType).Interface().(int)
	}
	return res
}

// floatAt returns element i converted to float64. Complex dtypes are not
// part of the numeric capability and panic.
func (t *Tensor) floatAt(i int) float64 {
	switch data := t.data.(type) {
	case []float32:
		return float64(data[i])
	case []float64:
		return data[i]
	case []float16.Float16:
		return float64(data[i].Float32())
	case []bfloat16.BFloat16:
		return float64(data[i].Float32())
	case []int8:
		return float64(data[i])
	case []int16:
		return float64(data[i])
	case []int32:
		return float64(data[i])
	case []int64:
		return float64(data[i])
	case []uint8:
		return float64(data[i])
	case []uint16:
		return float64(data[i])
	case []uint32:
		return float64(data[i])
	case []uint64:
		return float64(data[i])
	default:
		exceptions.Panicf("tensors: dtype %s not supported by numeric operations", t.DType())
		panic(nil) // lint.
	}
}

// setFloat stores v into element i, converting to the tensor's dtype.
// Integer dtypes truncate toward zero, like a Go conversion.
func (t *Tensor) setFloat(i int, v float64) {
	switch data := t.data.(type) {
	case []float32:
		data[i] = float32(v)
	case []float64:
		data[i] = v
	case []float16.Float16:
		data[i] = float16.Fromfloat32(float32(v))
	case []bfloat16.BFloat16:
		data[i] = bfloat16.FromFloat32(float32(v))
	case []int8:
		data[i] = int8(v)
	case []int16:
		data[i] = int16(v)
	case []int32:
		data[i] = int32(v)
	case []int64:
		data[i] = int64(v)
	case []uint8:
		data[i] = uint8(int64(v))
	case []uint16:
		data[i] = uint16(int64(v))
	case []uint32:
		data[i] = uint32(int64(v))
	case []uint64:
		data[i] = uint64(int64(v))
	default:
		exceptions.Panicf("tensors: dtype %s not supported by numeric operations", t.DType())
	}
}

// intAt returns element i of an integer tensor, widened to int64.
func (t *Tensor) intAt(i int) int64 {
	switch data := t.data.(type) {
	case []int8:
		return int64(data[i])
	case []int16:
		return int64(data[i])
	case []int32:
		return int64(data[i])
	case []int64:
		return data[i]
	case []uint8:
		return int64(data[i])
	case []uint16:
		return int64(data[i])
	case []uint32:
		return int64(data[i])
	case []uint64:
		return int64(data[i])
	default:
		exceptions.Panicf("tensors: intAt called on tensor with dtype %s", t.DType())
		panic(nil) // lint.
	}
}

// setInt stores v into element i of an integer tensor.
func (t *Tensor) setInt(i int, v int64) {
	switch data := t.data.(type) {
	case []int8:
		data[i] = int8(v)
	case []int16:
		data[i] = int16(v)
	case []int32:
		data[i] = int32(v)
	case []int64:
		data[i] = v
	case []uint8:
		data[i] = uint8(v)
	case []uint16:
		data[i] = uint16(v)
	case []uint32:
		data[i] = uint32(v)
	case []uint64:
		data[i] = uint64(v)
	default:
		exceptions.Panicf("tensors: setInt called on tensor with dtype %s", t.DType())
	}
}

// isComplexDType reports whether the dtype is a complex number type.
func isComplexDType(dtype dtypes.DType) bool {
	return dtype == dtypes.Complex64 || dtype == dtypes.Complex128
}
