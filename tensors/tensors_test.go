package tensors

import (
	"testing"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFlatDataAndDimensions(t *testing.T) {
	x := FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, dtypes.Float32, x.DType())
	assert.Equal(t, []int{2, 3}, x.Shape().Dimensions)
	assert.Equal(t, 6, x.Size())

	// The tensor owns a copy of the data.
	data := []int64{1, 2}
	y := FromFlatDataAndDimensions(data, 2)
	data[0] = 99
	assert.Equal(t, []int64{1, 2}, Flat[int64](y))

	assert.Panics(t, func() { FromFlatDataAndDimensions([]float32{1, 2}, 3) })
}

func TestFromScalar(t *testing.T) {
	x := FromScalar(3.5)
	assert.True(t, x.IsScalar())
	assert.Equal(t, dtypes.Float64, x.DType())
	assert.Equal(t, []float64{3.5}, Flat[float64](x))
}

func TestCloneAndEqual(t *testing.T) {
	x := FromFlatDataAndDimensions([]int32{1, 2, 3}, 3)
	y := x.Clone()
	assert.True(t, x.Equal(y))
	Flat[int32](y)[0] = 42
	assert.False(t, x.Equal(y))
	assert.False(t, x.Equal(nil))
	assert.False(t, x.Equal(FromFlatDataAndDimensions([]int32{1, 2, 3}, 3, 1)))
}

func TestToInts(t *testing.T) {
	assert.Equal(t, []int{3, -1, 7},
		FromFlatDataAndDimensions([]int64{3, -1, 7}, 3).ToInts())
	assert.Equal(t, []int{2, 5},
		FromFlatDataAndDimensions([]uint8{2, 5}, 2).ToInts())
	assert.Panics(t, func() { FromScalar[float32](1).ToInts() })
}

func TestUnary(t *testing.T) {
	x := FromFlatDataAndDimensions([]float32{1, -2, 3}, 3)
	got, err := Unary(x,
		func(v float32) float32 { return -v },
		func(v float64) float64 { return -v })
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 2, -3}, Flat[float32](got))
	// The input is never mutated.
	assert.Equal(t, []float32{1, -2, 3}, Flat[float32](x))

	// Non-float32 dtypes go through the float64 path; integers truncate.
	half, err := Unary(FromFlatDataAndDimensions([]int32{3, 5}, 2), nil,
		func(v float64) float64 { return v / 2 })
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, Flat[int32](half))

	_, err = Unary(FromScalar[complex64](1), nil, nil)
	require.Error(t, err)
}

func TestBinaryBroadcast(t *testing.T) {
	a := FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := FromFlatDataAndDimensions([]float32{10, 20, 30}, 3)
	got, err := Binary(a, b, func(x, y float64) float64 { return x + y })
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape().Dimensions)
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, Flat[float32](got))

	// Column against row vector.
	col := FromFlatDataAndDimensions([]float32{1, 2}, 2, 1)
	row := FromFlatDataAndDimensions([]float32{10, 20, 30}, 1, 3)
	got, err = Binary(col, row, func(x, y float64) float64 { return x * y })
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape().Dimensions)
	assert.Equal(t, []float32{10, 20, 30, 20, 40, 60}, Flat[float32](got))

	_, err = Binary(a, FromFlatDataAndDimensions([]float32{1, 2}, 2), nil)
	require.Error(t, err)
	_, err = Binary(a, FromScalar[float64](1), nil)
	require.Error(t, err) // Mismatched dtypes.
}

func TestReduceSum(t *testing.T) {
	x := FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	got, err := ReduceSum(x, nil, false)
	require.NoError(t, err)
	assert.True(t, got.IsScalar())
	assert.Equal(t, []float32{21}, Flat[float32](got))

	got, err = ReduceSum(x, []int{0}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got.Shape().Dimensions)
	assert.Equal(t, []float32{5, 7, 9}, Flat[float32](got))

	// Negative axis, keeping dims.
	got, err = ReduceSum(x, []int{-1}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, got.Shape().Dimensions)
	assert.Equal(t, []float32{6, 15}, Flat[float32](got))

	_, err = ReduceSum(x, []int{2}, false)
	require.Error(t, err)
}

func TestSlice(t *testing.T) {
	x := FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, 3, 4)

	// Middle rows, every other column.
	got, err := Slice(x, []int{1, 0}, []int{1, 2}, []int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, got.Shape().Dimensions)
	assert.Equal(t, []float32{4, 6, 8, 10}, Flat[float32](got))

	// Negative step reverses.
	got, err = Slice(x, []int{0, 3}, []int{1, -1}, []int{1, 4})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 2, 1, 0}, Flat[float32](got))

	// Zero count yields an empty tensor.
	got, err = Slice(x, []int{0, 0}, []int{1, 1}, []int{0, 4})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Size())

	_, err = Slice(x, []int{0, 0}, []int{1, 1}, []int{4, 4})
	require.Error(t, err) // Out of bounds.
	_, err = Slice(x, []int{0}, []int{1}, []int{1})
	require.Error(t, err) // Wrong rank.
}

func TestConvertDType(t *testing.T) {
	x := FromFlatDataAndDimensions([]float32{1.5, -2.5, 3}, 3)
	got, err := ConvertDType(x, dtypes.Int64)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -2, 3}, Flat[int64](got))

	// Int-to-int is exact.
	big, err := ConvertDType(FromScalar[int64](1<<53+1), dtypes.Uint64)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1<<53 + 1}, Flat[uint64](big))

	// Converting to the same dtype returns an independent copy.
	same, err := ConvertDType(x, dtypes.Float32)
	require.NoError(t, err)
	assert.True(t, x.Equal(same))
	Flat[float32](same)[0] = 9
	assert.Equal(t, float32(1.5), Flat[float32](x)[0])

	// Complex only converts among complexes.
	c, err := ConvertDType(FromScalar[complex64](complex(1, 2)), dtypes.Complex128)
	require.NoError(t, err)
	assert.Equal(t, []complex128{complex(1, 2)}, Flat[complex128](c))
	_, err = ConvertDType(x, dtypes.Complex64)
	require.Error(t, err)
}

func TestFromShape(t *testing.T) {
	x := FromShape(shapes.Make(dtypes.Uint16, 2, 2))
	assert.Equal(t, []uint16{0, 0, 0, 0}, Flat[uint16](x))
	assert.Panics(t, func() { Flat[int32](x) })
}
