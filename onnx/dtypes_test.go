package onnx

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDTypeForONNX(t *testing.T) {
	wants := map[int32]dtypes.DType{
		TypeFloat:      dtypes.Float32,
		TypeUint8:      dtypes.Uint8,
		TypeInt8:       dtypes.Int8,
		TypeUint16:     dtypes.Uint16,
		TypeInt16:      dtypes.Int16,
		TypeInt32:      dtypes.Int32,
		TypeInt64:      dtypes.Int64,
		TypeBool:       dtypes.Uint8, // Byte-aliased.
		TypeFloat16:    dtypes.Float16,
		TypeDouble:     dtypes.Float64,
		TypeUint32:     dtypes.Uint32,
		TypeUint64:     dtypes.Uint64,
		TypeComplex64:  dtypes.Complex64,
		TypeComplex128: dtypes.Complex128,
		TypeBFloat16:   dtypes.BFloat16,
	}
	for code, want := range wants {
		got, err := DTypeForONNX(code)
		require.NoErrorf(t, err, "code %d", code)
		assert.Equalf(t, want, got, "code %d", code)
	}

	for _, code := range []int32{TypeUndefined, TypeString, 17, -1} {
		got, err := DTypeForONNX(code)
		require.Errorf(t, err, "code %d", code)
		assert.Truef(t, errors.Is(err, ErrUnsupportedType), "code %d: got %v", code, err)
		assert.Equal(t, dtypes.InvalidDType, got)
	}
}

func TestPromoteDTypes(t *testing.T) {
	assert.Equal(t, dtypes.Float32, promoteDTypes(dtypes.Float32, dtypes.Int64))
	assert.Equal(t, dtypes.Float64, promoteDTypes(dtypes.Float32, dtypes.Float64))
	assert.Equal(t, dtypes.Complex64, promoteDTypes(dtypes.Complex64, dtypes.Float64))
	assert.Equal(t, dtypes.Int64, promoteDTypes(dtypes.Uint64, dtypes.Int64))
	assert.Equal(t, dtypes.Int32, promoteDTypes(dtypes.Int32, dtypes.Int32))

	// Equal priority resolves to the left operand.
	assert.Equal(t, dtypes.Float16, promoteDTypes(dtypes.Float16, dtypes.BFloat16))
	assert.Equal(t, dtypes.BFloat16, promoteDTypes(dtypes.BFloat16, dtypes.Float16))
}
