package onnx

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Element type codes of the interchange format, matching the ONNX
// TensorProto.DataType enumeration.
const (
	TypeUndefined  int32 = 0
	TypeFloat      int32 = 1
	TypeUint8      int32 = 2
	TypeInt8       int32 = 3
	TypeUint16     int32 = 4
	TypeInt16      int32 = 5
	TypeInt32      int32 = 6
	TypeInt64      int32 = 7
	TypeString     int32 = 8
	TypeBool       int32 = 9
	TypeFloat16    int32 = 10
	TypeDouble     int32 = 11
	TypeUint32     int32 = 12
	TypeUint64     int32 = 13
	TypeComplex64  int32 = 14
	TypeComplex128 int32 = 15
	TypeBFloat16   int32 = 16
)

// DTypeForONNX converts an ONNX data type code to a GoMLX dtype.
//
// String tensors (code 8) have no tensor mapping and are always rejected,
// as is any code outside the table; both fail with ErrUnsupportedType.
// Boolean tensors (code 9) are byte-aliased to Uint8.
func DTypeForONNX(code int32) (dtypes.DType, error) {
	switch code {
	case TypeFloat:
		return dtypes.Float32, nil
	case TypeUint8:
		return dtypes.Uint8, nil
	case TypeInt8:
		return dtypes.Int8, nil
	case TypeUint16:
		return dtypes.Uint16, nil
	case TypeInt16:
		return dtypes.Int16, nil
	case TypeInt32:
		return dtypes.Int32, nil
	case TypeInt64:
		return dtypes.Int64, nil
	case TypeString:
		return dtypes.InvalidDType, errors.Wrapf(ErrUnsupportedType, "ONNX string tensors (data type code %d) have no tensor mapping", code)
	case TypeBool:
		return dtypes.Uint8, nil
	case TypeFloat16:
		return dtypes.Float16, nil
	case TypeDouble:
		return dtypes.Float64, nil
	case TypeUint32:
		return dtypes.Uint32, nil
	case TypeUint64:
		return dtypes.Uint64, nil
	case TypeComplex64:
		return dtypes.Complex64, nil
	case TypeComplex128:
		return dtypes.Complex128, nil
	case TypeBFloat16:
		return dtypes.BFloat16, nil
	default:
		return dtypes.InvalidDType, errors.Wrapf(ErrUnsupportedType, "unsupported/unknown ONNX data type code %d", code)
	}
}

// promoteDTypes returns the dtype a mixed-dtype binary node resolves to:
// the operand dtype with the higher promotion priority. Shape/type
// validation beyond this is delegated to the execution backend.
func promoteDTypes(lhs, rhs dtypes.DType) dtypes.DType {
	if dtypePriority(rhs) > dtypePriority(lhs) {
		return rhs
	}
	return lhs
}

// dtypePriority returns a priority value for dtype promotion.
// Higher values are preferred in mixed-type operations.
func dtypePriority(dt dtypes.DType) int {
	switch dt {
	case dtypes.Complex128:
		return 110
	case dtypes.Complex64:
		return 105
	case dtypes.Float64:
		return 100
	case dtypes.Float32:
		return 90
	case dtypes.Float16, dtypes.BFloat16:
		return 80
	case dtypes.Int64:
		return 70
	case dtypes.Int32:
		return 60
	case dtypes.Int16:
		return 50
	case dtypes.Int8:
		return 40
	case dtypes.Uint64:
		return 35
	case dtypes.Uint32:
		return 30
	case dtypes.Uint16:
		return 25
	case dtypes.Uint8:
		return 20
	default:
		return 0
	}
}
