package onnx

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
)

// AttributeType enumerates the value kinds an operator attribute carries.
type AttributeType int

const (
	AttributeInt AttributeType = iota
	AttributeFloat
	AttributeString
	AttributeInts
	AttributeFloats
	AttributeTensor
)

// Attribute is a named static configuration value of an operator record.
// Exactly one of the value fields is meaningful, selected by Type.
type Attribute struct {
	Name   string
	Type   AttributeType
	I      int64
	F      float32
	S      string
	Ints   []int64
	Floats []float32
	T      *tensors.Tensor
}

// IntAttr creates an integer attribute.
func IntAttr(name string, value int64) *Attribute {
	return &Attribute{Name: name, Type: AttributeInt, I: value}
}

// FloatAttr creates a float attribute.
func FloatAttr(name string, value float32) *Attribute {
	return &Attribute{Name: name, Type: AttributeFloat, F: value}
}

// StringAttr creates a string attribute.
func StringAttr(name, value string) *Attribute {
	return &Attribute{Name: name, Type: AttributeString, S: value}
}

// IntsAttr creates an integer-list attribute.
func IntsAttr(name string, values ...int64) *Attribute {
	return &Attribute{Name: name, Type: AttributeInts, Ints: values}
}

// TensorAttr creates a tensor attribute.
func TensorAttr(name string, value *tensors.Tensor) *Attribute {
	return &Attribute{Name: name, Type: AttributeTensor, T: value}
}

// getOpAttr returns the given operator attribute. If required is true, it
// panics with a message about the missing attribute.
func getOpAttr(op *Operator, name string, required bool) *Attribute {
	for _, attr := range op.Attributes {
		if attr.Name == name {
			return attr
		}
	}
	if required {
		exceptions.Panicf("ONNX %s is missing required attribute %q", op, name)
	}
	return nil
}

func assertAttrType(op *Operator, attr *Attribute, attributeType AttributeType) {
	if attr.Type != attributeType {
		exceptions.Panicf("unsupported type of ONNX attribute %q in %s", attr.Name, op)
	}
}

// mustGetIntAttr gets the attribute as an integer.
// It panics with an exception if the attribute is not set or of the wrong type.
func mustGetIntAttr(op *Operator, attrName string) int {
	attr := getOpAttr(op, attrName, true)
	assertAttrType(op, attr, AttributeInt)
	return int(attr.I)
}

// getIntAttrOr gets an integer attribute if present or returns defaultValue.
// It panics with an error message if the attribute is present but is of the wrong type.
func getIntAttrOr(op *Operator, attrName string, defaultValue int) int {
	attr := getOpAttr(op, attrName, false)
	if attr == nil {
		return defaultValue
	}
	assertAttrType(op, attr, AttributeInt)
	return int(attr.I)
}

// getBoolAttrOr gets a boolean attribute (an int value of 0 or 1) if present
// or returns defaultValue.
func getBoolAttrOr(op *Operator, attrName string, defaultValue bool) bool {
	defaultInt := 0
	if defaultValue {
		defaultInt = 1
	}
	return getIntAttrOr(op, attrName, defaultInt) != 0
}

// getFloatAttrOr gets a float attribute if present or returns defaultValue.
// It panics with an error message if the attribute is present but is of the wrong type.
func getFloatAttrOr(op *Operator, attrName string, defaultValue float32) float32 {
	attr := getOpAttr(op, attrName, false)
	if attr == nil {
		return defaultValue
	}
	assertAttrType(op, attr, AttributeFloat)
	return attr.F
}

// getIntsAttrOr gets an integer-list attribute if present or returns
// defaultValues. A single-integer attribute is accepted as a 1-element list.
func getIntsAttrOr(op *Operator, attrName string, defaultValues []int) []int {
	attr := getOpAttr(op, attrName, false)
	if attr == nil {
		return defaultValues
	}
	if attr.Type == AttributeInt {
		return []int{int(attr.I)}
	}
	assertAttrType(op, attr, AttributeInts)
	return sliceMap(attr.Ints, func(i int64) int { return int(i) })
}

// mustGetTensorAttr gets a tensor attribute.
// It panics with an exception if the attribute is not set or of the wrong type.
func mustGetTensorAttr(op *Operator, attrName string) *tensors.Tensor {
	attr := getOpAttr(op, attrName, true)
	assertAttrType(op, attr, AttributeTensor)
	return attr.T
}

// checkOpAttributes errors with ErrInvalidConfig if the operator carries
// any attribute outside the recognized set. Used by the reduction and
// normalization operators, whose configuration surface is closed.
func checkOpAttributes(op *Operator, recognized ...string) error {
	for _, attr := range op.Attributes {
		if !slices.Contains(recognized, attr.Name) {
			return errors.Wrapf(ErrInvalidConfig, "unrecognized attribute %q for %s", attr.Name, op)
		}
	}
	return nil
}
