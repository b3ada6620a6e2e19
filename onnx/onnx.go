// Package onnx translates ONNX operator records into a backend-neutral
// computation graph (see the ir package), resolving each operator's numeric
// and shape semantics at graph-construction time.
//
//   - Model: the in-memory model description, as handed over by an external
//     deserializer: operator records, declared inputs/outputs and
//     initializer tensors.
//   - Model.BuildGraph: converts the operators into an ir.Graph plus the
//     parameter-value store the execution backend binds before running.
//   - The closed-form numeric operators (HardSwish, LRN, the reductions,
//     ...) are exported as pure functions over materialized tensors, so
//     backends can reuse them for the corresponding deferred nodes.
//
// Model deserialization, file I/O and graph execution are out of scope:
// this package neither parses protobufs nor runs the graph it builds.
package onnx

import (
	"fmt"
	"strings"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
)

// Errors reported during translation. They are wrapped with per-operator
// context and can be tested with errors.Is.
var (
	// ErrUnsupportedType indicates an interchange element type code with no
	// tensor mapping: the string type (code 8) or any code outside the
	// documented table.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrInvalidConfig indicates a reduction or normalization operator
	// received an unrecognized configuration attribute.
	ErrInvalidConfig = errors.New("invalid operator configuration")

	// ErrInvalidRange indicates a slice specification with a zero stride.
	ErrInvalidRange = errors.New("invalid slice range")
)

// Operator is one operator record of the model description, as supplied by
// the (out of scope) model deserializer: an operation kind, ordered input
// names, named attributes and the output name.
type Operator struct {
	OpType     string
	Name       string
	Inputs     []string
	Output     string
	Attributes []*Attribute
}

// String implements fmt.Stringer, used for error messages.
func (op *Operator) String() string {
	name := op.Name
	if name == "" {
		name = op.Output
	}
	return fmt.Sprintf("%s(%q, inputs=[%s])", op.OpType, name, strings.Join(op.Inputs, ", "))
}

// Model is a parsed model description ready for translation.
//
// InputShapes declares the shape of every graph input; Initializers holds
// the model's learnable (or fixed) tensors by name -- inputs of an operator
// that name an initializer are translated as learnable parameters.
type Model struct {
	Name         string
	Operators    []*Operator
	InputNames   []string
	OutputNames  []string
	InputShapes  map[string]shapes.Shape
	Initializers map[string]*tensors.Tensor
}

// sliceMap executes the given function sequentially for every element on in,
// and returns a mapped slice.
func sliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}
