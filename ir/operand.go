package ir

import (
	"fmt"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/onnx-ir/tensors"
)

// Operand is one input of a Node: a materialized constant value, a
// reference to another node's output, or a learnable parameter. The
// translator dispatches on the concrete type (notably when slicing) to
// decide between eager evaluation and deferred graph nodes.
type Operand interface {
	fmt.Stringer
	isOperand()
}

// Constant is a materialized tensor value with a concrete shape and dtype.
type Constant struct {
	Value *tensors.Tensor
}

// GraphRef references the output of another node by name.
type GraphRef struct {
	Name string
}

// ParamRef references a learnable parameter and its declared (pre-binding)
// shape.
type ParamRef struct {
	Name  string
	Shape shapes.Shape
}

func (Constant) isOperand() {}
func (GraphRef) isOperand() {}
func (ParamRef) isOperand() {}

func (c Constant) String() string {
	return fmt.Sprintf("const %s", c.Value.Shape())
}

func (r GraphRef) String() string {
	return fmt.Sprintf("node %q", r.Name)
}

func (p ParamRef) String() string {
	return fmt.Sprintf("param %q %s", p.Name, p.Shape)
}
