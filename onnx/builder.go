package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/onnx-ir/ir"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Builder accumulates the graph and parameter store under construction.
// It is the translation-time view of the ir package: operator converters go
// through it to append nodes, record folded constants and bind eagerly-known
// parameter values.
type Builder struct {
	graph  *ir.Graph
	params ir.Params
}

// NewBuilder creates a builder for an empty graph with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{graph: ir.New(name), params: make(ir.Params)}
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *ir.Graph { return b.graph }

// Params returns the parameter store under construction.
func (b *Builder) Params() ir.Params { return b.params }

// AddNode appends a node to the graph and returns it.
func (b *Builder) AddNode(name, kind string, inputs []ir.Operand, attrs map[string]any, output shapes.Shape) *ir.Node {
	return b.graph.Add(&ir.Node{
		Name:   name,
		Kind:   kind,
		Inputs: inputs,
		Attrs:  attrs,
		Output: output,
	})
}

// AddConstant records a folded value both as a "Constant" node -- so the
// graph names every operator output, folded or not -- and as the constant
// operand downstream operators consume.
func (b *Builder) AddConstant(name string, value *tensors.Tensor) ir.Operand {
	klog.V(2).Infof("graph %q: %q materialized to a constant %s", b.graph.Name(), name, value.Shape())
	b.AddNode(name, "Constant", nil, map[string]any{"value": value}, value.Shape())
	return &ir.Constant{Value: value}
}

// KernelLayer appends a node whose second operand is a learnable parameter:
// the parameter becomes a named slot on the node and, when its value is
// already known (an initializer), it is bound in the parameter store right
// away. Attrs carry the operand order for non-commutative kinds.
func (b *Builder) KernelLayer(name, kind string, input ir.Operand, kernel *ir.ParamRef,
	value *tensors.Tensor, attrs map[string]any, output shapes.Shape) *ir.Node {
	node := b.AddNode(name, kind, []ir.Operand{input}, attrs, output)
	node.AddParam(kernel.Name, kernel.Shape)
	if value != nil {
		b.params.Set(name, kernel.Name, value)
	}
	return node
}

// Gather appends a "Gather" node. Indices are coerced to Int64 first:
// constant indices convert eagerly, anything else gets a Cast node inserted
// in front.
func (b *Builder) Gather(name string, data, indices ir.Operand, axis int, output shapes.Shape) *ir.Node {
	indices = b.intIndices(name, indices)
	return b.AddNode(name, "Gather", []ir.Operand{data, indices},
		map[string]any{"axis": axis}, output)
}

// intIndices returns the indices operand converted to Int64.
func (b *Builder) intIndices(name string, indices ir.Operand) ir.Operand {
	shape := b.shapeOf(indices)
	if shape.DType == dtypes.Int64 {
		return indices
	}
	if constant, ok := indices.(*ir.Constant); ok {
		converted, err := tensors.ConvertDType(constant.Value, dtypes.Int64)
		if err != nil {
			panic(errors.WithMessagef(err, "while converting indices of %q to Int64", name))
		}
		return &ir.Constant{Value: converted}
	}
	castName := name + ".indices_int64"
	b.AddNode(castName, "Cast", []ir.Operand{indices},
		map[string]any{"to": dtypes.Int64},
		shapes.Make(dtypes.Int64, shape.Dimensions...))
	return &ir.GraphRef{Name: castName}
}

// shapeOf returns the static shape of an operand: the value shape of a
// constant, the declared shape of a parameter, or the inferred output shape
// of the referenced node.
func (b *Builder) shapeOf(operand ir.Operand) shapes.Shape {
	switch operand := operand.(type) {
	case *ir.Constant:
		return operand.Value.Shape()
	case *ir.ParamRef:
		return operand.Shape
	case *ir.GraphRef:
		node := b.graph.Get(operand.Name)
		if node == nil {
			exceptions.Panicf("operand references unknown node %q", operand.Name)
		}
		return node.Output
	default:
		exceptions.Panicf("unknown operand type %T", operand)
		panic(nil) // lint.
	}
}
