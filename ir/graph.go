// Package ir defines the backend-neutral computation graph produced by the
// onnx translation package: named nodes carrying an operation kind, operand
// inputs, learnable-parameter slots and an inferred output shape.
//
// A Graph is built single-threaded by the translator and then handed,
// read-only, to an execution backend. The companion Params store maps node
// names to the parameter values the backend must bind before running.
package ir

import (
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/onnx-ir/tensors"
	"k8s.io/klog/v2"
)

// Parameter is a named, shaped slot for a learnable or fixed tensor, owned
// by exactly one Node. Its value is bound separately, through a Params
// store, either eagerly during translation or at load time.
type Parameter struct {
	Name  string
	Shape shapes.Shape
}

// Node is one operation of the computation graph.
//
// Kind identifies the operation (for example "Slice", "DotGeneral" or
// "Constant"), Attrs holds the operation's static configuration, and Output
// is the shape inferred at translation time. The shapes declared in Params
// always match the values bound in the parameter store by the time the
// graph executes.
type Node struct {
	Name   string
	Kind   string
	Inputs []Operand
	Params map[string]*Parameter
	Attrs  map[string]any
	Output shapes.Shape
}

// AddParam registers a parameter slot on the node. Nodes created by the
// builder start without a Params map, it is allocated on first use.
func (n *Node) AddParam(name string, shape shapes.Shape) *Parameter {
	if n.Params == nil {
		n.Params = make(map[string]*Parameter)
	}
	p := &Parameter{Name: name, Shape: shape}
	n.Params[name] = p
	return p
}

// Graph is an insertion-ordered mapping from node name to Node.
type Graph struct {
	name  string
	order []string
	nodes map[string]*Node
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:  name,
		nodes: make(map[string]*Node),
	}
}

// Name returns the graph name given at creation.
func (g *Graph) Name() string { return g.name }

// Add inserts the node under node.Name. Inserting a name already present is
// a redefinition: the previous node is replaced, keeping its original
// position in the insertion order.
func (g *Graph) Add(node *Node) *Node {
	if _, found := g.nodes[node.Name]; found {
		klog.Warningf("graph %q: node %q redefined, previous definition replaced", g.name, node.Name)
	} else {
		g.order = append(g.order, node.Name)
	}
	g.nodes[node.Name] = node
	return node
}

// Get returns the node with the given name, or nil.
func (g *Graph) Get(name string) *Node { return g.nodes[name] }

// Has reports whether a node with the given name exists.
func (g *Graph) Has(name string) bool {
	_, found := g.nodes[name]
	return found
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.order) }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	all := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		all = append(all, g.nodes[name])
	}
	return all
}

// Params is the parameter-value store: node name to parameter name to bound
// tensor value. It is populated by the translator for eagerly-supplied
// values (folded or sliced parameters) and externally at load time for the
// rest.
type Params map[string]map[string]*tensors.Tensor

// Set binds a value for the given node and parameter name.
func (p Params) Set(nodeName, paramName string, value *tensors.Tensor) {
	byParam, found := p[nodeName]
	if !found {
		byParam = make(map[string]*tensors.Tensor)
		p[nodeName] = byParam
	}
	byParam[paramName] = value
}

// Get returns the bound value for the given node and parameter name, or nil
// if not (yet) bound.
func (p Params) Get(nodeName, paramName string) *tensors.Tensor {
	return p[nodeName][paramName]
}
