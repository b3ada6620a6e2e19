package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/onnx-ir/ir"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
)

// BuildGraph translates the model's operators into a computation graph plus
// the parameter store the execution backend binds before running.
//
// Operators are processed in dependency order (the model may list them
// unsorted). Operators whose inputs are all materialized fold eagerly into
// constants; everything else becomes a deferred node with its output shape
// inferred at translation time.
func (m *Model) BuildGraph() (*ir.Graph, ir.Params, error) {
	builder := NewBuilder(m.Name)
	env := make(map[string]ir.Operand)
	for _, name := range m.InputNames {
		shape, found := m.InputShapes[name]
		if !found {
			return nil, nil, errors.Errorf("graph input %q has no declared shape", name)
		}
		builder.AddNode(name, "Input", nil, nil, shape)
		env[name] = &ir.GraphRef{Name: name}
	}
	for name, value := range m.Initializers {
		if _, found := env[name]; found {
			continue
		}
		env[name] = &ir.ParamRef{Name: name, Shape: value.Shape()}
	}

	sorted, err := m.sortedOperators()
	if err != nil {
		return nil, nil, err
	}
	for opIdx, op := range sorted {
		err := exceptions.TryCatch[error](func() { m.convertOperator(builder, op, env) })
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "while converting operator #%d %s", opIdx, op)
		}
	}

	for _, name := range m.OutputNames {
		if _, found := env[name]; !found {
			return nil, nil, errors.Errorf("model output %q was never produced by any operator or input", name)
		}
	}
	return builder.graph, builder.params, nil
}

// sortedOperators returns the operators in dependency order. The sort is
// deterministic: each pass takes the ready operators in their original
// order, so already-sorted models come out unchanged.
func (m *Model) sortedOperators() ([]*Operator, error) {
	known := make(map[string]bool)
	for _, name := range m.InputNames {
		known[name] = true
	}
	for name := range m.Initializers {
		known[name] = true
	}

	sorted := make([]*Operator, 0, len(m.Operators))
	pending := append([]*Operator(nil), m.Operators...)
	for len(pending) > 0 {
		var stuck []*Operator
		progressed := false
		for _, op := range pending {
			ready := true
			for _, input := range op.Inputs {
				if input != "" && !known[input] {
					ready = false
					break
				}
			}
			if !ready {
				stuck = append(stuck, op)
				continue
			}
			sorted = append(sorted, op)
			known[op.Output] = true
			progressed = true
		}
		if !progressed {
			return nil, errors.Errorf("operators have undefined inputs or a dependency cycle, starting at %s", stuck[0])
		}
		pending = stuck
	}
	return sorted, nil
}

// convertOperator translates one operator record. It panics (with an error)
// on failure; BuildGraph catches and wraps it with the operator context.
func (m *Model) convertOperator(builder *Builder, op *Operator, env map[string]ir.Operand) {
	inputs := sliceMap(op.Inputs, func(name string) ir.Operand {
		if name == "" {
			return nil
		}
		operand, found := env[name]
		if !found {
			exceptions.Panicf("input %q is not an input, initializer or earlier operator output", name)
		}
		return operand
	})

	switch op.OpType {
	case "Constant":
		env[op.Output] = builder.AddConstant(op.Output, mustGetTensorAttr(op, "value"))
	case "Cast":
		m.convertCast(builder, op, inputs, env)
	case "Identity":
		m.convertUnary(builder, op, inputs, env, Identity)
	case "Reciprocal":
		m.convertUnary(builder, op, inputs, env, Reciprocal)
	case "HardSwish":
		m.convertUnary(builder, op, inputs, env, HardSwish)
	case "Add", "Sub", "Mul", "Div", "Mean":
		m.convertBinary(builder, op, inputs, env)
	case "ReduceLogSum":
		m.convertReduce(builder, op, inputs, env, LogSum)
	case "ReduceLogSumExp":
		m.convertReduce(builder, op, inputs, env, LogSumExp)
	case "ReduceSumSquare":
		m.convertReduce(builder, op, inputs, env, SumSquare)
	case "ReduceL1":
		m.convertReduce(builder, op, inputs, env, L1Norm)
	case "ReduceL2":
		m.convertReduce(builder, op, inputs, env, L2Norm)
	case "LRN":
		m.convertLRN(builder, op, inputs, env)
	case "Slice":
		m.convertSlice(builder, op, inputs, env)
	case "MatMul":
		m.convertMatMul(builder, op, inputs, env)
	case "Gather":
		m.convertGather(builder, op, inputs, env)
	default:
		exceptions.Panicf("unimplemented ONNX operator %q", op.OpType)
	}
}

// convertCast translates a Cast operator: eager dtype conversion of a
// constant, or a deferred "Cast" node otherwise.
func (m *Model) convertCast(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	dtype, err := DTypeForONNX(int32(mustGetIntAttr(op, "to")))
	if err != nil {
		panic(err)
	}
	if constant, ok := inputs[0].(*ir.Constant); ok {
		converted, err := tensors.ConvertDType(constant.Value, dtype)
		if err != nil {
			panic(err)
		}
		env[op.Output] = builder.AddConstant(op.Output, converted)
		return
	}
	inShape := builder.shapeOf(inputs[0])
	builder.AddNode(op.Output, "Cast", inputs, map[string]any{"to": dtype},
		shapes.Make(dtype, inShape.Dimensions...))
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// convertUnary translates a shape-preserving element-wise operator: fold it
// when the input is a constant, defer it otherwise.
func (m *Model) convertUnary(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand,
	fn func(*tensors.Tensor) (*tensors.Tensor, error)) {
	if constant, ok := inputs[0].(*ir.Constant); ok {
		folded, err := fn(constant.Value)
		if err != nil {
			panic(err)
		}
		env[op.Output] = builder.AddConstant(op.Output, folded)
		return
	}
	builder.AddNode(op.Output, op.OpType, inputs, nil, builder.shapeOf(inputs[0]))
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// binaryFns maps the element-wise binary kinds to their folding functions.
var binaryFns = map[string]func(x, y float64) float64{
	"Add":  func(x, y float64) float64 { return x + y },
	"Sub":  func(x, y float64) float64 { return x - y },
	"Mul":  func(x, y float64) float64 { return x * y },
	"Div":  func(x, y float64) float64 { return x / y },
	"Mean": func(x, y float64) float64 { return (x + y) / 2 },
}

// convertBinary translates a broadcasting element-wise binary operator.
// Two constants fold eagerly (promoting mixed dtypes first); one learnable
// parameter turns the node into a kernel layer with the parameter as a bound
// slot; anything else becomes a deferred node.
func (m *Model) convertBinary(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	if len(inputs) != 2 {
		exceptions.Panicf("%s requires exactly 2 inputs, got %d", op, len(inputs))
	}
	lhs, rhs := inputs[0], inputs[1]
	outShape, err := broadcastShapes(builder.shapeOf(lhs), builder.shapeOf(rhs))
	if err != nil {
		panic(err)
	}

	lhsConst, lhsIsConst := lhs.(*ir.Constant)
	rhsConst, rhsIsConst := rhs.(*ir.Constant)
	if lhsIsConst && rhsIsConst {
		folded, err := foldBinary(op.OpType, lhsConst.Value, rhsConst.Value)
		if err != nil {
			panic(err)
		}
		env[op.Output] = builder.AddConstant(op.Output, folded)
		return
	}

	if kernel, ok := rhs.(*ir.ParamRef); ok {
		builder.KernelLayer(op.Output, op.OpType, lhs, kernel, m.Initializers[kernel.Name],
			map[string]any{"param_side": "rhs"}, outShape)
		env[op.Output] = &ir.GraphRef{Name: op.Output}
		return
	}
	if kernel, ok := lhs.(*ir.ParamRef); ok {
		builder.KernelLayer(op.Output, op.OpType, rhs, kernel, m.Initializers[kernel.Name],
			map[string]any{"param_side": "lhs"}, outShape)
		env[op.Output] = &ir.GraphRef{Name: op.Output}
		return
	}

	builder.AddNode(op.Output, op.OpType, inputs, nil, outShape)
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// foldBinary eagerly evaluates a binary kind over two constants, promoting
// both operands to the common dtype first.
func foldBinary(kind string, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	fn, found := binaryFns[kind]
	if !found {
		return nil, errors.Errorf("no folding function for operator kind %q", kind)
	}
	dtype := promoteDTypes(lhs.DType(), rhs.DType())
	var err error
	if lhs.DType() != dtype {
		if lhs, err = tensors.ConvertDType(lhs, dtype); err != nil {
			return nil, err
		}
	}
	if rhs.DType() != dtype {
		if rhs, err = tensors.ConvertDType(rhs, dtype); err != nil {
			return nil, err
		}
	}
	return tensors.Binary(lhs, rhs, fn)
}

// convertReduce translates an axis-reduction operator. The axes may be given
// as an attribute or, in newer opsets, as a constant second input.
func (m *Model) convertReduce(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand,
	fn func(x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error)) {
	config, err := reduceConfigFromOp(op)
	if err != nil {
		panic(err)
	}
	if config.axes == nil && len(inputs) > 1 && inputs[1] != nil {
		config.axes = operandToInts("axes", inputs[1])
	}

	if constant, ok := inputs[0].(*ir.Constant); ok {
		folded, err := fn(constant.Value, config.axes, config.keepDims)
		if err != nil {
			panic(err)
		}
		env[op.Output] = builder.AddConstant(op.Output, folded)
		return
	}

	inShape := builder.shapeOf(inputs[0])
	outShape, err := reducedShape(inShape, config.axes, config.keepDims)
	if err != nil {
		panic(err)
	}
	builder.AddNode(op.Output, op.OpType, inputs[:1],
		map[string]any{"axes": config.axes, "keepdims": config.keepDims}, outShape)
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// reducedShape infers the shape of an axis reduction: reduced axes drop, or
// become 1 when keepDims is set. Empty axes reduce everything.
func reducedShape(shape shapes.Shape, axes []int, keepDims bool) (shapes.Shape, error) {
	rank := shape.Rank()
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
			return shapes.Shape{}, errors.Errorf("reduction axis %d out of range for rank %d", axis, rank)
		}
		reduced[axis] = true
	}
	var outDims []int
	for axis, dim := range shape.Dimensions {
		if reduced[axis] {
			if keepDims {
				outDims = append(outDims, 1)
			}
			continue
		}
		outDims = append(outDims, dim)
	}
	return shapes.Make(shape.DType, outDims...), nil
}

// convertLRN translates a local response normalization operator.
func (m *Model) convertLRN(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	if err := checkOpAttributes(op, "size", "alpha", "beta", "bias"); err != nil {
		panic(err)
	}
	size := mustGetIntAttr(op, "size")
	alpha := getFloatAttrOr(op, "alpha", 0.0001)
	beta := getFloatAttrOr(op, "beta", 0.75)
	bias := getFloatAttrOr(op, "bias", 1.0)

	if constant, ok := inputs[0].(*ir.Constant); ok {
		folded, err := LRN(constant.Value, size, alpha, beta, bias)
		if err != nil {
			panic(err)
		}
		env[op.Output] = builder.AddConstant(op.Output, folded)
		return
	}
	builder.AddNode(op.Output, "LRN", inputs,
		map[string]any{"size": size, "alpha": alpha, "beta": beta, "bias": bias},
		builder.shapeOf(inputs[0]))
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// convertMatMul translates a MatMul into a deferred "DotGeneral" node
// carrying the contraction axes of NumPy matmul conventions.
func (m *Model) convertMatMul(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	if len(inputs) != 2 {
		exceptions.Panicf("%s requires exactly 2 inputs, got %d", op, len(inputs))
	}
	lhsShape, rhsShape := builder.shapeOf(inputs[0]), builder.shapeOf(inputs[1])
	axes := MatMulAxes(lhsShape, rhsShape)
	outShape, err := dotGeneralShape(lhsShape, rhsShape, axes)
	if err != nil {
		panic(err)
	}
	builder.AddNode(op.Output, "DotGeneral", inputs, map[string]any{"axes": axes}, outShape)
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// convertGather translates a Gather operator: the output shape replaces the
// gathered axis of the data with the indices dimensions.
func (m *Model) convertGather(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	if len(inputs) != 2 {
		exceptions.Panicf("%s requires exactly 2 inputs, got %d", op, len(inputs))
	}
	dataShape := builder.shapeOf(inputs[0])
	indicesShape := builder.shapeOf(inputs[1])
	axis := getIntAttrOr(op, "axis", 0)
	if axis < 0 {
		axis += dataShape.Rank()
	}
	if axis < 0 || axis >= dataShape.Rank() {
		exceptions.Panicf("%s axis out of range for rank %d", op, dataShape.Rank())
	}
	var outDims []int
	outDims = append(outDims, dataShape.Dimensions[:axis]...)
	outDims = append(outDims, indicesShape.Dimensions...)
	outDims = append(outDims, dataShape.Dimensions[axis+1:]...)
	builder.Gather(op.Output, inputs[0], inputs[1], axis, shapes.Make(dataShape.DType, outDims...))
	env[op.Output] = &ir.GraphRef{Name: op.Output}
}

// ParametersToStore binds the model's initializers to every still-unbound
// parameter slot declared in the graph. It errors if an initializer is
// missing or its shape doesn't match the declared slot.
func (m *Model) ParametersToStore(graph *ir.Graph, params ir.Params) error {
	for _, node := range graph.Nodes() {
		for name, param := range node.Params {
			if params.Get(node.Name, name) != nil {
				continue
			}
			value, found := m.Initializers[name]
			if !found {
				return errors.Errorf("node %q declares parameter %q but the model has no such initializer",
					node.Name, name)
			}
			if !value.Shape().Equal(param.Shape) {
				return errors.Errorf("initializer %q has shape %s, but node %q declares parameter shape %s",
					name, value.Shape(), node.Name, param.Shape)
			}
			params.Set(node.Name, name, value)
		}
	}
	return nil
}
