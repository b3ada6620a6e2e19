package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/onnx-ir/ir"
	"github.com/gomlx/onnx-ir/tensors"
	"github.com/pkg/errors"
)

// axisRange is a resolved per-axis slice: count elements starting at begin,
// stepping by step. This normalized form is what the graph node carries and
// what tensors.Slice consumes.
type axisRange struct {
	begin, step, count int
}

// resolveSliceRanges normalizes a Slice operator's starts/ends/axes/steps
// against the input shape, applying the interchange format's negative-index
// and clamping rules:
//
//   - A negative axis counts from the end.
//   - A negative start is shifted by the axis dimension, then clamped to
//     [0, dim] for positive steps or [0, dim-1] for negative ones.
//   - For positive steps a negative stop is shifted by the dimension and the
//     result clamped to [0, dim]. For negative steps a non-negative stop is
//     clamped to dim-1, while a negative stop is kept as an exclusive
//     bound below index 0 -- this is what lets stop=-1 reach index 0 and
//     express a full reversal.
//
// Axes not named keep their full range. A zero step fails with
// ErrInvalidRange; ranges that select nothing resolve to count 0.
func resolveSliceRanges(shape shapes.Shape, starts, ends, axes, steps []int) ([]axisRange, error) {
	rank := shape.Rank()
	ranges := make([]axisRange, rank)
	for axis, dim := range shape.Dimensions {
		ranges[axis] = axisRange{begin: 0, step: 1, count: dim}
	}
	if axes == nil {
		axes = make([]int, len(starts))
		for i := range axes {
			axes[i] = i
		}
	}
	if len(ends) != len(starts) || len(axes) != len(starts) || (steps != nil && len(steps) != len(starts)) {
		return nil, errors.Errorf("slice starts/ends/axes/steps must have matching lengths, got %d/%d/%d/%d",
			len(starts), len(ends), len(axes), len(steps))
	}

	for i, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("slice axis %d out of range for rank %d", axes[i], rank)
		}
		dim := shape.Dimensions[axis]
		step := 1
		if steps != nil {
			step = steps[i]
		}
		if step == 0 {
			return nil, errors.Wrapf(ErrInvalidRange, "zero stride for axis %d", axis)
		}

		start := starts[i]
		if start < 0 {
			start += dim
		}
		stop := ends[i]
		var count int
		if step > 0 {
			start = min(max(start, 0), dim)
			if stop < 0 {
				stop += dim
			}
			stop = min(max(stop, 0), dim)
			count = (stop - start + step - 1) / step
		} else {
			start = min(max(start, 0), dim-1)
			if stop >= 0 {
				stop = min(stop, dim-1)
			} else {
				// Exclusive bound below the first index: -1 reaches index 0,
				// anything lower selects nothing extra.
				stop = -1
			}
			count = (stop - start + step + 1) / step
		}
		ranges[axis] = axisRange{begin: start, step: step, count: max(count, 0)}
	}
	return ranges, nil
}

// operandToInts materializes an operand as a list of integers. It panics if
// the operand is not a constant integer tensor: the slice specification must
// be known at translation time.
func operandToInts(what string, operand ir.Operand) []int {
	constant, ok := operand.(*ir.Constant)
	if !ok {
		exceptions.Panicf("slice %s must be a constant tensor, got %s", what, operand)
	}
	return constant.Value.ToInts()
}

// convertSlice translates a Slice operator. A slice of a constant folds
// eagerly; a slice of a learnable parameter becomes a parameterized node
// whose parameter keeps the pre-slice shape, so the stored value can be
// sliced (or re-trained) by the backend; anything else becomes a deferred
// node carrying the resolved per-axis ranges.
func (m *Model) convertSlice(builder *Builder, op *Operator, inputs []ir.Operand, env map[string]ir.Operand) {
	if len(inputs) < 3 {
		exceptions.Panicf("%s requires at least data, starts and ends inputs", op)
	}
	data := inputs[0]
	starts := operandToInts("starts", inputs[1])
	ends := operandToInts("ends", inputs[2])
	var axes, steps []int
	if len(inputs) > 3 && inputs[3] != nil {
		axes = operandToInts("axes", inputs[3])
	}
	if len(inputs) > 4 && inputs[4] != nil {
		steps = operandToInts("steps", inputs[4])
	}

	dataShape := builder.shapeOf(data)
	ranges, err := resolveSliceRanges(dataShape, starts, ends, axes, steps)
	if err != nil {
		panic(errors.WithMessagef(err, "while resolving ranges of %s", op))
	}
	begins := sliceMap(ranges, func(r axisRange) int { return r.begin })
	stepsResolved := sliceMap(ranges, func(r axisRange) int { return r.step })
	counts := sliceMap(ranges, func(r axisRange) int { return r.count })

	switch data := data.(type) {
	case *ir.Constant:
		sliced, err := tensors.Slice(data.Value, begins, stepsResolved, counts)
		if err != nil {
			panic(errors.WithMessagef(err, "while folding %s", op))
		}
		env[op.Output] = builder.AddConstant(op.Output, sliced)

	case *ir.ParamRef:
		// The parameter keeps the pre-slice shape: the backend binds the
		// full stored tensor and slices it at run time.
		node := builder.AddNode(op.Output, "Slice", []ir.Operand{data}, map[string]any{
			"begins": begins,
			"steps":  stepsResolved,
			"counts": counts,
		}, shapes.Make(dataShape.DType, counts...))
		node.AddParam(data.Name, dataShape)
		if value, found := m.Initializers[data.Name]; found {
			builder.params.Set(op.Output, data.Name, value)
		}
		env[op.Output] = &ir.GraphRef{Name: op.Output}

	default:
		builder.AddNode(op.Output, "Slice", []ir.Operand{data}, map[string]any{
			"begins": begins,
			"steps":  stepsResolved,
			"counts": counts,
		}, shapes.Make(dataShape.DType, counts...))
		env[op.Output] = &ir.GraphRef{Name: op.Output}
	}
}
