package ir

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gomlx/gomlx/types"
)

// String implements fmt.Stringer, and pretty prints the graph.
func (g *Graph) String() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("Computation graph %q:\n", g.name)
	w("\t# nodes:\t%d\n", g.NumNodes())

	kindsSet := types.MakeSet[string]()
	numParams := 0
	for _, node := range g.Nodes() {
		kindsSet.Insert(node.Kind)
		numParams += len(node.Params)
	}
	kinds := slices.Collect(maps.Keys(kindsSet))
	slices.Sort(kinds)
	w("\tOp kinds:\t%v\n", kinds)
	if numParams > 0 {
		w("\t# parameter slots:\t%d\n", numParams)
	}

	for ii, node := range g.Nodes() {
		w("\t#%d\t%s\n", ii, node)
	}
	return buf.String()
}

// String implements fmt.Stringer for one node.
func (n *Node) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s(name=%q", n.Kind, n.Name)
	if len(n.Inputs) > 0 {
		inputs := make([]string, len(n.Inputs))
		for ii, input := range n.Inputs {
			inputs[ii] = input.String()
		}
		fmt.Fprintf(&buf, ", inputs=[%s]", strings.Join(inputs, ", "))
	}
	if len(n.Params) > 0 {
		names := slices.Collect(maps.Keys(n.Params))
		slices.Sort(names)
		fmt.Fprintf(&buf, ", params=%q", names)
	}
	fmt.Fprintf(&buf, ") -> %s", n.Output)
	return buf.String()
}
