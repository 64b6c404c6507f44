// Package callgraph converts the call hierarchy reconstructed from a trace
// into a caller to callee graph.
package callgraph

import (
	"fmt"

	"github.com/retroenv/uaetrace/internal/symbols"
	"github.com/retroenv/uaetrace/internal/trace"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

// RootName is the name of the node for code that was executing when the
// trace started.
const RootName = "entry"

// FunctionName returns the symbol name of a function entry address, or a
// generated sub_ name if the resolver does not know it.
func FunctionName(resolver symbols.Resolver, address uint32) string {
	if name := symbols.Label(resolver, address); name != "" {
		return name
	}
	return fmt.Sprintf("sub_%08x", address)
}

// Build constructs a lattice.Graph from the calls of a trace. Each called
// function becomes a node, each call an edge from the function containing
// the call instruction. Calls at the end of the trace without a known
// target are skipped.
func Build(calls []trace.Call, resolver symbols.Resolver) *lattice.Graph {
	g := &lattice.Graph{Nodes: []string{RootName}}
	for _, call := range calls {
		if call.Target == 0 {
			continue
		}

		caller := RootName
		if call.Parent >= 0 {
			caller = FunctionName(resolver, calls[call.Parent].Target)
		}
		callee := FunctionName(resolver, call.Target)

		g.Nodes = append(g.Nodes, caller, callee)
		g.Edges = append(g.Edges, lattice.Edge{
			Caller: caller,
			Callee: callee,
		})
	}
	g.Dedup()
	return g
}

// DOT renders the call graph of a trace in Graphviz DOT format.
func DOT(calls []trace.Call, resolver symbols.Resolver, name string) string {
	return render.DOT(Build(calls, resolver), name)
}
