package trace

// Call is a subroutine call found in the trace.
type Call struct {
	Index  int    // trace position of the call instruction
	PC     uint32 // pc of the call instruction
	Target uint32 // first pc executed in the callee, 0 if the trace ends
	Depth  int    // nesting level, 0 for the outermost level of the trace
	Parent int    // index into the calls of the enclosing call, -1 for none
	Return int    // trace position of the matching return, -1 for none
	Note   string
}

// Calls reconstructs the complete nested call hierarchy in one forward pass,
// in execution order. Returns leaving functions entered before the trace
// started lower the nesting level of all following calls.
func (ix *Index) Calls() []Call {
	state := foldForward(depthState{}, ix.steps)
	depth := -state.minDepth

	var calls []Call
	var open []int // indexes into calls of the calls not returned yet

	for i := range ix.steps {
		rec := &ix.steps[i]
		delta := rec.DepthDelta()

		switch {
		case delta > 0:
			call := Call{
				Index:  i,
				PC:     rec.PC,
				Depth:  depth,
				Parent: -1,
				Return: -1,
				Note:   rec.NoteText(),
			}
			if i+1 < len(ix.steps) {
				call.Target = ix.steps[i+1].PC
			}
			if len(open) > 0 {
				call.Parent = open[len(open)-1]
			}
			open = append(open, len(calls))
			calls = append(calls, call)

		case delta < 0 && len(open) > 0:
			top := open[len(open)-1]
			open = open[:len(open)-1]
			calls[top].Return = i
		}

		depth += delta
	}
	return calls
}
