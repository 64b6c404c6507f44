package trace

import (
	"fmt"
)

// GhidraSearch returns an instruction pattern for Ghidra's instruction search
// in hex mode, covering the first occurrence of pc and the numAfter following
// steps. Bytes skipped by forward jumps become wildcards. A backward jump or
// a gap too large to bridge aborts the whole query.
func (ix *Index) GhidraSearch(pc uint32, numAfter int) ([]string, error) {
	start, err := ix.FirstIndexOfPC(pc)
	if err != nil {
		return nil, err
	}
	end := min(start+numAfter, len(ix.steps)-1)

	lines := make([]string, 0, end-start+1)
	lines = append(lines, ix.steps[start].OpcodeText())

	for i := start + 1; i <= end; i++ {
		pattern, err := ix.steps[i].SearchPattern(&ix.steps[i-1])
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		lines = append(lines, pattern)
	}
	return lines, nil
}
