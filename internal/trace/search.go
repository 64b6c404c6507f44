package trace

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/retroenv/uaetrace/internal/step"
)

// maxWalkSteps bounds the forward walk started at every entry point.
const maxWalkSteps = 10000

// Findings maps a pc to the description of the register changes found there.
type Findings map[uint32]string

// PCs returns the pcs of the findings in ascending order.
func (f Findings) PCs() []uint32 {
	pcs := make([]uint32, 0, len(f))
	for pc := range f {
		pcs = append(pcs, pc)
	}
	slices.Sort(pcs)
	return pcs
}

// SearchRegisterChange searches for data registers changing to value,
// compared using the given value size in bytes. Starting at every unique
// entry point, the trace is walked forward until the walk returns from the
// function it started in or maxWalkSteps steps were taken.
//
// If previous is not nil, only pcs found in both previous and this trace are
// returned, with the previous description prepended. This allows narrowing
// results across independently captured traces.
func (ix *Index) SearchRegisterChange(ctx context.Context, value uint32, size int, previous Findings) (Findings, error) {
	mask := step.SizeMask(size)

	seeds := make([]int, 0, len(ix.entries))
	for _, pos := range ix.entries {
		seeds = append(seeds, pos)
	}
	slices.Sort(seeds)

	found := make(Findings)
	for _, start := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("searching register change: %w", err)
		}
		ix.walk(found, start, value, mask)
	}

	if previous == nil {
		return found, nil
	}

	result := make(Findings)
	for pc, earlier := range previous {
		if desc, ok := found[pc]; ok {
			result[pc] = earlier + desc
		}
	}
	return result, nil
}

// walk runs the bounded forward walk from the trace position start and
// stores the register changes it finds.
func (ix *Index) walk(found Findings, start int, value, mask uint32) {
	prev := &ix.steps[start]
	state := depthState{}

	last := min(start+maxWalkSteps, len(ix.steps)-1)
	for pos := start + 1; pos <= last; pos++ {
		cur := &ix.steps[pos]

		if changed := cur.RegisterChangedTo(prev, value, mask); changed != 0 {
			found[cur.PC] = describeChange(pos, prev, cur, changed)
		}

		state = state.forward(cur)
		if state.depth < 0 {
			return
		}
		prev = cur
	}
}

func describeChange(pos int, prev, cur *step.Record, changed uint8) string {
	var sb strings.Builder
	for reg := range cur.Data {
		if changed&(1<<reg) == 0 {
			continue
		}
		fmt.Fprintf(&sb, ", @%d D%d: %x->%x", pos, reg, prev.Data[reg], cur.Data[reg])
	}
	return sb.String()
}
