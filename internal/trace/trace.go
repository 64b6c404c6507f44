// Package trace indexes a complete instruction trace and answers register
// change, memory, stack and call hierarchy queries on it.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/retroenv/uaetrace/internal/step"
)

// ErrNotFound is returned when a queried pc does not occur in the trace.
var ErrNotFound = errors.New("pc not found in trace")

// ctxCheckInterval is the number of records parsed between context checks.
const ctxCheckInterval = 4096

// Index is an immutable trace together with its unique entry point index.
type Index struct {
	steps []step.Record

	// entries maps pcs that occur exactly once in the trace and do not
	// continue the straight line code of a previous entry to their position.
	entries map[uint32]int
}

// Build parses the complete trace text and indexes it.
func Build(ctx context.Context, r io.Reader) (*Index, error) {
	rd := step.NewReader(r)
	var steps []step.Record

	for {
		if len(steps)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("parsing trace: %w", err)
			}
		}

		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing record %d: %w", len(steps), err)
		}
		steps = append(steps, rec)
	}

	return New(steps), nil
}

// New indexes the given steps, which must be in execution order.
// The index takes ownership of the slice.
func New(steps []step.Record) *Index {
	return &Index{
		steps:   steps,
		entries: uniqueEntries(steps),
	}
}

type occurrence struct {
	count int
	first int
}

// uniqueEntries returns the pcs that occur exactly once in the trace. Walking
// them in ascending order, a pc is dropped when it is the address following
// the previous unique pc, as it only continues an already seeded block.
func uniqueEntries(steps []step.Record) map[uint32]int {
	seen := make(map[uint32]*occurrence)
	for i := range steps {
		pc := steps[i].PC
		occ, ok := seen[pc]
		if !ok {
			seen[pc] = &occurrence{count: 1, first: i}
			continue
		}
		occ.count++
	}

	singles := make([]uint32, 0, len(seen))
	for pc, occ := range seen {
		if occ.count == 1 {
			singles = append(singles, pc)
		}
	}
	slices.Sort(singles)

	entries := make(map[uint32]int)
	for i, pc := range singles {
		if i > 0 {
			previous := steps[seen[singles[i-1]].first]
			if pc == previous.NextPC {
				continue
			}
		}
		entries[pc] = seen[pc].first
	}
	return entries
}

// Len returns the number of steps in the trace.
func (ix *Index) Len() int {
	return len(ix.steps)
}

// Step returns the step at the given trace position.
func (ix *Index) Step(pos int) *step.Record {
	return &ix.steps[pos]
}

// Entries returns the unique entry point index, mapping pc to trace position.
// The returned map must not be modified.
func (ix *Index) Entries() map[uint32]int {
	return ix.entries
}

// StartingPCs returns all unique entry point pcs in ascending order.
func (ix *Index) StartingPCs() []uint32 {
	pcs := make([]uint32, 0, len(ix.entries))
	for pc := range ix.entries {
		pcs = append(pcs, pc)
	}
	slices.Sort(pcs)
	return pcs
}

// FirstIndexOfPC returns the first trace position of the pc.
func (ix *Index) FirstIndexOfPC(pc uint32) (int, error) {
	for i := range ix.steps {
		if ix.steps[i].PC == pc {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %08x", ErrNotFound, pc)
}

// depthState accumulates the call depth over a sequence of steps.
type depthState struct {
	depth    int
	minDepth int
}

// forward applies the depth change of a step executed after the current state.
func (s depthState) forward(rec *step.Record) depthState {
	s.depth += rec.DepthDelta()
	s.minDepth = min(s.minDepth, s.depth)
	return s
}

// backward undoes the depth change of a step, walking the trace backwards.
func (s depthState) backward(rec *step.Record) depthState {
	s.depth -= rec.DepthDelta()
	s.minDepth = min(s.minDepth, s.depth)
	return s
}

// foldForward folds the depth changes of the steps into the state.
func foldForward(state depthState, steps []step.Record) depthState {
	for i := range steps {
		state = state.forward(&steps[i])
	}
	return state
}
