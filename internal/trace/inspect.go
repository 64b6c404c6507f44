package trace

import (
	"github.com/retroenv/uaetrace/internal/step"
)

// snapshotBytes is the number of bytes shown for memory referenced by an
// address register.
const snapshotBytes = 4

// MemoryReader returns a printable dump of memory content at an address.
type MemoryReader interface {
	GetMemAt(address uint32, count int) string
}

// RegisterChange is a data register that changed its value.
type RegisterChange struct {
	Register int
	Old      uint32
	New      uint32
}

// MemoryRef is memory pointed to by an address register operand.
type MemoryRef struct {
	Register int
	Address  uint32
	Content  string
}

// InspectLine describes one step of an inspected window relative to its
// predecessor.
type InspectLine struct {
	Index     int
	PC        uint32
	Depth     int // indentation level, never negative
	Registers []RegisterChange
	Memory    []MemoryRef
	Countdown int // steps left until the inspected pc, -1 if not marked
	Note      string
}

// Inspect describes the numBefore steps leading up to the first occurrence
// of pc as successive differences. Calls and returns mark the line with the
// number of steps left. mem can be nil.
func (ix *Index) Inspect(mem MemoryReader, pc uint32, numBefore int) ([]InspectLine, error) {
	end, err := ix.FirstIndexOfPC(pc)
	if err != nil {
		return nil, err
	}
	start := max(end-numBefore, 0)

	state := foldForward(depthState{}, ix.steps[start:end+1])
	depth := -state.minDepth

	lines := make([]InspectLine, 0, end-start+1)
	for i := start; i <= end; i++ {
		cur := &ix.steps[i]
		prev := cur
		if i > 0 {
			prev = &ix.steps[i-1]
		}

		line := InspectLine{
			Index:     i,
			PC:        cur.PC,
			Depth:     depth,
			Countdown: -1,
			Note:      cur.NoteText(),
		}
		for _, reg := range cur.ChangedDataRegisters(prev) {
			line.Registers = append(line.Registers, RegisterChange{
				Register: reg,
				Old:      prev.Data[reg],
				New:      cur.Data[reg],
			})
		}
		if mem != nil && cur.AccessesMemory() {
			line.Memory = memoryRefs(mem, cur)
		}
		if cur.DepthDelta() > 0 || prev.DepthDelta() < 0 {
			line.Countdown = end - i
		}

		lines = append(lines, line)
		depth += cur.DepthDelta()
	}
	return lines, nil
}

func memoryRefs(mem MemoryReader, rec *step.Record) []MemoryRef {
	regs := rec.AddressOperands()
	refs := make([]MemoryRef, 0, len(regs))
	for _, reg := range regs {
		address := rec.Address[reg]
		refs = append(refs, MemoryRef{
			Register: reg,
			Address:  address,
			Content:  mem.GetMemAt(address, snapshotBytes),
		})
	}
	return refs
}
