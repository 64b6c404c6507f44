package trace

import (
	"fmt"
	"slices"

	"github.com/retroenv/retrogolib/set"
)

const (
	// memlistGap is the largest distance between two addresses that are
	// still captured by the same memory range.
	memlistGap = 128
	// memlistAlign is the alignment of captured memory ranges.
	memlistAlign = 128
	// memlistRowSize is the number of bytes the emulator debugger prints per row.
	memlistRowSize = 16
)

// MemRange is a range of addresses seen in address registers.
type MemRange struct {
	First uint32 // lowest address
	Last  uint32 // highest address
}

// Aligned returns the range rounded outward to the capture alignment,
// end is exclusive.
func (r MemRange) Aligned() (start uint32, end uint64) {
	start = r.First &^ (memlistAlign - 1)
	end = uint64(r.Last|(memlistAlign-1)) + 1
	return start, end
}

// Command returns the emulator debugger command that dumps the range.
func (r MemRange) Command() string {
	start, end := r.Aligned()
	rows := (end - uint64(start)) / memlistRowSize
	return fmt.Sprintf("m %08x %d", start, rows)
}

// MemlistCommands collects the address register values of the numBefore
// steps leading to the first occurrence of pc and coalesces them into
// memory ranges to capture.
func (ix *Index) MemlistCommands(pc uint32, numBefore int) ([]MemRange, error) {
	end, err := ix.FirstIndexOfPC(pc)
	if err != nil {
		return nil, err
	}
	start := max(end-numBefore, 0)

	seen := set.New[uint32]()
	for i := start; i <= end; i++ {
		for _, address := range ix.steps[i].Address {
			seen.Add(address)
		}
	}

	addresses := make([]uint32, 0, len(seen))
	for address := range seen {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	return CoalesceAddresses(addresses, memlistGap), nil
}

// CoalesceAddresses groups sorted addresses into ranges, a new range is
// started whenever the distance to the previous address exceeds gap.
func CoalesceAddresses(addresses []uint32, gap uint32) []MemRange {
	if len(addresses) == 0 {
		return nil
	}

	var ranges []MemRange
	current := MemRange{First: addresses[0], Last: addresses[0]}
	for _, address := range addresses[1:] {
		if address-current.Last > gap {
			ranges = append(ranges, current)
			current = MemRange{First: address}
		}
		current.Last = address
	}
	return append(ranges, current)
}
