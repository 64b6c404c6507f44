package step

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNonMonotonic is returned when an instruction is located before the
	// address following its predecessor.
	ErrNonMonotonic = errors.New("non-monotonic step")
	// ErrExcessiveGap is returned when the gap between two instructions is too
	// large to be bridged by wildcards.
	ErrExcessiveGap = errors.New("excessive gap between steps")
)

// MaxSearchGap is the exclusive upper bound of skipped bytes that are
// replaced by wildcards in a search pattern.
const MaxSearchGap = 80

const wildcardToken = "[........]"

// SizeMask returns the value mask for a value size in bytes, sizes other
// than 1 and 2 select the full 32 bit register.
func SizeMask(size int) uint32 {
	switch size {
	case 1:
		return 0x000000ff
	case 2:
		return 0x0000ffff
	default:
		return 0xffffffff
	}
}

// DepthDelta returns the call depth change caused by the instruction:
// +1 for subroutine calls, -1 for returns.
func (r *Record) DepthDelta() int {
	switch string(r.Note[:3]) {
	case "BSR", "JSR":
		return 1
	case "RTS", "RTR":
		return -1
	default:
		return 0
	}
}

// RegisterChangedTo returns a bit mask of the data registers whose masked
// value changed to value between prev and this record.
func (r *Record) RegisterChangedTo(prev *Record, value, mask uint32) uint8 {
	var changed uint8
	for i := range r.Data {
		if r.Data[i]&mask == value && prev.Data[i]&mask != value {
			changed |= 1 << i
		}
	}
	return changed
}

// ChangedDataRegisters returns the indexes of the data registers that differ
// between prev and this record.
func (r *Record) ChangedDataRegisters(prev *Record) []int {
	var changed []int
	for i := range r.Data {
		if r.Data[i] != prev.Data[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// AccessesMemory reports whether the instruction is of a kind whose address
// register operands are worth resolving against a memory snapshot.
func (r *Record) AccessesMemory() bool {
	switch r.Note[0] {
	case 'A', 'D', 'O':
		return true
	}
	switch string(r.Note[:2]) {
	case "LS", "RO":
		return true
	}
	switch string(r.Note[:3]) {
	case "CMP", "EOR", "MUL", "NEG", "NOT", "SBC", "SUB":
		return true
	}
	return false
}

// AddressOperands returns the indexes of the address registers referenced
// in the operands of the instruction, in order of first appearance.
func (r *Record) AddressOperands() []int {
	var seen uint8
	var regs []int
	for i := 2; i+1 < len(r.Note); i++ {
		if r.Note[i] != 'A' || r.Note[i+1] < '0' || r.Note[i+1] > '7' {
			continue
		}
		idx := int(r.Note[i+1] - '0')
		if seen&(1<<idx) != 0 {
			continue
		}
		seen |= 1 << idx
		regs = append(regs, idx)
	}
	return regs
}

// SearchPattern returns the instruction search text for this record given
// its predecessor. Bytes skipped between the address following prev and this
// instruction are emitted as single byte wildcards before the instruction
// words.
func (r *Record) SearchPattern(prev *Record) (string, error) {
	gap := int64(r.PC) - int64(prev.NextPC)
	switch {
	case gap == 0:
		return r.OpcodeText(), nil
	case gap < 0:
		return "", fmt.Errorf("%w: %08x follows %08x", ErrNonMonotonic, r.PC, prev.NextPC)
	case gap >= MaxSearchGap:
		return "", fmt.Errorf("%w: %d bytes before %08x", ErrExcessiveGap, gap, r.PC)
	}

	tokens := make([]string, 0, gap+1)
	for range gap {
		tokens = append(tokens, wildcardToken)
	}
	if text := r.OpcodeText(); text != "" {
		tokens = append(tokens, text)
	}
	return strings.Join(tokens, " "), nil
}
