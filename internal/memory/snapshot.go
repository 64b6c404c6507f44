// Package memory holds captured memory snapshots of the emulated machine and
// answers lookup, asset correlation and diff queries on them.
package memory

import (
	"cmp"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	// ErrNoSnapshot is returned when a dump directory contains no memory snapshot.
	ErrNoSnapshot = errors.New("no memory snapshot found")
	// ErrOverlappingRegions is returned when two captured regions share addresses.
	ErrOverlappingRegions = errors.New("overlapping memory regions")
)

// minDumpBytes is the minimum number of bytes returned by GetMemAt.
const minDumpBytes = 4

// Region is a contiguous range of captured memory starting at From.
type Region struct {
	From uint32
	Data []byte
}

// End returns the exclusive end address of the region.
func (r Region) End() uint64 {
	return uint64(r.From) + uint64(len(r.Data))
}

func (r Region) String() string {
	return fmt.Sprintf("%08x-%08x (%d bytes)", r.From, r.End(), len(r.Data))
}

// contains reports whether the region contains the given address.
func (r Region) contains(addr uint32) bool {
	return r.From <= addr && uint64(addr) < r.End()
}

// Snapshot is a read only set of disjoint memory regions sorted by address.
type Snapshot struct {
	regions []Region
}

// New creates a snapshot from the given regions. Empty regions are ignored.
func New(regions []Region) (*Snapshot, error) {
	sorted := make([]Region, 0, len(regions))
	for _, r := range regions {
		if len(r.Data) > 0 {
			sorted = append(sorted, r)
		}
	}
	slices.SortFunc(sorted, func(a, b Region) int {
		return cmp.Compare(a.From, b.From)
	})

	for i := 1; i < len(sorted); i++ {
		if uint64(sorted[i].From) < sorted[i-1].End() {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingRegions, sorted[i-1], sorted[i])
		}
	}
	return &Snapshot{regions: sorted}, nil
}

// Empty returns a snapshot without any captured memory.
func Empty() *Snapshot {
	return &Snapshot{}
}

// Regions returns the regions of the snapshot in ascending address order.
// The returned slice must not be modified.
func (s *Snapshot) Regions() []Region {
	return s.regions
}

// Size returns the total number of captured bytes.
func (s *Snapshot) Size() int {
	var size int
	for _, r := range s.regions {
		size += len(r.Data)
	}
	return size
}

// findRegion finds the region that contains the given address.
func (s *Snapshot) findRegion(addr uint32) (Region, bool) {
	// Binary search for an upper-bound region, then check
	// if the previous region contains addr.
	k := sort.Search(len(s.regions), func(k int) bool {
		return addr < s.regions[k].From
	})
	k--
	if k >= 0 && s.regions[k].contains(addr) {
		return s.regions[k], true
	}
	return Region{}, false
}

// ByteAt returns the captured byte at the given address.
func (s *Snapshot) ByteAt(addr uint32) (byte, bool) {
	r, ok := s.findRegion(addr)
	if !ok {
		return 0, false
	}
	return r.Data[addr-r.From], true
}

// Bytes returns up to n bytes starting at addr, stopping at the end of the
// region containing addr. Returns false if addr is not captured.
func (s *Snapshot) Bytes(addr uint32, n int) ([]byte, bool) {
	r, ok := s.findRegion(addr)
	if !ok {
		return nil, false
	}
	offset := int(addr - r.From)
	end := min(offset+max(n, 0), len(r.Data))
	return r.Data[offset:end], true
}

// GetMemAt returns a printable hex dump of at least 4 bytes of memory at
// addr, or an unknown marker if the address was not captured.
func (s *Snapshot) GetMemAt(addr uint32, count int) string {
	data, ok := s.Bytes(addr, max(count, minDumpBytes))
	if !ok {
		return fmt.Sprintf("%08X: ??", addr)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%08X= ", addr)
	sb.WriteString(hex.EncodeToString(data))
	return sb.String()
}
