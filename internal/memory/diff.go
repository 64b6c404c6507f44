package memory

import (
	"github.com/retroenv/retrogolib/set"
)

// DiffOnly compares the snapshot with other at the addresses captured in
// both snapshots. If candidates is nil, all captured addresses are compared.
//
// With sameGroup unset, the differing addresses are returned, restricted to
// candidates if given. With sameGroup set, the snapshots are expected to be
// equal and the candidates that do not differ are returned.
func (s *Snapshot) DiffOnly(other *Snapshot, candidates set.Set[uint32], sameGroup bool) set.Set[uint32] {
	var differing set.Set[uint32]
	if candidates != nil {
		differing = s.diffCandidates(other, candidates)
	} else {
		differing = s.diffAll(other)
	}

	if !sameGroup {
		return differing
	}

	stable := set.New[uint32]()
	for addr := range candidates {
		if !differing.Contains(addr) {
			stable.Add(addr)
		}
	}
	return stable
}

func (s *Snapshot) diffCandidates(other *Snapshot, candidates set.Set[uint32]) set.Set[uint32] {
	differing := set.New[uint32]()
	for addr := range candidates {
		a, ok := s.ByteAt(addr)
		if !ok {
			continue
		}
		b, ok := other.ByteAt(addr)
		if ok && a != b {
			differing.Add(addr)
		}
	}
	return differing
}

func (s *Snapshot) diffAll(other *Snapshot) set.Set[uint32] {
	differing := set.New[uint32]()

	i, k := 0, 0
	for i < len(s.regions) && k < len(other.regions) {
		a, b := s.regions[i], other.regions[k]

		lo := max(uint64(a.From), uint64(b.From))
		hi := min(a.End(), b.End())
		for addr := lo; addr < hi; addr++ {
			if a.Data[addr-uint64(a.From)] != b.Data[addr-uint64(b.From)] {
				differing.Add(uint32(addr))
			}
		}

		// advance the region that ends first
		if a.End() <= b.End() {
			i++
		} else {
			k++
		}
	}
	return differing
}

// GroupDiff returns the addresses whose content is stable within every group
// of snapshots but differs between snapshots of different groups.
//
// The first pass compares all snapshot pairs of different groups, each pair
// narrowing the set of distinguishing addresses. The second pass removes
// addresses that vary inside of a group.
func GroupDiff(groups [][]*Snapshot) set.Set[uint32] {
	var candidates set.Set[uint32]
	for i, group := range groups {
		for _, otherGroup := range groups[i+1:] {
			for _, a := range group {
				for _, b := range otherGroup {
					candidates = a.DiffOnly(b, candidates, false)
				}
			}
		}
	}
	if candidates == nil {
		return set.New[uint32]()
	}

	for _, group := range groups {
		for _, other := range group[min(1, len(group)):] {
			candidates = group[0].DiffOnly(other, candidates, true)
		}
	}
	return candidates
}
