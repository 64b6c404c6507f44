package trace

import (
	"slices"
)

// Frame is one level of a call hierarchy.
type Frame struct {
	Index int // trace position of the first step of the frame shown
	PC    uint32
	Depth int
	Note  string
}

// Stack returns the call hierarchy leading to the first occurrence of pc,
// outermost function first. Each frame is the first step executed after the
// call that entered it, the last frame is pc itself.
func (ix *Index) Stack(pc uint32) ([]Frame, error) {
	idx, err := ix.FirstIndexOfPC(pc)
	if err != nil {
		return nil, err
	}

	frames := []Frame{ix.frame(idx)}
	state := depthState{}
	for i := idx - 1; i >= 0; i-- {
		previousMin := state.minDepth
		state = state.backward(&ix.steps[i])
		if state.minDepth < previousMin && i+1 != idx {
			frames = append(frames, ix.frame(i+1))
		}
	}

	slices.Reverse(frames)
	for i := range frames {
		frames[i].Depth = i
	}
	return frames, nil
}

func (ix *Index) frame(pos int) Frame {
	rec := &ix.steps[pos]
	return Frame{
		Index: pos,
		PC:    rec.PC,
		Note:  rec.NoteText(),
	}
}
