package app

import "github.com/lovenda/seatplan/internal/core"

// history is a linear undo/redo stack of plan snapshots. Pushing after
// an undo discards the redo tail, the usual editor behavior.
type history struct {
	stack []core.PlanSnapshot
	ptr   int
}

func newHistory(initial core.PlanSnapshot) *history {
	return &history{stack: []core.PlanSnapshot{initial}}
}

func (h *history) push(snap core.PlanSnapshot) {
	h.stack = append(h.stack[:h.ptr+1], snap)
	h.ptr = len(h.stack) - 1
}

func (h *history) undo() (core.PlanSnapshot, bool) {
	if h.ptr == 0 {
		return core.PlanSnapshot{}, false
	}
	h.ptr--
	return h.stack[h.ptr], true
}

func (h *history) redo() (core.PlanSnapshot, bool) {
	if h.ptr >= len(h.stack)-1 {
		return core.PlanSnapshot{}, false
	}
	h.ptr++
	return h.stack[h.ptr], true
}
