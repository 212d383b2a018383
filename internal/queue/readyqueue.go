// Package queue implements the ready queue: an ordered container of
// admissible, not-yet-running tasks. Ordering discipline is supplied by the
// active policy as a key function; ties are always broken by admission
// order, satisfying the stability rule.
//
// Internally this is a container/heap-backed priority queue keyed on
// (policy_key, admission_seq), in place of the
// original's ad-hoc ordered deque — same behavior, better cost model.
// "Popping the head" is the only operation that matters; whether the
// original program thought of this end as a deque's head or tail is a
// presentation choice this implementation does not need to preserve.
package queue

import (
	"container/heap"

	"github.com/coredump/schedsim/internal/task"
)

// KeyFunc computes a task's ordering key under the active policy. Smaller
// keys run first.
type KeyFunc func(*task.Task) int

// ReadyQueue is the ordered sequence of admitted, not-yet-running tasks:
// a task appears at most once; the running task is never in it.
type ReadyQueue struct {
	items   []*task.Task
	key     KeyFunc
	nextSeq int
}

// New creates an empty ready queue ordered by key.
func New(key KeyFunc) *ReadyQueue {
	return &ReadyQueue{key: key}
}

// SetKey switches the ordering discipline. It does not reorder existing
// items; callers that change discipline mid-run (schedsim never does) would
// need to call Reheapify afterwards.
func (q *ReadyQueue) SetKey(key KeyFunc) { q.key = key }

// --- container/heap.Interface ---

func (q *ReadyQueue) Len() int { return len(q.items) }

func (q *ReadyQueue) Less(i, j int) bool {
	ki, kj := q.key(q.items[i]), q.key(q.items[j])
	if ki != kj {
		return ki < kj
	}
	return q.items[i].AdmissionSeq < q.items[j].AdmissionSeq
}

func (q *ReadyQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *ReadyQueue) Push(x interface{}) { q.items = append(q.items, x.(*task.Task)) }

func (q *ReadyQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return item
}

// --- public API ---

// Insert admits a task under the active ordering discipline. QueueSeq is
// reassigned on every call, so a task requeued after preemption (rr) sorts
// behind everything already waiting, not back at its original position.
func (q *ReadyQueue) Insert(t *task.Task) {
	t.QueueSeq = q.nextSeq
	q.nextSeq++
	heap.Push(q, t)
}

// SelectHead returns the task that would run next, without removing it,
// or nil if the queue is empty.
func (q *ReadyQueue) SelectHead() *task.Task {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// PopHead removes and returns the task that would run next.
func (q *ReadyQueue) PopHead() *task.Task {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(q).(*task.Task)
}

// Count returns the number of ready tasks — the same value as the
// heap.Interface Len above, under a name kept for call-site clarity.
func (q *ReadyQueue) Count() int { return len(q.items) }

// Reheapify restores heap order after external mutation of ordering keys
// (the priod policy's aging step mutates every queued task's dynamic
// priority in place; this is the one case a full re-sort is required).
func (q *ReadyQueue) Reheapify() {
	heap.Init(q)
}

// Each calls fn for every queued task, in no particular order. Used by
// aging, which must touch every element.
func (q *ReadyQueue) Each(fn func(*task.Task)) {
	for _, t := range q.items {
		fn(t)
	}
}
