// Package scheduler implements the Scheduler component: the authoritative
// per-tick algorithm shared by all seven policies. Everything
// policy-specific (ordering, preemption, dispatch, aging) is supplied by an
// internal/policy.Policy value; the Scheduler itself only sequences the
// steps and mutates the ready queue, running slot and completed ledger.
package scheduler

import (
	"sort"

	"github.com/coredump/schedsim/internal/policy"
	"github.com/coredump/schedsim/internal/queue"
	"github.com/coredump/schedsim/internal/task"
)

// Scheduler holds the three pieces of state that make up a run: the ready
// queue, the running slot, and the completed ledger, plus the bookkeeping
// the active policy needs between ticks.
type Scheduler struct {
	pol policy.Policy
	rq  *queue.ReadyQueue

	running     *task.Task
	quantumLeft int

	// admittedThisTick gates srtf/priop/priod preemption checks: an
	// admission (or, for priod, a completion) happened this tick, so the
	// ready queue's ordering is worth comparing against running again.
	admittedThisTick bool

	tasksDoneReceived bool
	completed         []task.CompletedRecord
	trace             []string
}

// New builds a Scheduler running under pol, with an empty ready queue
// ordered by pol's key.
func New(pol policy.Policy) *Scheduler {
	return &Scheduler{pol: pol, rq: queue.New(pol.Key)}
}

// MarkTasksDone records that the Emitter has signalled TASKS_DONE. It may
// be called at any point relative to Tick; the Scheduler only consults it
// at the termination check.
func (s *Scheduler) MarkTasksDone() { s.tasksDoneReceived = true }

// Finished reports the termination condition: TASKS_DONE has
// been observed, the ready queue is empty, and nothing is running.
func (s *Scheduler) Finished() bool {
	return s.tasksDoneReceived && s.rq.Count() == 0 && s.running == nil
}

// ReadyCount, Running and ReadyIDs expose state for instrumentation
// (internal/live, internal/metrics) without handing out the ready queue
// itself.
func (s *Scheduler) ReadyCount() int     { return s.rq.Count() }
func (s *Scheduler) Running() *task.Task { return s.running }

// ReadyIDs lists the waiting tasks' ids, in no particular order — a
// snapshot for a live feed, not something the tick algorithm relies on.
func (s *Scheduler) ReadyIDs() []string {
	ids := make([]string, 0, s.rq.Count())
	s.rq.Each(func(t *task.Task) { ids = append(ids, t.ID) })
	return ids
}

// Tick runs one full pass of the tick algorithm for tick t: admit any
// tasks that arrived this tick, dispatch/preempt/complete until the running
// slot and ready queue reach a stable configuration, execute one unit of
// work, then age (policies other than priod no-op here).
func (s *Scheduler) Tick(t int, admitted []*task.Task) {
	s.admittedThisTick = false
	for _, tk := range admitted {
		s.rq.Insert(tk)
		s.admittedThisTick = true
	}

	justDispatched := s.tryDispatch()

	for {
		// A task whose duration_remaining has already hit zero is due for
		// the completion check below, not preemption: quantum expiry and
		// exhaustion can land on the same tick (e.g. a duration that is an
		// exact multiple of rr's quantum), and completion must win that
		// race or a finished task would be requeued instead of finalized.
		if s.running != nil && !justDispatched && s.pol.Preemptive && s.running.Remaining() > 0 && s.applyPreemption() {
			justDispatched = true
			continue
		}
		if s.running != nil && s.running.Done() {
			s.finalizeCompletion(t)
			if s.pol.ReevaluateOnCompletion {
				s.admittedThisTick = true
			}
			justDispatched = s.tryDispatch()
			continue
		}
		break
	}

	s.executeOneUnit(t)
	s.pol.OnAging(s.rq)
	s.admittedThisTick = false
}

// tryDispatch moves the ready queue's head into the running slot if the
// slot is idle and the queue is non-empty. Reports whether it did.
func (s *Scheduler) tryDispatch() bool {
	if s.running != nil || s.rq.Count() == 0 {
		return false
	}
	s.running = s.rq.PopHead()
	s.quantumLeft = s.pol.OnDispatch(s.running)
	return true
}

// applyPreemption checks the active policy's preemption rule against the
// current running task and, if it fires, performs the swap. A task
// dispatched earlier in this same Tick is never a
// candidate here: Tick only calls applyPreemption when justDispatched is
// false, so a task can't be preempted in the very tick it started running.
func (s *Scheduler) applyPreemption() bool {
	if s.pol.Quantum > 0 {
		// rr: time-triggered by quantum expiry, not a key comparison.
		if s.quantumLeft > 0 || s.rq.Count() == 0 {
			return false
		}
		s.rq.Insert(s.running)
		s.running = nil
		s.tryDispatch()
		return true
	}

	head := s.rq.SelectHead()
	if head == nil {
		return false
	}
	ctx := policy.PreemptCtx{
		Running:          s.running,
		Head:             head,
		AdmittedThisTick: s.admittedThisTick,
		QuantumLeft:      s.quantumLeft,
	}
	if !s.pol.ShouldPreempt(ctx) {
		return false
	}
	promoted := s.rq.PopHead()
	s.rq.Insert(s.running)
	s.running = promoted
	return true
}

// finalizeCompletion moves the running task into the completed ledger.
// finishTick is the tick at which the completion is observed, one tick
// after the task's last execution.
func (s *Scheduler) finalizeCompletion(finishTick int) {
	s.completed = append(s.completed, task.Complete(s.running, finishTick))
	s.running = nil
}

// executeOneUnit runs the running task for one tick. An
// idle CPU contributes nothing to the trace — the trace line's token count
// equals the sum of every task's duration_total, never the tick count.
func (s *Scheduler) executeOneUnit(t int) {
	if s.running == nil {
		return
	}
	s.trace = append(s.trace, s.running.ID)
	s.running.Run(t)
	if s.pol.Quantum > 0 {
		s.quantumLeft--
	}
}

// Summary is the data a statistics-file writer needs: the execution trace
// and the completed ledger sorted by task ID, ascending, as a plain
// string compare.
type Summary struct {
	Trace     []string
	Completed []task.CompletedRecord
}

// Summary snapshots the Scheduler's output. Valid once Finished reports
// true; safe to call earlier for progress reporting too.
func (s *Scheduler) Summary() Summary {
	out := make([]task.CompletedRecord, len(s.completed))
	copy(out, s.completed)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	trace := make([]string, len(s.trace))
	copy(trace, s.trace)

	return Summary{Trace: trace, Completed: out}
}
