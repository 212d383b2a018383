// Package policy expresses the seven scheduling disciplines as a small
// capability set: no class hierarchy, one record of closures/config per
// policy, dispatched by a single tick loop in internal/scheduler.
package policy

import (
	"fmt"

	"github.com/coredump/schedsim/internal/queue"
	"github.com/coredump/schedsim/internal/task"
)

// PreemptCtx carries everything a preemption rule might need to decide.
// Not every policy uses every field (e.g. QuantumLeft is rr-specific,
// AdmittedThisTick is used only by srtf, priop and priod).
type PreemptCtx struct {
	Running          *task.Task
	Head             *task.Task
	AdmittedThisTick bool
	QuantumLeft      int
}

// Policy is the capability set a tick loop needs: how to order the ready
// queue, whether preemption is possible at all, when it fires, what
// happens at dispatch time, and what aging (if any) happens once per tick.
type Policy struct {
	Code        string
	Preemptive  bool
	Key         queue.KeyFunc
	Quantum     int // ticks before rr forcibly preempts; 0 for other policies
	ShouldPreempt func(PreemptCtx) bool
	// OnDispatch runs when a task moves Ready -> Running. It returns the
	// quantum to arm for this dispatch (only meaningful for rr; ignored
	// otherwise).
	OnDispatch func(t *task.Task) (quantum int)
	// OnAging runs once per tick, after execution, for every policy: a
	// no-op for all but priod.
	OnAging func(rq *queue.ReadyQueue)
	// ReevaluateOnCompletion reports whether the running task finishing
	// should itself count as an admission-boundary event for ShouldPreempt
	// purposes. Only priod sets this: it re-ages and re-competes every time
	// the CPU frees up, not only on a fresh arrival.
	ReevaluateOnCompletion bool
}

func fifoKey(t *task.Task) int { return t.AdmissionSeq }
func queueSeqKey(t *task.Task) int { return t.QueueSeq }
func remainingKey(t *task.Task) int { return t.Remaining() }
func dynamicPriorityKey(t *task.Task) int { return t.PriorityDyn }

func never(PreemptCtx) bool { return false }
func noAging(*queue.ReadyQueue) {}
func noDispatch(*task.Task) int { return 0 }

const DefaultQuantum = 3

// All returns every supported policy, fresh (policies are stateless aside
// from the Quantum constant, so one instance per run is fine).
func All() map[string]Policy {
	return map[string]Policy{
		"fcfs": {
			Code:          "fcfs",
			Preemptive:    false,
			Key:           fifoKey,
			ShouldPreempt: never,
			OnDispatch:    noDispatch,
			OnAging:       noAging,
		},
		"sjf": {
			Code:          "sjf",
			Preemptive:    false,
			Key:           remainingKey,
			ShouldPreempt: never,
			OnDispatch:    noDispatch,
			OnAging:       noAging,
		},
		"prioc": {
			Code:          "prioc",
			Preemptive:    false,
			Key:           dynamicPriorityKey,
			ShouldPreempt: never,
			OnDispatch:    noDispatch,
			OnAging:       noAging,
		},
		"rr": {
			Code:       "rr",
			Preemptive: true,
			// queueSeqKey, not fifoKey: a preempted task requeues to the
			// tail of the line, not back to its original admission slot.
			Key:        queueSeqKey,
			Quantum:    DefaultQuantum,
			ShouldPreempt: func(ctx PreemptCtx) bool {
				return ctx.QuantumLeft <= 0
			},
			OnDispatch: func(t *task.Task) int { return DefaultQuantum },
			OnAging:    noAging,
		},
		"srtf": {
			Code:       "srtf",
			Preemptive: true,
			Key:        remainingKey,
			// Gated on admission: the ready queue's remaining-time order
			// can only improve on what running already beat when it was
			// dispatched, so nothing new to check absent a fresh arrival.
			ShouldPreempt: func(ctx PreemptCtx) bool {
				return ctx.AdmittedThisTick && ctx.Head != nil && ctx.Head.Remaining() < ctx.Running.Remaining()
			},
			OnDispatch: noDispatch,
			OnAging:    noAging,
		},
		"priop": {
			Code:       "priop",
			Preemptive: true,
			Key:        dynamicPriorityKey,
			ShouldPreempt: func(ctx PreemptCtx) bool {
				return ctx.AdmittedThisTick && ctx.Head != nil && ctx.Head.PriorityDyn < ctx.Running.PriorityDyn
			},
			OnDispatch: noDispatch,
			OnAging:    noAging,
		},
		"priod": {
			Code:       "priod",
			Preemptive: true,
			Key:        dynamicPriorityKey,
			ShouldPreempt: func(ctx PreemptCtx) bool {
				return ctx.AdmittedThisTick && ctx.Head != nil && ctx.Head.PriorityDyn < ctx.Running.PriorityDyn
			},
			OnDispatch: func(t *task.Task) int {
				t.ResetDynamicPriority()
				return 0
			},
			OnAging: func(rq *queue.ReadyQueue) {
				rq.Each(func(t *task.Task) { t.Age() })
				rq.Reheapify()
			},
			ReevaluateOnCompletion: true,
		},
	}
}

// Get resolves a policy by code, fataling the caller's caller with a
// named error (an unknown policy name is an immediate fatal, before any
// output is produced) rather than guessing.
func Get(code string) (Policy, error) {
	all := All()
	p, ok := all[code]
	if !ok {
		return Policy{}, fmt.Errorf("unknown scheduling policy %q (want one of: fcfs, rr, sjf, srtf, prioc, priop, priod)", code)
	}
	return p, nil
}
