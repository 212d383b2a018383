package main

import (
	"context"

	"github.com/coredump/schedsim/internal/bus"
	"github.com/coredump/schedsim/internal/live"
	"github.com/coredump/schedsim/internal/metrics"
	"github.com/coredump/schedsim/internal/registry"
	"github.com/coredump/schedsim/internal/scheduler"
	"github.com/coredump/schedsim/internal/task"
)

// driveScheduler is the collapsed-mode analogue of the Scheduler's own
// process loop: pull a tick, drain every NEW_TASK already queued for it,
// observe a TASKS_DONE sentinel if one arrived, then run one tick of the
// scheduling algorithm. It owns nothing the algorithm itself doesn't
// already own — metrics, the live feed and the registry are read-only
// observers of Scheduler's public accessors.
func driveScheduler(
	ctx context.Context,
	b *bus.InProcess,
	sched *scheduler.Scheduler,
	obs *metrics.Observer,
	hub *live.Hub,
	rec registry.Recorder,
	runID, policyCode string,
) {
	seenCompleted := make(map[string]struct{})

	for {
		tick, ok := b.RecvSchedulerTick()
		if !ok {
			return
		}

		var admitted []*task.Task
		for {
			m, ok := b.TryRecvNewTask()
			if !ok {
				break
			}
			admitted = append(admitted, m.Task)
		}
		if b.TryRecvTasksDone() {
			sched.MarkTasksDone()
		}

		prevRunningID, prevCompleted := runningID(sched), len(sched.Summary().Completed)
		sched.Tick(tick.T, admitted)

		obs.Tick(sched.ReadyCount(), sched.Running() != nil)
		observeTransition(obs, sched, prevRunningID, prevCompleted)

		if hub != nil {
			hub.Publish(buildEvent(tick.T, sched, seenCompleted))
		}
		if rec != nil {
			summary := sched.Summary()
			_ = rec.Publish(ctx, registry.Summary{
				RunID:          runID,
				Policy:         policyCode,
				Tick:           tick.T,
				ReadyCount:     sched.ReadyCount(),
				CompletedCount: len(summary.Completed),
				Finished:       sched.Finished(),
			})
		}

		if sched.Finished() {
			b.Shutdown()
			return
		}
	}
}

func runningID(sched *scheduler.Scheduler) string {
	if r := sched.Running(); r != nil {
		return r.ID
	}
	return ""
}

// observeTransition classifies the running-slot change a single Tick call
// just made against the snapshot taken before it, and records the
// corresponding metrics.Observer counters. A dispatch and a preemption (or
// a dispatch and a completion) can both fire out of the same Tick call —
// e.g. rr preempting the running task into the ready queue and
// immediately dispatching the next one — so the three checks are
// independent, not a single switch.
func observeTransition(obs *metrics.Observer, sched *scheduler.Scheduler, prevRunningID string, prevCompleted int) {
	newRunningID := runningID(sched)

	if completed := len(sched.Summary().Completed) - prevCompleted; completed > 0 {
		obs.Complete()
	}

	if newRunningID != "" && newRunningID != prevRunningID {
		obs.Dispatch()
	}

	if prevRunningID != "" && newRunningID != prevRunningID {
		for _, id := range sched.ReadyIDs() {
			if id == prevRunningID {
				obs.Preempt()
				break
			}
		}
	}
}

// buildEvent assembles one tick's live.Event, tracking which completed ids
// have already been reported so each id appears in exactly one event's
// Completed slice.
func buildEvent(t int, sched *scheduler.Scheduler, seen map[string]struct{}) live.Event {
	ev := live.Event{Tick: t, ReadyIDs: sched.ReadyIDs()}
	if running := sched.Running(); running != nil {
		ev.Running = running.ID
	}
	for _, c := range sched.Summary().Completed {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		ev.Completed = append(ev.Completed, c.ID)
	}
	return ev
}
