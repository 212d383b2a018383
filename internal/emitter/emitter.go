// Package emitter implements the Emitter component: on each
// tick, admits every manifest entry whose arrival equals that tick into
// the Scheduler, and signals TASKS_DONE once the manifest is exhausted.
package emitter

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coredump/schedsim/internal/bus"
	"github.com/coredump/schedsim/internal/manifest"
)

// Emitter is the collapsed, in-process implementation used by `schedsim run`.
type Emitter struct {
	m             *manifest.Manifest
	lastSeenTick  int
	haveLastSeen  bool
	tasksDoneSent bool
	halfDelay     time.Duration
	log           *logrus.Logger
}

// New builds an Emitter over an already-loaded manifest. halfDelay should
// be at least half of the Clock's intra-tick delay, to let
// the Scheduler finish consuming same-tick NEW_TASK messages before the
// TASKS_DONE sentinel arrives.
func New(m *manifest.Manifest, halfDelay time.Duration, log *logrus.Logger) *Emitter {
	return &Emitter{m: m, halfDelay: halfDelay, log: log}
}

// Run drives the Emitter until ctx is cancelled or the Scheduler sends
// shutdown.
func (e *Emitter) Run(ctx context.Context, b *bus.InProcess) {
	shutdown := make(chan struct{})
	go func() {
		b.RecvShutdownForEmitter()
		close(shutdown)
	}()

	for {
		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		tick, ok := b.RecvTick()
		if !ok {
			return
		}
		e.handleTick(ctx, b, tick.T)
	}
}

func (e *Emitter) handleTick(ctx context.Context, b *bus.InProcess, t int) {
	if e.haveLastSeen && t == e.lastSeenTick {
		return
	}

	for _, task := range e.m.Drain(t) {
		if err := b.SendNewTask(bus.NewTaskMsg{Task: task}); err != nil {
			e.log.WithError(err).Debug("emitter: new-task publish failed")
			return
		}
	}

	if e.m.Empty() && !e.tasksDoneSent {
		select {
		case <-time.After(e.halfDelay):
		case <-ctx.Done():
			return
		}
		if err := b.SendTasksDone(bus.TasksDoneMsg{}); err == nil {
			e.tasksDoneSent = true
		} else {
			e.log.WithError(err).Debug("emitter: tasks-done publish failed")
		}
	}

	e.lastSeenTick = t
	e.haveLastSeen = true
}
