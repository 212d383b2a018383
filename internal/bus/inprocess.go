package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned by a send on a bus whose peer has gone away
// (context cancelled) — the in-process analogue of a transport send
// failure. Since the bus's context is already cancelled by then, callers
// log it and stop their loop.
var ErrClosed = errors.New("bus: peer unavailable")

// InProcess wires Clock, Emitter and Scheduler together with buffered
// channels instead of sockets, for the collapsed single-process `run`
// subcommand. Buffering is generous enough that no component blocks on a
// slow peer under normal operation; ctx cancellation unblocks any pending
// send or receive, standing in for the networked mode's poll-timeout
// liveness check.
type InProcess struct {
	ctx context.Context

	tickToEmitter   chan Tick
	tickToScheduler chan Tick
	newTask         chan NewTaskMsg
	tasksDone       chan TasksDoneMsg
	shutdownClock   chan ShutdownMsg
	shutdownEmitter chan ShutdownMsg
}

// NewInProcess creates a bus bound to ctx. Cancelling ctx unblocks every
// pending send/receive on the bus.
func NewInProcess(ctx context.Context) *InProcess {
	return &InProcess{
		ctx:             ctx,
		tickToEmitter:   make(chan Tick, 8),
		tickToScheduler: make(chan Tick, 8),
		newTask:         make(chan NewTaskMsg, 64),
		tasksDone:       make(chan TasksDoneMsg, 1),
		shutdownClock:   make(chan ShutdownMsg, 1),
		shutdownEmitter: make(chan ShutdownMsg, 1),
	}
}

// --- Clock's view: publishes ticks ---

func (b *InProcess) SendTickToEmitter(t Tick) error {
	select {
	case b.tickToEmitter <- t:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

func (b *InProcess) SendTickToScheduler(t Tick) error {
	select {
	case b.tickToScheduler <- t:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

// RecvShutdownForClock blocks until the Scheduler sends shutdown, or ctx
// is cancelled.
func (b *InProcess) RecvShutdownForClock() {
	select {
	case <-b.shutdownClock:
	case <-b.ctx.Done():
	}
}

// --- Emitter's view ---

func (b *InProcess) RecvTick() (Tick, bool) {
	select {
	case t := <-b.tickToEmitter:
		return t, true
	case <-b.ctx.Done():
		return Tick{}, false
	}
}

func (b *InProcess) SendNewTask(m NewTaskMsg) error {
	select {
	case b.newTask <- m:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

func (b *InProcess) SendTasksDone(m TasksDoneMsg) error {
	select {
	case b.tasksDone <- m:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

func (b *InProcess) RecvShutdownForEmitter() {
	select {
	case <-b.shutdownEmitter:
	case <-b.ctx.Done():
	}
}

// --- Scheduler's view ---

// TryRecvNewTask is non-blocking: it returns ok=false immediately if no
// NEW_TASK is pending, letting the Scheduler drain every queued admission
// after receiving a tick and before running it.
func (b *InProcess) TryRecvNewTask() (NewTaskMsg, bool) {
	select {
	case m := <-b.newTask:
		return m, true
	default:
		return NewTaskMsg{}, false
	}
}

func (b *InProcess) TryRecvTasksDone() bool {
	select {
	case <-b.tasksDone:
		return true
	default:
		return false
	}
}

func (b *InProcess) RecvSchedulerTick() (Tick, bool) {
	select {
	case t := <-b.tickToScheduler:
		return t, true
	case <-b.ctx.Done():
		return Tick{}, false
	}
}

func (b *InProcess) Shutdown() {
	select {
	case b.shutdownClock <- ShutdownMsg{}:
	default:
	}
	select {
	case b.shutdownEmitter <- ShutdownMsg{}:
	default:
	}
}
