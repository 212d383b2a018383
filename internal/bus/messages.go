// Package bus defines the message-passing contract between Clock, Emitter
// and Scheduler: tick from Clock, new-task/tasks-done from
// Emitter, shutdown from Scheduler. Each receiver owns a single inbound
// queue with FIFO ordering.
//
// Two transports implement the same contract: InProcess (buffered Go
// channels, used by the collapsed `run` subcommand) and the TCP wire
// protocol in wire.go (used by the standalone `clock`/`emitter`/`scheduler`
// subcommands, preserving the original three-process deployment).
package bus

import "github.com/coredump/schedsim/internal/task"

// Tick is published by Clock to both Emitter and Scheduler for the same
// value of T, Emitter first, then after a short intra-tick delay,
// Scheduler — guaranteeing admissions for T are visible before the
// tick-T dispatch decision.
type Tick struct {
	T int
}

// NewTaskMsg carries one admitted task from Emitter to Scheduler.
type NewTaskMsg struct {
	Task *task.Task
}

// TasksDoneMsg signals the manifest is exhausted: no further NewTaskMsg
// will arrive. Sent once the in-flight same-tick NEW_TASK messages have had
// time to drain.
type TasksDoneMsg struct{}

// ShutdownMsg is sent by the Scheduler to Clock and Emitter on full drain
// It is the sole source of termination truth.
type ShutdownMsg struct{}
