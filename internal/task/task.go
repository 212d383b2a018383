// Package task defines the data model shared by the Clock, Emitter and
// Scheduler components: the Task moving through Pending -> Ready -> Running
// -> Completed, and the record it leaves behind in the completed ledger.
package task

// Task is created by the Emitter and mutated exclusively by the Scheduler.
// It is owned by whichever structure currently holds it (ready queue,
// running slot, or completed ledger) — transitions are handoffs, never
// sharing.
type Task struct {
	ID string

	Arrival        int
	DurationTotal  int
	remaining      int
	PriorityStatic int
	PriorityDyn    int

	// AdmissionSeq breaks ties between tasks with equal ordering keys,
	// enforcing the stability rule: earlier-admitted task runs first. Fixed
	// at manifest admission, never touched again.
	AdmissionSeq int

	// QueueSeq is the task's position in ready-queue insertion order,
	// reassigned every time it is (re)inserted. fcfs's and rr's FIFO
	// disciplines differ exactly here: fcfs never requeues, so its
	// AdmissionSeq-keyed order is permanent; rr requeues a preempted task to
	// the tail, which QueueSeq expresses and AdmissionSeq cannot.
	QueueSeq int

	started      bool
	firstRunTick int
}

// New constructs a Task in the Pending state, with dynamic priority
// initialized to the static priority as required by the data model.
func New(id string, arrival, duration, priority int) *Task {
	return &Task{
		ID:             id,
		Arrival:        arrival,
		DurationTotal:  duration,
		remaining:      duration,
		PriorityStatic: priority,
		PriorityDyn:    priority,
		firstRunTick:   -1,
	}
}

// Remaining returns duration_remaining.
func (t *Task) Remaining() int { return t.remaining }

// Done reports whether the task has exhausted its required CPU ticks.
func (t *Task) Done() bool { return t.remaining == 0 }

// Run executes one CPU tick against the task: decrements duration_remaining
// by one and records the first tick it ever ran on (for response-time
// accounting).
//
// Panics if called on a task that has already completed — running a
// finished task is an invariant violation, not a recoverable
// condition.
func (t *Task) Run(currentTick int) {
	if t.remaining == 0 {
		panic("task: Run called with duration_remaining == 0 for task " + t.ID)
	}
	if !t.started {
		t.started = true
		t.firstRunTick = currentTick
	}
	t.remaining--
}

// FirstRunTick returns the tick at which the task first entered the
// running slot, or -1 if it has never run.
func (t *Task) FirstRunTick() int { return t.firstRunTick }

// ResetDynamicPriority restores priority_dynamic to priority_static. Used
// on dispatch under the priod policy.
func (t *Task) ResetDynamicPriority() { t.PriorityDyn = t.PriorityStatic }

// Age decrements priority_dynamic by one, making the task more urgent.
// Used by the priod policy's aging step.
func (t *Task) Age() { t.PriorityDyn-- }

// CompletedRecord is an append-only entry in the completed ledger.
// turnaround = finish - arrival; waiting = turnaround - duration_total,
// computed uniformly regardless of policy (resolved here:
// canonical waiting formula).
type CompletedRecord struct {
	ID            string
	Arrival       int
	Finish        int
	Turnaround    int
	Waiting       int
	DurationTotal int
	// ResponseTime is arrival-to-first-dispatch latency. Supplemental,
	// non-canonical: never written into the statistics file.
	ResponseTime int
}

// Complete builds the CompletedRecord for a task finishing at finishTick.
func Complete(t *Task, finishTick int) CompletedRecord {
	turnaround := finishTick - t.Arrival
	response := -1
	if t.firstRunTick >= 0 {
		response = t.firstRunTick - t.Arrival
	}
	return CompletedRecord{
		ID:            t.ID,
		Arrival:       t.Arrival,
		Finish:        finishTick,
		Turnaround:    turnaround,
		Waiting:       turnaround - t.DurationTotal,
		DurationTotal: t.DurationTotal,
		ResponseTime:  response,
	}
}
