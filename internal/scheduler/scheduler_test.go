package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/policy"
	"github.com/coredump/schedsim/internal/task"
)

// seed is one manifest line, matching the semicolon workload format.
type seed struct {
	id                 string
	arrival, dur, prio int
}

// runToCompletion drives a Scheduler tick by tick from a fixed set of
// arrivals (no networked transport involved: this exercises the algorithm
// in isolation, as the worked traces do) until its termination condition
// holds, and returns the resulting trace and completed ledger.
func runToCompletion(t *testing.T, code string, seeds []seed) ([]string, []task.CompletedRecord) {
	t.Helper()

	pol, err := policy.Get(code)
	require.NoError(t, err)

	byArrival := map[int][]seed{}
	maxArrival := 0
	for _, s := range seeds {
		byArrival[s.arrival] = append(byArrival[s.arrival], s)
		if s.arrival > maxArrival {
			maxArrival = s.arrival
		}
	}

	sched := New(pol)
	admitSeq := 0
	drained := 0

	for tick := 0; ; tick++ {
		var admitted []*task.Task
		for _, s := range byArrival[tick] {
			tk := task.New(s.id, s.arrival, s.dur, s.prio)
			tk.AdmissionSeq = admitSeq
			admitSeq++
			admitted = append(admitted, tk)
			drained++
		}
		if drained == len(seeds) {
			sched.MarkTasksDone()
		}
		sched.Tick(tick, admitted)

		if sched.Finished() {
			break
		}
		require.Less(t, tick, 10_000, "scheduler never reached its termination condition")
	}

	sum := sched.Summary()
	return sum.Trace, sum.Completed
}

func traceString(trace []string) string {
	out := ""
	for _, id := range trace {
		out += id + ";"
	}
	return out
}

func TestScenarioA_FCFS(t *testing.T) {
	trace, completed := runToCompletion(t, "fcfs", []seed{
		{"t0", 0, 3, 1},
		{"t1", 1, 2, 1},
		{"t2", 2, 1, 1},
	})

	require.Equal(t, "t0;t0;t0;t1;t1;t2;", traceString(trace))
	require.Equal(t, []task.CompletedRecord{
		{ID: "t0", Arrival: 0, Finish: 3, Turnaround: 3, Waiting: 0, DurationTotal: 3, ResponseTime: 0},
		{ID: "t1", Arrival: 1, Finish: 5, Turnaround: 4, Waiting: 2, DurationTotal: 2, ResponseTime: 2},
		{ID: "t2", Arrival: 2, Finish: 6, Turnaround: 4, Waiting: 3, DurationTotal: 1, ResponseTime: 3},
	}, completed)
}

func TestScenarioB_RoundRobin(t *testing.T) {
	trace, completed := runToCompletion(t, "rr", []seed{
		{"t0", 0, 5, 1},
		{"t1", 1, 3, 1},
	})

	require.Equal(t, "t0;t0;t0;t1;t1;t1;t0;t0;", traceString(trace))
	require.Len(t, completed, 2)
	require.Equal(t, "t0", completed[0].ID)
	require.Equal(t, 8, completed[0].Finish)
	require.Equal(t, 8, completed[0].Turnaround)
	require.Equal(t, 3, completed[0].Waiting)
	require.Equal(t, "t1", completed[1].ID)
	require.Equal(t, 6, completed[1].Finish)
	require.Equal(t, 5, completed[1].Turnaround)
	require.Equal(t, 2, completed[1].Waiting)
}

func TestScenarioC_SJFNonPreemptive(t *testing.T) {
	trace, completed := runToCompletion(t, "sjf", []seed{
		{"t0", 0, 6, 1},
		{"t1", 1, 2, 1},
		{"t2", 2, 4, 1},
	})

	require.Equal(t, "t0;t0;t0;t0;t0;t0;t1;t1;t2;t2;t2;t2;", traceString(trace))
	require.Equal(t, []task.CompletedRecord{
		{ID: "t0", Arrival: 0, Finish: 6, Turnaround: 6, Waiting: 0, DurationTotal: 6, ResponseTime: 0},
		{ID: "t1", Arrival: 1, Finish: 8, Turnaround: 7, Waiting: 5, DurationTotal: 2, ResponseTime: 5},
		{ID: "t2", Arrival: 2, Finish: 12, Turnaround: 10, Waiting: 6, DurationTotal: 4, ResponseTime: 6},
	}, completed)
}

func TestScenarioD_SRTFPreemption(t *testing.T) {
	trace, completed := runToCompletion(t, "srtf", []seed{
		{"t0", 0, 7, 1},
		{"t1", 2, 2, 1},
	})

	require.Equal(t, "t0;t0;t1;t1;t0;t0;t0;t0;t0;", traceString(trace))
	require.Equal(t, []task.CompletedRecord{
		{ID: "t0", Arrival: 0, Finish: 9, Turnaround: 9, Waiting: 2, DurationTotal: 7, ResponseTime: 0},
		{ID: "t1", Arrival: 2, Finish: 4, Turnaround: 2, Waiting: 0, DurationTotal: 2, ResponseTime: 0},
	}, completed)
}

func TestScenarioE_PriodAging(t *testing.T) {
	trace, completed := runToCompletion(t, "priod", []seed{
		{"t0", 0, 4, 3},
		{"t1", 1, 2, 5},
		{"t2", 2, 1, 5},
	})

	require.Equal(t, "t0;t0;t0;t0;t1;t1;t2;", traceString(trace))
	require.Equal(t, []task.CompletedRecord{
		{ID: "t0", Arrival: 0, Finish: 4, Turnaround: 4, Waiting: 0, DurationTotal: 4, ResponseTime: 0},
		{ID: "t1", Arrival: 1, Finish: 6, Turnaround: 5, Waiting: 3, DurationTotal: 2, ResponseTime: 3},
		{ID: "t2", Arrival: 2, Finish: 7, Turnaround: 5, Waiting: 4, DurationTotal: 1, ResponseTime: 4},
	}, completed)
}

func TestScenarioF_DegenerateSingleTask(t *testing.T) {
	for _, code := range []string{"fcfs", "sjf", "prioc", "rr", "srtf", "priop", "priod"} {
		trace, completed := runToCompletion(t, code, []seed{{"t0", 0, 1, 1}})
		require.Equal(t, "t0;", traceString(trace), "policy %s", code)
		require.Equal(t, []task.CompletedRecord{
			{ID: "t0", Arrival: 0, Finish: 1, Turnaround: 1, Waiting: 0, DurationTotal: 1, ResponseTime: 0},
		}, completed, "policy %s", code)
	}
}

// TestStabilityRule covers spec's tie-break invariant directly: equal keys
// resolve in admission order, independent of which policy produced the tie.
func TestStabilityRule(t *testing.T) {
	trace, completed := runToCompletion(t, "prioc", []seed{
		{"a", 0, 1, 5},
		{"b", 0, 1, 5},
		{"c", 0, 1, 5},
	})

	require.Equal(t, "a;b;c;", traceString(trace))
	require.Len(t, completed, 3)
}

// TestReadyQueueNeverHoldsRunningOrCompleted checks the invariant that a
// task appears in exactly one of ready queue, running slot, completed
// ledger at any time, by asserting the total admitted count is conserved.
func TestReadyQueueNeverHoldsRunningOrCompleted(t *testing.T) {
	seeds := []seed{
		{"t0", 0, 3, 2},
		{"t1", 0, 1, 1},
		{"t2", 1, 5, 3},
		{"t3", 2, 2, 1},
	}
	_, completed := runToCompletion(t, "priop", seeds)
	require.Len(t, completed, len(seeds))

	seen := map[string]bool{}
	for _, c := range completed {
		require.False(t, seen[c.ID], "task %s completed twice", c.ID)
		seen[c.ID] = true
	}
}

func TestUnknownPolicyIsRejected(t *testing.T) {
	_, err := policy.Get("does-not-exist")
	require.Error(t, err)
}
