package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/queue"
	"github.com/coredump/schedsim/internal/task"
)

func TestAllSevenPoliciesAreRegistered(t *testing.T) {
	all := All()
	for _, code := range []string{"fcfs", "sjf", "prioc", "rr", "srtf", "priop", "priod"} {
		p, ok := all[code]
		require.True(t, ok, "missing policy %s", code)
		require.Equal(t, code, p.Code)
	}
	require.Len(t, all, 7)
}

func TestGetUnknownPolicy(t *testing.T) {
	_, err := Get("round-robin")
	require.Error(t, err)
}

func TestGetKnownPolicy(t *testing.T) {
	p, err := Get("srtf")
	require.NoError(t, err)
	require.Equal(t, "srtf", p.Code)
	require.True(t, p.Preemptive)
}

func TestNonPreemptivePoliciesNeverPreempt(t *testing.T) {
	running := task.New("r", 0, 5, 1)
	head := task.New("h", 0, 1, 0)
	ctx := PreemptCtx{Running: running, Head: head, AdmittedThisTick: true}

	for _, code := range []string{"fcfs", "sjf", "prioc"} {
		p := All()[code]
		require.False(t, p.ShouldPreempt(ctx), "policy %s should never preempt", code)
	}
}

func TestSRTFPreemptsOnlyOnAdmissionBoundary(t *testing.T) {
	p := All()["srtf"]
	running := task.New("r", 0, 5, 1)
	running.Run(0)
	running.Run(1)
	running.Run(2) // remaining == 2
	head := task.New("h", 3, 1, 1)

	require.False(t, p.ShouldPreempt(PreemptCtx{Running: running, Head: head, AdmittedThisTick: false}),
		"gated on admission: no admission, no preemption check")
	require.True(t, p.ShouldPreempt(PreemptCtx{Running: running, Head: head, AdmittedThisTick: true}))
}

func TestPriodResetsDynamicPriorityOnDispatchOnly(t *testing.T) {
	p := All()["priod"]
	tk := task.New("a", 0, 5, 7)
	tk.Age()
	tk.Age()
	require.Equal(t, 5, tk.PriorityDyn)

	p.OnDispatch(tk)
	require.Equal(t, 7, tk.PriorityDyn)
}

func TestPriodAgingDecrementsEveryQueuedTask(t *testing.T) {
	p := All()["priod"]
	rq := queue.New(p.Key)
	a := task.New("a", 0, 5, 7)
	b := task.New("b", 0, 5, 7)
	rq.Insert(a)
	rq.Insert(b)

	p.OnAging(rq)

	require.Equal(t, 6, a.PriorityDyn)
	require.Equal(t, 6, b.PriorityDyn)
}

func TestRoundRobinQuantumDefault(t *testing.T) {
	p := All()["rr"]
	require.Equal(t, DefaultQuantum, p.Quantum)
	tk := task.New("a", 0, 5, 1)
	require.Equal(t, DefaultQuantum, p.OnDispatch(tk))
}
