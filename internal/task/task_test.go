package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInitializesDynamicPriorityToStatic(t *testing.T) {
	tk := New("t0", 3, 5, 2)
	require.Equal(t, 2, tk.PriorityDyn)
	require.Equal(t, 2, tk.PriorityStatic)
	require.Equal(t, 5, tk.Remaining())
	require.False(t, tk.Done())
	require.Equal(t, -1, tk.FirstRunTick())
}

func TestRunDecrementsRemainingAndRecordsFirstRun(t *testing.T) {
	tk := New("t0", 0, 2, 1)
	tk.Run(5)
	require.Equal(t, 5, tk.FirstRunTick())
	require.Equal(t, 1, tk.Remaining())

	tk.Run(6)
	require.Equal(t, 5, tk.FirstRunTick(), "first run tick doesn't change on later runs")
	require.True(t, tk.Done())
}

func TestRunPanicsOnAlreadyCompletedTask(t *testing.T) {
	tk := New("t0", 0, 1, 1)
	tk.Run(0)
	require.Panics(t, func() { tk.Run(1) })
}

func TestAgeAndResetDynamicPriority(t *testing.T) {
	tk := New("t0", 0, 1, 5)
	tk.Age()
	tk.Age()
	require.Equal(t, 3, tk.PriorityDyn)

	tk.ResetDynamicPriority()
	require.Equal(t, 5, tk.PriorityDyn)
}

func TestCompleteComputesCanonicalWaitingFormula(t *testing.T) {
	tk := New("t0", 2, 4, 1)
	tk.Run(2)
	tk.Run(3)
	tk.Run(4)
	tk.Run(5)

	rec := Complete(tk, 6)
	require.Equal(t, "t0", rec.ID)
	require.Equal(t, 2, rec.Arrival)
	require.Equal(t, 6, rec.Finish)
	require.Equal(t, 4, rec.Turnaround)
	require.Equal(t, 0, rec.Waiting)
	require.Equal(t, 2, rec.ResponseTime)
}

func TestCompleteNeverRunResponseTimeIsNegativeOne(t *testing.T) {
	tk := New("t0", 0, 1, 1)
	rec := Complete(tk, 0)
	require.Equal(t, -1, rec.ResponseTime)
}
