package statsfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/task"
)

func TestWriteScenarioA(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName("fcfs"))

	trace := []string{"t0", "t0", "t0", "t1", "t1", "t2"}
	completed := []task.CompletedRecord{
		{ID: "t0", Arrival: 0, Finish: 3, Turnaround: 3, Waiting: 0, DurationTotal: 3},
		{ID: "t1", Arrival: 1, Finish: 5, Turnaround: 4, Waiting: 2, DurationTotal: 2},
		{ID: "t2", Arrival: 2, Finish: 6, Turnaround: 4, Waiting: 3, DurationTotal: 1},
	}

	require.NoError(t, Write(path, trace, completed))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "t0;t0;t0;t1;t1;t2;\n" +
		"\n" +
		"t0;0;3;3;0\n" +
		"t1;1;5;4;2\n" +
		"t2;2;6;4;3\n" +
		"3.7;1.7\n"
	require.Equal(t, want, string(data))
}

func TestWriteDegenerateNoCompletions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName("sjf"))

	require.NoError(t, Write(path, nil, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "\n\n0.0;0.0\n", string(data))
}

func TestCeilToOneDecimal(t *testing.T) {
	require.Equal(t, "3.7", ceilToOneDecimal(11.0/3.0))
	require.Equal(t, "1.7", ceilToOneDecimal(5.0/3.0))
	require.Equal(t, "0.0", ceilToOneDecimal(0))
	require.Equal(t, "5.0", ceilToOneDecimal(5))
	require.Equal(t, "4.7", ceilToOneDecimal(14.0/3.0))
}

func TestFileName(t *testing.T) {
	require.Equal(t, "algoritmo_priod.txt", FileName("priod"))
}
