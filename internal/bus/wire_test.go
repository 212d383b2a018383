package bus

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/task"
)

func TestEncodeDecodeTick(t *testing.T) {
	line := EncodeTick(42)
	require.Equal(t, "CLOCK: 42", line)

	n, ok := DecodeTick(line)
	require.True(t, ok)
	require.Equal(t, 42, n)

	_, ok = DecodeTick("not a tick line")
	require.False(t, ok)
}

func TestEncodeDecodeNewTask(t *testing.T) {
	tk := task.New("t0", 3, 5, 2)
	line := EncodeNewTask(tk)

	got, done := DecodeMessage(line)
	require.False(t, done)
	require.NotNil(t, got)
	require.Equal(t, "t0", got.ID)
	require.Equal(t, 3, got.Arrival)
	require.Equal(t, 5, got.DurationTotal)
	require.Equal(t, 2, got.PriorityStatic)
	require.Zero(t, got.AdmissionSeq, "the wire format carries no sequence field; callers must assign AdmissionSeq themselves")
}

func TestEncodeDecodeTasksDone(t *testing.T) {
	line := EncodeTasksDone()
	got, done := DecodeMessage(line)
	require.Nil(t, got)
	require.True(t, done)
}

func TestDecodeMessageIgnoresControlLines(t *testing.T) {
	got, done := DecodeMessage(msgStartClock)
	require.Nil(t, got)
	require.False(t, done)
}

func TestDefaultEndpoints(t *testing.T) {
	e := DefaultEndpoints()
	require.Equal(t, "localhost", e.Host)
	require.Equal(t, 4000, e.ClockPort)
	require.Equal(t, 4001, e.EmitterPort)
	require.Equal(t, 4002, e.SchedulerPort)
}

func TestSendLineRoundTrip(t *testing.T) {
	srv, err := Listen("localhost", 0)
	require.NoError(t, err)
	defer srv.Close()

	port := srv.ln.Addr().(*net.TCPAddr).Port

	received := make(chan string, 1)
	stop := make(chan struct{})
	go srv.Serve(stop, func(line string) { received <- line })
	defer close(stop)

	require.NoError(t, SendLine("localhost", port, "CLOCK: 7"))

	select {
	case line := <-received:
		require.Equal(t, "CLOCK: 7", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
}
