package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullRecorderPublishIsNoOp(t *testing.T) {
	var r NullRecorder
	require.NoError(t, r.Publish(context.Background(), Summary{RunID: "abc", Tick: 3}))
}

func TestNullRecorderFetchReportsNoBackend(t *testing.T) {
	var r NullRecorder
	_, ok, err := r.Fetch(context.Background(), "abc")
	require.Error(t, err)
	require.False(t, ok)
}

func TestNullRecorderCloseIsNoOp(t *testing.T) {
	var r NullRecorder
	require.NoError(t, r.Close())
}

func TestNewRedisRejectsUnreachableAddr(t *testing.T) {
	_, err := NewRedis("127.0.0.1:1", "", 0)
	require.Error(t, err)
}
