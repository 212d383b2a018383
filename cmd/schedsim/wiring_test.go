package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/config"
	"github.com/coredump/schedsim/internal/registry"
	"github.com/coredump/schedsim/internal/task"
)

func TestMeansOfEmptyIsZero(t *testing.T) {
	turnaround, waiting := meansOf(nil)
	require.Equal(t, 0.0, turnaround)
	require.Equal(t, 0.0, waiting)
}

func TestMeansOfAverages(t *testing.T) {
	completed := []task.CompletedRecord{
		{ID: "t1", Turnaround: 4, Waiting: 1},
		{ID: "t2", Turnaround: 6, Waiting: 3},
	}
	turnaround, waiting := meansOf(completed)
	require.Equal(t, 5.0, turnaround)
	require.Equal(t, 2.0, waiting)
}

func TestNewRecorderDefaultsToNullWithoutRedisAddr(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Config{}

	rec := newRecorder()
	require.NoError(t, rec.Publish(context.Background(), registry.Summary{RunID: "abc"}))
}

func TestNewArchiverDefaultsToNullWithoutPostgresDSN(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Config{}

	arc := newArchiver(context.Background())
	defer arc.Close()
}
