package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump/schedsim/internal/task"
)

func TestNullArchiverSaveRunIsNoOp(t *testing.T) {
	var a NullArchiver
	err := a.SaveRun(context.Background(), RunRecord{
		RunID: "abc",
		Tasks: []task.CompletedRecord{{ID: "t1"}},
	})
	require.NoError(t, err)
}

func TestNullArchiverCloseDoesNotPanic(t *testing.T) {
	var a NullArchiver
	a.Close()
}

func TestNewPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "not a valid dsn %")
	require.Error(t, err)
}
