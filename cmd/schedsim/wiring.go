package main

import (
	"context"
	"math"

	"github.com/coredump/schedsim/internal/archive"
	"github.com/coredump/schedsim/internal/registry"
	"github.com/coredump/schedsim/internal/task"
)

// newRecorder wires a Redis-backed registry.Recorder when cfg names an
// address, and the no-op NullRecorder otherwise — the registry is opt-in
// ambient infrastructure, not a dependency of the simulation itself.
func newRecorder() registry.Recorder {
	if cfg.RedisAddr == "" {
		return registry.NullRecorder{}
	}
	r, err := registry.NewRedis(cfg.RedisAddr, "", 0)
	if err != nil {
		log.WithError(err).Warn("run: registry disabled, could not reach redis")
		return registry.NullRecorder{}
	}
	return r
}

// newArchiver wires a Postgres-backed archive.Archiver when cfg names a
// DSN, and the no-op NullArchiver otherwise.
func newArchiver(ctx context.Context) archive.Archiver {
	if cfg.PostgresDSN == "" {
		return archive.NullArchiver{}
	}
	a, err := archive.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Warn("run: archive disabled, could not reach postgres")
		return archive.NullArchiver{}
	}
	return a
}

// meansOf computes the same ceiling-rounded means statsfile.Write derives,
// as plain floats for metrics/archive consumers that don't need the
// formatted string.
func meansOf(completed []task.CompletedRecord) (meanTurnaround, meanWaiting float64) {
	if len(completed) == 0 {
		return 0, 0
	}
	var turnaroundSum, waitingSum int
	for _, c := range completed {
		turnaroundSum += c.Turnaround
		waitingSum += c.Waiting
	}
	n := float64(len(completed))
	return math.Ceil(float64(turnaroundSum)/n*10) / 10, math.Ceil(float64(waitingSum)/n*10) / 10
}
