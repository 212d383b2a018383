package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coredump/schedsim/internal/archive"
	"github.com/coredump/schedsim/internal/bus"
	"github.com/coredump/schedsim/internal/clock"
	"github.com/coredump/schedsim/internal/emitter"
	"github.com/coredump/schedsim/internal/live"
	"github.com/coredump/schedsim/internal/manifest"
	"github.com/coredump/schedsim/internal/metrics"
	"github.com/coredump/schedsim/internal/policy"
	"github.com/coredump/schedsim/internal/scheduler"
	"github.com/coredump/schedsim/internal/statsfile"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run Clock, Emitter and Scheduler together in one process",
		Long: `run collapses the three historical programs into goroutines
connected by Go channels (internal/bus.InProcess), supervised by an
errgroup: a panic or early exit in any one of them cancels the shared
context and the other two observe it within one poll interval, same as
the networked mode's send-failure detection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollapsed(cmd.Context())
		},
	}
}

func runCollapsed(ctx context.Context) error {
	if cfg.ManifestPath == "" {
		return errors.New("run: --manifest is required")
	}
	pol, err := policy.Get(cfg.Policy)
	if err != nil {
		return err
	}

	if cfg.Net {
		return runCollapsedNetworked(ctx, pol.Code)
	}

	m, err := manifest.Load(cfg.ManifestPath, log)
	if err != nil {
		return errors.Wrap(err, "run")
	}

	runID := uuid.NewString()
	obs := metrics.NewObserver(pol.Code)

	var hub *live.Hub
	if cfg.LiveAddr != "" {
		hub = live.NewHub(log)
	}

	rec := newRecorder()
	defer rec.Close()
	arc := newArchiver(ctx)
	defer arc.Close()

	g, gctx := errgroup.WithContext(ctx)
	// simCtx ends when the scheduler finishes, so the emitter (blocked
	// waiting for a tick that will never come), the hub and the ambient
	// servers all return and g.Wait can complete.
	simCtx, endSim := context.WithCancel(gctx)
	defer endSim()
	b := bus.NewInProcess(simCtx)

	ck := clock.New(clock.Config{
		Period:         cfg.TickPeriod,
		IntraTickDelay: cfg.TickPeriod / 20,
		Speed:          cfg.Speed,
	}, log)
	em := emitter.New(m, cfg.TickPeriod/40, log)
	sched := scheduler.New(pol)

	if hub != nil {
		g.Go(func() error { hub.Run(simCtx); return nil })
	}
	for _, srv := range newAmbientServers(hub) {
		srv := srv
		g.Go(func() error { return serveUntilCancel(simCtx, srv) })
	}

	g.Go(func() error { ck.Run(simCtx, b); return nil })
	g.Go(func() error { em.Run(simCtx, b); return nil })

	start := time.Now()
	g.Go(func() error {
		driveScheduler(simCtx, b, sched, obs, hub, rec, runID, pol.Code)
		endSim()
		return nil
	})

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}

	summary := sched.Summary()
	outPath := filepath.Join(cfg.OutputDir, statsfile.FileName(pol.Code))
	if err := statsfile.Write(outPath, summary.Trace, summary.Completed); err != nil {
		return errors.Wrap(err, "run")
	}

	meanTurnaround, meanWaiting := meansOf(summary.Completed)
	obs.RunFinished(time.Since(start).Seconds(), meanTurnaround, meanWaiting)

	if err := arc.SaveRun(ctx, archive.RunRecord{
		RunID:          runID,
		Policy:         pol.Code,
		ManifestPath:   cfg.ManifestPath,
		TraceLength:    len(summary.Trace),
		MeanTurnaround: meanTurnaround,
		MeanWaiting:    meanWaiting,
		Tasks:          summary.Completed,
	}); err != nil {
		log.WithError(err).Warn("run: archive save failed")
	}

	log.WithFields(logrus.Fields{
		"run_id":          runID,
		"policy":          pol.Code,
		"tasks_completed": len(summary.Completed),
		"trace_length":    len(summary.Trace),
		"mean_turnaround": meanTurnaround,
		"mean_waiting":    meanWaiting,
		"output":          outPath,
	}).Info("run: simulation complete")

	return nil
}

// runCollapsedNetworked is --net's "alternate mode": the same three roles,
// still one process, but talking over the wire protocol on cfg.Host's
// three ports instead of internal/bus.InProcess channels. Each role is
// exactly the standalone subcommand's loop; only the supervision — one
// errgroup instead of three independent process lifetimes — differs.
func runCollapsedNetworked(ctx context.Context, policyCode string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return runStandaloneClock(gctx) })
	g.Go(func() error { return runStandaloneEmitter(gctx, cfg.ManifestPath) })
	g.Go(func() error { return runStandaloneScheduler(gctx, policyCode) })

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "run --net")
	}
	return nil
}
