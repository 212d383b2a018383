package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coredump/schedsim/internal/bus"
	"github.com/coredump/schedsim/internal/manifest"
	"github.com/coredump/schedsim/internal/metrics"
	"github.com/coredump/schedsim/internal/policy"
	"github.com/coredump/schedsim/internal/scheduler"
	"github.com/coredump/schedsim/internal/statsfile"
	"github.com/coredump/schedsim/internal/task"
)

// These three subcommands reproduce the original three-process deployment
// exactly: each binds its own listening port and talks to its peers over
// the wire protocol in internal/bus/wire.go, rather than the in-process
// channels "run" uses.

func newClockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clock",
		Short: "Run the standalone networked Clock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStandaloneClock(cmd.Context())
		},
	}
}

func newEmitterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emitter [manifest-path]",
		Short: "Run the standalone networked Emitter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.ManifestPath
			if len(args) == 1 {
				path = args[0]
			}
			return runStandaloneEmitter(cmd.Context(), path)
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler [policy]",
		Short: "Run the standalone networked Scheduler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := cfg.Policy
			if len(args) == 1 {
				code = args[0]
			}
			return runStandaloneScheduler(cmd.Context(), code)
		},
	}
}

func tickPeriod() (period, intraDelay time.Duration) {
	period = cfg.TickPeriod
	if cfg.Speed > 0 {
		period = time.Duration(float64(period) / cfg.Speed)
	}
	if period <= 0 {
		period = time.Microsecond
	}
	return period, period / 20
}

// runStandaloneClock idles, unarmed, until it receives StartClockLine on
// its own listening port, then ticks forever until SchedulerDoneLine
// arrives or ctx is cancelled.
func runStandaloneClock(ctx context.Context) error {
	ln, err := bus.Listen(cfg.Host, cfg.ClockPort)
	if err != nil {
		return errors.Wrap(err, "clock")
	}
	defer ln.Close()

	armed := make(chan struct{})
	stop := make(chan struct{})
	var armOnce, stopOnce sync.Once

	go ln.Serve(stop, func(line string) {
		switch line {
		case bus.StartClockLine:
			armOnce.Do(func() { close(armed) })
		case bus.SchedulerDoneLine:
			stopOnce.Do(func() { close(stop) })
		}
	})

	select {
	case <-armed:
	case <-stop:
		log.Info("clock: shutdown received before arming")
		return nil
	case <-ctx.Done():
		return nil
	}
	log.Info("clock: armed, ticking")

	period, intraDelay := tickPeriod()
	for t := 0; ; t++ {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		if err := bus.SendLine(cfg.Host, cfg.EmitterPort, bus.EncodeTick(t)); err != nil {
			log.WithError(err).Debug("clock: tick publish to emitter failed, peer is responsible for its own liveness")
		}

		select {
		case <-time.After(intraDelay):
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		}

		if err := bus.SendLine(cfg.Host, cfg.SchedulerPort, bus.EncodeTick(t)); err != nil {
			log.WithError(err).Debug("clock: tick publish to scheduler failed")
		}

		select {
		case <-time.After(period):
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// runStandaloneEmitter loads the manifest, arms the Clock, then relays
// ticks into NEW_THREAD/TAREFAS_FINALIZADAS messages for the Scheduler
// until SchedulerDoneLine arrives.
func runStandaloneEmitter(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("emitter: manifest path is required")
	}
	m, err := manifest.Load(path, log)
	if err != nil {
		return errors.Wrap(err, "emitter")
	}

	ln, err := bus.Listen(cfg.Host, cfg.EmitterPort)
	if err != nil {
		return errors.Wrap(err, "emitter")
	}
	defer ln.Close()

	stop := make(chan struct{})
	var stopOnce sync.Once
	var lastSeenTick int
	var haveLastSeen bool
	var tasksDoneSent bool
	_, halfDelay := tickPeriod()
	halfDelay /= 2

	go ln.Serve(stop, func(line string) {
		if line == bus.SchedulerDoneLine {
			stopOnce.Do(func() { close(stop) })
			return
		}
		t, ok := bus.DecodeTick(line)
		if !ok {
			return
		}
		if haveLastSeen && t == lastSeenTick {
			return
		}
		for _, tk := range m.Drain(t) {
			if err := bus.SendLine(cfg.Host, cfg.SchedulerPort, bus.EncodeNewTask(tk)); err != nil {
				log.WithError(err).Debug("emitter: new-task publish failed")
			}
		}
		if m.Empty() && !tasksDoneSent {
			time.Sleep(halfDelay)
			if err := bus.SendLine(cfg.Host, cfg.SchedulerPort, bus.EncodeTasksDone()); err == nil {
				tasksDoneSent = true
			} else {
				log.WithError(err).Debug("emitter: tasks-done publish failed")
			}
		}
		lastSeenTick = t
		haveLastSeen = true
	})

	if err := bus.SendLine(cfg.Host, cfg.ClockPort, bus.StartClockLine); err != nil {
		log.WithError(err).Warn("emitter: failed to arm clock")
	}

	select {
	case <-stop:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// runStandaloneScheduler accumulates NEW_THREAD messages between ticks and
// runs one tick of the scheduling algorithm per CLOCK line, exactly the
// batching internal/scheduler.Scheduler.Tick expects, then writes the
// statistics file and signals both peers on full drain.
func runStandaloneScheduler(ctx context.Context, policyCode string) error {
	pol, err := policy.Get(policyCode)
	if err != nil {
		return err
	}

	ln, err := bus.Listen(cfg.Host, cfg.SchedulerPort)
	if err != nil {
		return errors.Wrap(err, "scheduler")
	}
	defer ln.Close()

	sched := scheduler.New(pol)
	obs := metrics.NewObserver(pol.Code)
	start := time.Now()

	var mu sync.Mutex
	var pending []*task.Task
	var nextAdmitSeq int
	stop := make(chan struct{})
	done := make(chan struct{})
	var stopOnce, doneOnce sync.Once

	go ln.Serve(stop, func(line string) {
		if t, ok := bus.DecodeTick(line); ok {
			mu.Lock()
			admitted := pending
			pending = nil
			mu.Unlock()

			prevRunningID, prevCompleted := runningID(sched), len(sched.Summary().Completed)
			sched.Tick(t, admitted)
			obs.Tick(sched.ReadyCount(), sched.Running() != nil)
			observeTransition(obs, sched, prevRunningID, prevCompleted)

			if sched.Finished() {
				doneOnce.Do(func() { close(done) })
				stopOnce.Do(func() { close(stop) })
			}
			return
		}

		nt, tasksDone := bus.DecodeMessage(line)
		if tasksDone {
			sched.MarkTasksDone()
			return
		}
		if nt != nil {
			mu.Lock()
			nt.AdmissionSeq = nextAdmitSeq
			nextAdmitSeq++
			pending = append(pending, nt)
			mu.Unlock()
		}
	})

	select {
	case <-done:
	case <-ctx.Done():
		return nil
	}

	summary := sched.Summary()
	outPath := filepath.Join(cfg.OutputDir, statsfile.FileName(pol.Code))
	if err := statsfile.Write(outPath, summary.Trace, summary.Completed); err != nil {
		return errors.Wrap(err, "scheduler")
	}

	meanTurnaround, meanWaiting := meansOf(summary.Completed)
	obs.RunFinished(time.Since(start).Seconds(), meanTurnaround, meanWaiting)

	_ = bus.SendLine(cfg.Host, cfg.ClockPort, bus.SchedulerDoneLine)
	_ = bus.SendLine(cfg.Host, cfg.EmitterPort, bus.SchedulerDoneLine)

	log.WithFields(logrus.Fields{
		"policy":          pol.Code,
		"tasks_completed": len(summary.Completed),
		"trace_length":    len(summary.Trace),
		"mean_turnaround": meanTurnaround,
		"mean_waiting":    meanWaiting,
		"output":          outPath,
	}).Info("scheduler: simulation complete")

	return nil
}
