// Package clock implements the Clock component: once armed,
// it publishes a monotonically increasing tick to the Emitter, waits a
// short intra-tick delay, then publishes the same tick to the Scheduler,
// before incrementing. Unarmed, it idles.
package clock

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/coredump/schedsim/internal/bus"
)

// Config controls tick pacing.
type Config struct {
	// Period is the wall-clock duration of one simulated tick (~100ms,
	// ~100ms).
	Period time.Duration
	// IntraTickDelay separates the Emitter publish from the Scheduler
	// publish within the same tick (~5ms).
	IntraTickDelay time.Duration
	// Speed multiplies the tick rate; 1.0 reproduces the reference
	// period exactly. Expressing pacing as a rate.Limiter (rather than a
	// bare time.Ticker) makes this a one-line knob.
	Speed float64
}

// DefaultConfig reproduces the reference timings.
func DefaultConfig() Config {
	return Config{Period: 100 * time.Millisecond, IntraTickDelay: 5 * time.Millisecond, Speed: 1.0}
}

// Clock is the collapsed, in-process implementation used by `schedsim run`.
type Clock struct {
	cfg     Config
	limiter *rate.Limiter
	log     *logrus.Logger
}

// New builds a Clock paced at cfg.Period/cfg.Speed.
func New(cfg Config, log *logrus.Logger) *Clock {
	period := cfg.Period
	if cfg.Speed > 0 {
		period = time.Duration(float64(period) / cfg.Speed)
	}
	if period <= 0 {
		period = time.Microsecond
	}
	return &Clock{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(period), 1),
		log:     log,
	}
}

// Run arms the clock and drives it until ctx is cancelled or b observes
// shutdown. It is the caller's goroutine to run (the Clock suspends
// on its period timer and the intra-tick delay; ctx cancellation is this
// implementation's analogue of the STOP signal).
func (c *Clock) Run(ctx context.Context, b *bus.InProcess) {
	shutdown := make(chan struct{})
	go func() {
		b.RecvShutdownForClock()
		close(shutdown)
	}()

	for t := 0; ; t++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := b.SendTickToEmitter(bus.Tick{T: t}); err != nil {
			c.log.WithError(err).Debug("clock: tick publish to emitter failed, peer is responsible for its own liveness")
			return
		}

		select {
		case <-time.After(c.cfg.IntraTickDelay):
		case <-ctx.Done():
			return
		}

		if err := b.SendTickToScheduler(bus.Tick{T: t}); err != nil {
			c.log.WithError(err).Debug("clock: tick publish to scheduler failed")
			return
		}
	}
}
