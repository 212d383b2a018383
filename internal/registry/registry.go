// Package registry publishes a run's live status to Redis: ephemeral,
// short-TTL state a dashboard can poll without touching the durable
// archive — the one thing a scheduler run needs to publish: am I still
// running, and what does it look like so far.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this package writes, so a shared Redis
// instance can host schedsim alongside other tenants.
const keyPrefix = "schedsim:run:"

// TTL is how long a run's summary survives after its last write, absent a
// keep-alive from a still-running simulation.
const TTL = 1 * time.Hour

// Summary is the live-status document one run publishes.
type Summary struct {
	RunID          string `json:"run_id"`
	Policy         string `json:"policy"`
	Tick           int    `json:"tick"`
	ReadyCount     int    `json:"ready_count"`
	CompletedCount int    `json:"completed_count"`
	Finished       bool   `json:"finished"`
}

// Recorder is what the run loop needs from a registry backend — kept
// small and interface-first so tests can fake it without a Redis server.
type Recorder interface {
	Publish(ctx context.Context, s Summary) error
	Fetch(ctx context.Context, runID string) (Summary, bool, error)
	Close() error
}

// Redis is the production Recorder, backed by a single redis.Client.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr/db, verifying reachability with a bounded
// Ping before returning — failing fast here beats discovering a bad
// address on the first run's first tick.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "registry: ping %s", addr)
	}
	return &Redis{client: client}, nil
}

// Publish writes s under its run key with TTL, refreshing the expiry on
// every call so a long run never goes stale mid-flight.
func (r *Redis) Publish(ctx context.Context, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "registry: marshal summary")
	}
	if err := r.client.Set(ctx, keyPrefix+s.RunID, data, TTL).Err(); err != nil {
		return errors.Wrapf(err, "registry: set %s", s.RunID)
	}
	return nil
}

// Fetch reads the most recently published summary for runID. ok is false
// if the key has expired or was never written.
func (r *Redis) Fetch(ctx context.Context, runID string) (Summary, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, errors.Wrapf(err, "registry: get %s", runID)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, false, errors.Wrap(err, "registry: unmarshal summary")
	}
	return s, true, nil
}

func (r *Redis) Close() error { return r.client.Close() }

var _ Recorder = (*Redis)(nil)

// NullRecorder discards every summary — the default when no registry
// address is configured — the registry is opt-in.
type NullRecorder struct{}

func (NullRecorder) Publish(context.Context, Summary) error { return nil }
func (NullRecorder) Fetch(context.Context, string) (Summary, bool, error) {
	return Summary{}, false, fmt.Errorf("registry: no backend configured")
}
func (NullRecorder) Close() error { return nil }

var _ Recorder = NullRecorder{}
