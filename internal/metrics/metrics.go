// Package metrics exposes the Scheduler's per-tick behavior as Prometheus
// instrumentation: one package-level promauto variable per signal, labeled
// by policy so a single scrape target can serve comparative runs of the
// same simulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksProcessed counts ticks the Scheduler has consumed, by policy.
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_ticks_processed_total",
		Help: "Total number of ticks processed by the scheduler",
	}, []string{"policy"})

	// ReadyQueueDepth tracks how many tasks are waiting, sampled each tick.
	ReadyQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedsim_ready_queue_depth",
		Help: "Current number of tasks in the ready queue",
	}, []string{"policy"})

	// CPUBusy is 1 while the running slot is occupied, 0 while idle.
	CPUBusy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedsim_cpu_busy",
		Help: "1 if the running slot is occupied this tick, 0 otherwise",
	}, []string{"policy"})

	// Dispatches counts Ready -> Running transitions.
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_dispatches_total",
		Help: "Total number of tasks moved into the running slot",
	}, []string{"policy"})

	// Preemptions counts Running -> Ready transitions forced by the policy.
	Preemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_preemptions_total",
		Help: "Total number of preemptions applied",
	}, []string{"policy"})

	// TasksCompleted counts Running -> Completed transitions.
	TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_tasks_completed_total",
		Help: "Total number of tasks that reached the completed ledger",
	}, []string{"policy"})

	// RunDuration records wall-clock time of a full simulation run.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedsim_run_duration_seconds",
		Help:    "Wall-clock duration of a complete simulation run",
		Buckets: prometheus.DefBuckets,
	}, []string{"policy"})

	// MeanTurnaround and MeanWaiting publish the final statistics-file
	// summary values as gauges, so a single run's result is scrapeable
	// without parsing the output file.
	MeanTurnaround = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedsim_mean_turnaround_ticks",
		Help: "Mean turnaround time of the most recently completed run",
	}, []string{"policy"})

	MeanWaiting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedsim_mean_waiting_ticks",
		Help: "Mean waiting time of the most recently completed run",
	}, []string{"policy"})
)

// Observer batches per-tick sampling against a single policy label, so
// callers don't repeat the label on every call site.
type Observer struct {
	policy string
}

// NewObserver binds an Observer to policy's label value.
func NewObserver(policy string) *Observer {
	return &Observer{policy: policy}
}

// Tick records one processed tick and the resulting ready-queue depth and
// CPU occupancy.
func (o *Observer) Tick(readyDepth int, cpuBusy bool) {
	TicksProcessed.WithLabelValues(o.policy).Inc()
	ReadyQueueDepth.WithLabelValues(o.policy).Set(float64(readyDepth))
	busy := 0.0
	if cpuBusy {
		busy = 1.0
	}
	CPUBusy.WithLabelValues(o.policy).Set(busy)
}

func (o *Observer) Dispatch() { Dispatches.WithLabelValues(o.policy).Inc() }
func (o *Observer) Preempt()  { Preemptions.WithLabelValues(o.policy).Inc() }
func (o *Observer) Complete() { TasksCompleted.WithLabelValues(o.policy).Inc() }

// RunFinished records the run's wall-clock duration and final means.
func (o *Observer) RunFinished(seconds, meanTurnaround, meanWaiting float64) {
	RunDuration.WithLabelValues(o.policy).Observe(seconds)
	MeanTurnaround.WithLabelValues(o.policy).Set(meanTurnaround)
	MeanWaiting.WithLabelValues(o.policy).Set(meanWaiting)
}
