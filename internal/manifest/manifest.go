// Package manifest loads the task workload the Emitter releases over
// simulated time: the mandatory semicolon-delimited text format, plus an
// equivalent YAML form as a convenience.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/coredump/schedsim/internal/task"
)

// Entry is one manifest line, not yet admitted into the simulation.
type Entry struct {
	ID       string `yaml:"id"`
	Arrival  int    `yaml:"arrival"`
	Duration int    `yaml:"duration"`
	Priority int    `yaml:"priority"`
}

// Manifest groups entries by arrival tick, in manifest order within each
// tick, as the Emitter needs to preserve manifest order among same-tick
// arrivals.
type Manifest struct {
	byArrival map[int][]Entry
	admitSeq  int
}

// Load reads path, choosing the YAML decoder for .yaml/.yml extensions and
// the canonical text decoder otherwise. A missing file is fatal at the
// Emitter, with non-zero exit; Load only reports the error, it does not
// exit.
func Load(path string, log *logrus.Logger) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		entries, err = decodeYAML(f)
	} else {
		entries, err = decodeText(f, log)
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{byArrival: make(map[int][]Entry)}
	for _, e := range entries {
		m.byArrival[e.Arrival] = append(m.byArrival[e.Arrival], e)
	}
	return m, nil
}

func decodeYAML(r io.Reader) ([]Entry, error) {
	var doc struct {
		Tasks []Entry `yaml:"tasks"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest: decode yaml: %w", err)
	}
	return doc.Tasks, nil
}

// decodeText parses "id;arrival;duration;priority" lines. Blank lines and
// malformed lines are skipped with a warning, never fatal.
func decodeText(r io.Reader, log *logrus.Logger) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			if log != nil {
				log.Warnf("manifest: skipping malformed line %d: %v", lineNo, err)
			}
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Split(line, ";")
	if len(fields) != 4 {
		return Entry{}, fmt.Errorf("want 4 fields id;arrival;duration;priority, got %d", len(fields))
	}
	id := strings.TrimSpace(fields[0])
	if id == "" {
		return Entry{}, fmt.Errorf("empty id")
	}
	arrival, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil || arrival < 0 {
		return Entry{}, fmt.Errorf("invalid arrival %q", fields[1])
	}
	duration, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || duration <= 0 {
		return Entry{}, fmt.Errorf("invalid duration %q", fields[2])
	}
	priority, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return Entry{}, fmt.Errorf("invalid priority %q", fields[3])
	}
	return Entry{ID: id, Arrival: arrival, Duration: duration, Priority: priority}, nil
}

// Empty reports whether every arrival tick has been drained.
func (m *Manifest) Empty() bool { return len(m.byArrival) == 0 }

// Drain removes and returns, as newly constructed Tasks with stable
// admission sequence numbers, every entry whose arrival equals tick.
func (m *Manifest) Drain(tick int) []*task.Task {
	entries, ok := m.byArrival[tick]
	if !ok {
		return nil
	}
	delete(m.byArrival, tick)

	tasks := make([]*task.Task, 0, len(entries))
	for _, e := range entries {
		t := task.New(e.ID, e.Arrival, e.Duration, e.Priority)
		t.AdmissionSeq = m.admitSeq
		m.admitSeq++
		tasks = append(tasks, t)
	}
	return tasks
}

// ArrivalTicks returns every remaining arrival tick, ascending — used by
// tests to inspect what ticks still matter.
func (m *Manifest) ArrivalTicks() []int {
	ticks := make([]int, 0, len(m.byArrival))
	for t := range m.byArrival {
		ticks = append(ticks, t)
	}
	sort.Ints(ticks)
	return ticks
}
