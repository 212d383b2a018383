// Package statsfile renders a completed run into the statistics
// file: the execution trace, the completed ledger sorted by id, and the
// mean turnaround/waiting pair, ceiling-rounded to one decimal place.
package statsfile

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/coredump/schedsim/internal/task"
)

// FileName returns "algoritmo_<policy>.txt", the canonical output name for
// a run under policy code.
func FileName(policyCode string) string {
	return fmt.Sprintf("algoritmo_%s.txt", policyCode)
}

// Write renders trace and completed (already sorted by id, as
// scheduler.Summary guarantees) to path in the exact layout:
//
//	<trace tokens, semicolon-separated, trailing semicolon>
//	<blank line>
//	id;arrival;finish;turnaround;waiting
//	...
//	mean_turnaround;mean_waiting
func Write(path string, trace []string, completed []task.CompletedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "statsfile: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	for _, id := range trace {
		if _, err := fmt.Fprintf(w, "%s;", id); err != nil {
			return errors.Wrap(err, "statsfile: write trace")
		}
	}
	if _, err := fmt.Fprint(w, "\n\n"); err != nil {
		return errors.Wrap(err, "statsfile: write trace separator")
	}

	var turnaroundSum, waitingSum int
	for _, c := range completed {
		if _, err := fmt.Fprintf(w, "%s;%d;%d;%d;%d\n", c.ID, c.Arrival, c.Finish, c.Turnaround, c.Waiting); err != nil {
			return errors.Wrap(err, "statsfile: write completed line")
		}
		turnaroundSum += c.Turnaround
		waitingSum += c.Waiting
	}

	meanTurnaround, meanWaiting := "0.0", "0.0"
	if n := len(completed); n > 0 {
		meanTurnaround = ceilToOneDecimal(float64(turnaroundSum) / float64(n))
		meanWaiting = ceilToOneDecimal(float64(waitingSum) / float64(n))
	}
	if _, err := fmt.Fprintf(w, "%s;%s\n", meanTurnaround, meanWaiting); err != nil {
		return errors.Wrap(err, "statsfile: write means")
	}

	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "statsfile: flush %s", path)
	}
	return nil
}

// ceilToOneDecimal implements "ceiling of mean × 10 ÷ 10,
// printed with exactly one decimal" — note this rounds up even when the
// mean is already exact to one decimal plus a negligible float remainder,
// and it rounds toward +Infinity for negative means too, though waiting
// and turnaround are never negative in practice.
func ceilToOneDecimal(mean float64) string {
	return fmt.Sprintf("%.1f", math.Ceil(mean*10)/10)
}
