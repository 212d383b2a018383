// Command schedsim is the discrete-time CPU-scheduling simulator: a single
// Cobra binary that can either run Clock, Emitter and Scheduler as
// goroutines inside one process (`run`) or as the three standalone
// programs of the original deployment (`clock`, `emitter`, `scheduler`),
// talking over the wire protocol in internal/bus/wire.go.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
