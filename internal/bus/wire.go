package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/coredump/schedsim/internal/task"
)

// Endpoints holds the default loopback ports for the three-process
// deployment.
type Endpoints struct {
	Host          string
	ClockPort     int
	EmitterPort   int
	SchedulerPort int
}

// DefaultEndpoints returns clock=4000, emitter=4001, scheduler=4002 on
// loopback.
func DefaultEndpoints() Endpoints {
	return Endpoints{Host: "localhost", ClockPort: 4000, EmitterPort: 4001, SchedulerPort: 4002}
}

// pollTimeout bounds how long a listener's Accept call waits before
// re-checking for cancellation — the networked mode's analogue of the
// in-process bus's ctx.Done() select.
const pollTimeout = 100 * time.Millisecond

// SendLine opens a connection, writes line terminated by \n, and closes —
// one message per connection, connect-send-close. A dial/write failure is
// the caller's to log and ignore: the transport is best-effort by design.
func SendLine(host string, port int, line string) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		return fmt.Errorf("bus: dial %s:%d: %w", host, port, err)
	}
	defer conn.Close()
	_, err = fmt.Fprintf(conn, "%s\n", line)
	return err
}

// LineServer accepts one connection at a time, reads a single line from
// each, and invokes onLine. It stops when stop is closed.
type LineServer struct {
	ln net.Listener
}

// Listen binds port on host.
func Listen(host string, port int) (*LineServer, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("bus: listen %s:%d: %w", host, port, err)
	}
	return &LineServer{ln: ln}, nil
}

// Serve accepts connections until stop is closed, calling onLine with the
// first line of each. Accept is polled with a short timeout so callers can
// observe stop promptly without blocking indefinitely.
func (s *LineServer) Serve(stop <-chan struct{}, onLine func(string)) {
	type tcpListener interface {
		SetDeadline(time.Time) error
	}
	for {
		select {
		case <-stop:
			return
		default:
		}
		if tl, ok := s.ln.(tcpListener); ok {
			_ = tl.SetDeadline(time.Now().Add(pollTimeout))
		}
		conn, err := s.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		line, err := bufio.NewReader(conn).ReadString('\n')
		conn.Close()
		if err != nil && line == "" {
			continue
		}
		onLine(strings.TrimRight(line, "\n\r"))
	}
}

// Close releases the listening endpoint.
func (s *LineServer) Close() error { return s.ln.Close() }

// --- wire message encoding ---

const (
	clockPrefix = "CLOCK: "

	// StartClockLine is sent by the standalone Emitter to the Clock's
	// listening port once its manifest is loaded, arming the Clock.
	StartClockLine = "EMISSOR: INICIAR CLOCK"
	msgStartClock  = StartClockLine

	// SchedulerDoneLine is sent by the standalone Scheduler to the Clock's
	// and Emitter's listening ports on full drain.
	SchedulerDoneLine = "ESCALONADOR: ENCERRADO"
	msgSchedulerDone  = SchedulerDoneLine
)

type wireThread struct {
	ID             string `json:"id"`
	TempoIngresso  int    `json:"tempo_ingresso"`
	DuracaoPrevista int   `json:"duracao_prevista"`
	Prioridade     int    `json:"prioridade"`
}

type wireNewThread struct {
	Type   string     `json:"type"`
	Thread wireThread `json:"thread"`
}

type wireTasksDone struct {
	Type string `json:"type"`
}

// EncodeTick renders "CLOCK: <n>".
func EncodeTick(t int) string { return clockPrefix + strconv.Itoa(t) }

// DecodeTick parses "CLOCK: <n>"; ok is false if line isn't a tick line.
func DecodeTick(line string) (t int, ok bool) {
	if !strings.HasPrefix(line, clockPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, clockPrefix)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// EncodeNewTask renders the NEW_THREAD JSON line for a task.
func EncodeNewTask(t *task.Task) string {
	b, _ := json.Marshal(wireNewThread{
		Type: "NEW_THREAD",
		Thread: wireThread{
			ID:              t.ID,
			TempoIngresso:   t.Arrival,
			DuracaoPrevista: t.DurationTotal,
			Prioridade:      t.PriorityStatic,
		},
	})
	return string(b)
}

// EncodeTasksDone renders the TAREFAS_FINALIZADAS JSON line.
func EncodeTasksDone() string {
	b, _ := json.Marshal(wireTasksDone{Type: "TAREFAS_FINALIZADAS"})
	return string(b)
}

// DecodeMessage classifies an inbound line as a new task, a tasks-done
// sentinel, or neither (control lines are matched directly by callers). The
// returned task's AdmissionSeq is always zero: the wire JSON carries no
// sequence field, so the caller accumulating tasks into a batch is
// responsible for assigning a monotonic AdmissionSeq before the task ever
// reaches a ReadyQueue, the same way manifest.Manifest.Drain does for the
// in-process path.
func DecodeMessage(line string) (nt *task.Task, done bool) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return nil, false
	}
	switch probe.Type {
	case "NEW_THREAD":
		var m wireNewThread
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, false
		}
		t := task.New(m.Thread.ID, m.Thread.TempoIngresso, m.Thread.DuracaoPrevista, m.Thread.Prioridade)
		return t, false
	case "TAREFAS_FINALIZADAS":
		return nil, true
	}
	return nil, false
}
