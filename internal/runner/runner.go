// Package runner couples the MQTT listener to the journal writer: it
// drains accepted messages from the listener and hands them to the
// writer's queue, emitting a notification whenever that drain empties
// a previously non-empty backlog.
package runner

import (
	"time"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/journal"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/lifecycle"
)

const loopStep = 50 * time.Millisecond
const busyLoopStepDivisor = 100

// Listener is the subset of mqttlistener.Listener the runner depends
// on, kept as an interface so tests can substitute a fake.
type Listener interface {
	GetMessages() []journal.Record
	EnsureConnection() error
	Close()
}

// Writer is the subset of store.Writer the runner depends on.
type Writer interface {
	Queue(records []journal.Record, writeImmediately bool)
	Close()
}

// Runner repeatedly drains the listener into the writer until the
// shared Controller signals shutdown.
type Runner struct {
	listener Listener
	writer   Writer
	ctrl     *lifecycle.Controller
}

// New builds a Runner over an already-connected listener and writer.
func New(listener Listener, writer Writer, ctrl *lifecycle.Controller) *Runner {
	return &Runner{listener: listener, writer: writer, ctrl: ctrl}
}

// Loop drains listener.GetMessages() into writer.Queue() until the
// controller's ShouldProceed() returns false, notifying
// EventRunnerQueueEmptied on each non-empty-to-empty transition (the
// signal integration tests synchronize on to know a batch has
// finished draining).
//
// Each iteration first checks EnsureConnection: a lost or never-
// established MQTT connection makes Loop fail loudly and return
// rather than spin forever on an empty drain, so the process exits
// and its supervisor can restart it.
func (r *Runner) Loop() error {
	hadMessages := false

	for r.ctrl.ShouldProceed() {
		if err := r.listener.EnsureConnection(); err != nil {
			return err
		}

		busy := false

		messages := r.listener.GetMessages()
		if len(messages) > 0 {
			hadMessages = true
			r.writer.Queue(messages, false)
			busy = true
		}

		if len(messages) == 0 && hadMessages {
			hadMessages = false
			r.ctrl.Notify(lifecycle.EventRunnerQueueEmptied)
		}

		if busy {
			r.ctrl.Sleep(loopStep / busyLoopStepDivisor)
		} else {
			r.ctrl.Sleep(loopStep)
		}
	}

	return nil
}

// Close shuts down the listener first, then the writer, so no new
// messages can arrive mid-flush.
func (r *Runner) Close() {
	r.listener.Close()
	r.writer.Close()
}
