package endpoints

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
)

const (
	stateStopped  = "stopped"
	stateStarting = "starting"
	stateRunning  = "running"
	stateStopping = "stopping"

	eventStart   = "start"
	eventStarted = "started"
	eventStop    = "stop"
	eventStopped = "stopped"
)

// lifecycle guards a driver worker's stopped -> starting -> running -> stopping -> stopped
// transitions with a validated state machine instead of a bare boolean flag, so concurrent
// ApplyConfig/StopAll calls race on explicit transitions rather than an ambiguous "is it
// running" bit.
type lifecycle struct {
	mu  sync.Mutex
	fsm *fsm.FSM
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		fsm: fsm.NewFSM(
			stateStopped,
			fsm.Events{
				{Name: eventStart, Src: []string{stateStopped}, Dst: stateStarting},
				{Name: eventStarted, Src: []string{stateStarting}, Dst: stateRunning},
				{Name: eventStop, Src: []string{stateStarting, stateRunning}, Dst: stateStopping},
				{Name: eventStopped, Src: []string{stateStopping}, Dst: stateStopped},
			},
			nil,
		),
	}
}

// tryStart attempts the stopped -> starting transition, reporting whether the caller won the
// race and must spawn the worker goroutine.
func (l *lifecycle) tryStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fsm.Event(context.Background(), eventStart) == nil
}

// markRunning completes the starting -> running transition; called from inside the worker
// goroutine once it has actually started selecting.
func (l *lifecycle) markRunning() {
	l.mu.Lock()
	_ = l.fsm.Event(context.Background(), eventStarted)
	l.mu.Unlock()
}

// tryStop attempts the starting/running -> stopping transition, reporting whether the
// caller must signal and wait for the worker. Stopping from starting is allowed so a
// StopAll racing a fresh ApplyConfig still tears the worker down instead of leaking it.
func (l *lifecycle) tryStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fsm.Event(context.Background(), eventStop) == nil
}

// markStopped completes the stopping -> stopped transition once the worker has exited.
func (l *lifecycle) markStopped() {
	l.mu.Lock()
	_ = l.fsm.Event(context.Background(), eventStopped)
	l.mu.Unlock()
}

// Running reports whether a worker goroutine exists, in any state short of fully stopped.
func (l *lifecycle) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fsm.Current() != stateStopped
}
