package service

import (
	"sync"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type FenceState string

const (
	StateInside  FenceState = "INSIDE"
	StateOutside FenceState = "OUTSIDE"
)

func stateOf(inside bool) FenceState {
	if inside {
		return StateInside
	}
	return StateOutside
}

type Transition struct {
	Fired bool
	From  FenceState
	To    FenceState
}

func (t Transition) Direction() domain.Direction {
	if t.To == StateOutside {
		return domain.DirectionLeft
	}
	return domain.DirectionEntered
}

type transitionKey struct {
	bikeID    string
	sessionID string
}

// TransitionDetector remembers the last containment state of every
// (bike, session) pair and reports edges. Observe mutates that memory, so it
// must be called once per bike, session and sample.
type TransitionDetector struct {
	mu     sync.Mutex
	states map[transitionKey]FenceState
}

func NewTransitionDetector() *TransitionDetector {
	return &TransitionDetector{states: make(map[transitionKey]FenceState)}
}

// Observe records the new containment of bikeID against sessionID. The first
// observation of a pair seeds the state and never fires.
func (d *TransitionDetector) Observe(bikeID, sessionID string, inside bool) Transition {
	key := transitionKey{bikeID: bikeID, sessionID: sessionID}
	next := stateOf(inside)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, seen := d.states[key]
	if !seen {
		d.states[key] = next
		return Transition{From: next, To: next}
	}
	if prev == next {
		return Transition{From: prev, To: next}
	}

	d.states[key] = next
	return Transition{Fired: true, From: prev, To: next}
}

func (d *TransitionDetector) State(bikeID, sessionID string) (FenceState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.states[transitionKey{bikeID: bikeID, sessionID: sessionID}]
	return s, ok
}

// ForgetBike drops every entry of bikeID and returns how many were removed.
func (d *TransitionDetector) ForgetBike(bikeID string) int {
	return d.sweep(func(k transitionKey) bool { return k.bikeID == bikeID })
}

// ForgetSession drops every entry of sessionID and returns how many were removed.
func (d *TransitionDetector) ForgetSession(sessionID string) int {
	return d.sweep(func(k transitionKey) bool { return k.sessionID == sessionID })
}

func (d *TransitionDetector) sweep(match func(transitionKey) bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for k := range d.states {
		if match(k) {
			delete(d.states, k)
			n++
		}
	}
	return n
}

func (d *TransitionDetector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states)
}
