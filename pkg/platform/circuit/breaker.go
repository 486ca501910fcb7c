// Package circuit tracks whether a dependency is currently failing.
//
// Admission services feed it the outcome of every shared-store call to learn
// when they are serving from local fallback state. It only reports: callers
// still attempt the store on every call.
package circuit

import "sync"

type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange is set on the call that flipped the breaker.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker opens after failureThreshold consecutive failures and closes again
// after successThreshold consecutive successes.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int

	mu     sync.Mutex
	state  State
	streak int // consecutive outcomes that push toward the other state
}

type Option func(*Breaker)

// WithFailureThreshold defaults to 1: the first store error degrades.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold defaults to 1.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, failureThreshold: 1, successThreshold: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Observe records one call outcome; a nil err is a success.
func (b *Breaker) Observe(err error) StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil
	// outcomes agreeing with the current state reset the streak
	if failed == (b.state == StateOpen) {
		b.streak = 0
		return StateChange{}
	}
	b.streak++
	switch {
	case failed && b.streak >= b.failureThreshold:
		b.state, b.streak = StateOpen, 0
		return StateChange{Opened: true}
	case !failed && b.streak >= b.successThreshold:
		b.state, b.streak = StateClosed, 0
		return StateChange{Closed: true}
	}
	return StateChange{}
}
