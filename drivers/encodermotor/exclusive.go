package encodermotor

import "sync"

// Exclusive is the access token for a Board shared between goroutines.
// Board and Channel never lock; holders of an Exclusive call into them only
// inside Do or between Acquire and the returned release.
type Exclusive struct {
	mu sync.Mutex
	b  *Board
}

// NewExclusive guards b. All callers of b must go through the same Exclusive.
func NewExclusive(b *Board) *Exclusive {
	return &Exclusive{b: b}
}

// Acquire blocks until the board is free and returns it with a release
// function that must be called exactly once.
func (e *Exclusive) Acquire() (*Board, func()) {
	e.mu.Lock()
	var once sync.Once
	return e.b, func() { once.Do(e.mu.Unlock) }
}

// Do runs fn while holding the board.
func (e *Exclusive) Do(fn func(b *Board) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.b)
}
