// Package ramp steps a signed set-point towards a target in equal increments.
package ramp

import (
	"time"

	"encodermotor-go/x/mathx"
)

// Step applies the next set-point.
type Step func(v int16) error

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear moves from cur to to over duration in steps increments, calling set
// after each tick. The last call always sets exactly to. steps==0 or
// duration==0 snaps to 'to'. The first error from set stops the ramp.
func Linear(cur, to int16, duration time.Duration, steps int, tick Tick, set Step) error {
	if steps <= 0 || duration <= 0 {
		return set(to)
	}
	stepDur := max(duration/time.Duration(steps), time.Millisecond)

	d := int64(to) - int64(cur)
	for i := 1; i < steps; i++ {
		if !tick(stepDur) {
			return nil
		}
		v := int64(cur) + d*int64(i)/int64(steps)
		if err := set(mathx.Saturate[int16](v)); err != nil {
			return err
		}
	}
	if !tick(stepDur) {
		return nil
	}
	return set(to)
}

// Sleep is a Tick that never cancels.
func Sleep(d time.Duration) bool {
	time.Sleep(d)
	return true
}
