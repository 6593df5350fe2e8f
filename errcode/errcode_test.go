package errcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"encodermotor-go/drivers/encodermotor"
)

func TestOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{InvalidParams, InvalidParams},
		{fmt.Errorf("ctx: %w", UnknownVerb), UnknownVerb},
		{&E{C: InvalidParams, Op: "move"}, InvalidParams},
		{fmt.Errorf("poll: %w", &E{C: Timeout}), Timeout},
		{&encodermotor.ShortReadError{Op: encodermotor.OpGetCurrentSpeed, Want: 4}, ShortRead},
		{encodermotor.ErrNotInitialized, NotInitialized},
		{errors.New("i2c: nack"), BusFault},
		{fmt.Errorf("i2c: %w", os.ErrDeadlineExceeded), Timeout},
		{context.DeadlineExceeded, Timeout},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Errorf("Of(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(BusFault, "stop", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	cause := errors.New("nack")
	err := Wrap(BusFault, "stop", cause)
	if !errors.Is(err, cause) || Of(err) != BusFault {
		t.Fatalf("wrapped error lost cause or code: %v", err)
	}
	if err.Error() != "stop: bus_fault: nack" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
