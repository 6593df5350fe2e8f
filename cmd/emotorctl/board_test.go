package main

import (
	"io"
	"testing"

	"github.com/urfave/cli/v2"

	"encodermotor-go/drivers/encodermotor"
)

// runBoardConfig parses args with the real global flags and returns what
// boardConfig makes of base.
func runBoardConfig(t *testing.T, base encodermotor.Config, args ...string) (encodermotor.Config, error) {
	t.Helper()
	var got encodermotor.Config
	var gotErr error
	app := &cli.App{
		Name:   "emotorctl",
		Flags:  globalFlags(),
		Writer: io.Discard,
		Commands: []*cli.Command{{
			Name: "cfg",
			Action: func(c *cli.Context) error {
				got, gotErr = boardConfig(c, base)
				return nil
			},
		}},
	}
	if err := app.Run(append(append([]string{"emotorctl"}, args...), "cfg")); err != nil {
		t.Fatal(err)
	}
	return got, gotErr
}

func TestBoardConfigFlagPrecedence(t *testing.T) {
	fromFile := encodermotor.Config{Address: 0x22, StrictReads: true}

	got, err := runBoardConfig(t, fromFile)
	if err != nil || got.Address != 0x22 || !got.StrictReads {
		t.Fatalf("unset flags must keep file values: %+v err=%v", got, err)
	}

	got, err = runBoardConfig(t, fromFile, "--addr", "0x10", "--strict=false")
	if err != nil || got.Address != 0x10 || got.StrictReads {
		t.Fatalf("flags must override: %+v err=%v", got, err)
	}

	got, err = runBoardConfig(t, encodermotor.Config{})
	if err != nil || got.Address != encodermotor.DefaultAddress {
		t.Fatalf("zero base takes flag default: %+v err=%v", got, err)
	}

	if _, err := runBoardConfig(t, fromFile, "--addr", "200"); err == nil {
		t.Fatal("8-bit address accepted")
	}
}
