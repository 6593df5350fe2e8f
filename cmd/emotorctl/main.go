// Command emotorctl drives an encoder-motor board from a Linux host over I²C.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagBus      = "bus"
	flagBusHz    = "bus-hz"
	flagAddr     = "addr"
	flagStrict   = "strict"
	flagLogLevel = "log-level"
	flagConfig   = "config"
	flagDevice   = "device"
	flagPosition = "position"
	flagRatio    = "ratio"
	flagPPR      = "ppr"
	flagBLevel   = "b-level"
	flagRampMs   = "ramp-ms"
	flagRPM      = "rpm"
)

func main() {
	var logger *zap.SugaredLogger

	app := &cli.App{
		Name:  "emotorctl",
		Usage: "control a 4-channel encoder-motor board over I²C",
		Flags: globalFlags(),
		Before: func(c *cli.Context) error {
			l, err := newLogger(c.String(flagLogLevel))
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: commands(func() *zap.SugaredLogger { return logger }),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "emotorctl:", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagBus,
			Usage: "I²C bus name or number; empty picks the first bus",
		},
		&cli.IntFlag{
			Name:  flagBusHz,
			Usage: "bus clock in Hz; 0 leaves it unchanged",
		},
		&cli.UintFlag{
			Name:  flagAddr,
			Value: 0x09,
			Usage: "7-bit board address; overrides the config file",
		},
		&cli.BoolFlag{
			Name:  flagStrict,
			Usage: "fail queries on short reads instead of zero-filling; overrides the config file",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Value: "info",
			Usage: "debug, info, warn or error",
		},
	}
}
