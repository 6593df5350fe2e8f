package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/x/mathx"
	"encodermotor-go/x/ramp"
)

type boardAction func(c *cli.Context, b *encodermotor.Board, log *zap.SugaredLogger) error

func commands(logger func() *zap.SugaredLogger) []*cli.Command {
	with := func(fn boardAction) cli.ActionFunc {
		return func(c *cli.Context) (err error) {
			log := logger()
			cfg, err := boardConfig(c, encodermotor.DefaultConfig())
			if err != nil {
				return err
			}
			b, closeBus, err := openBoard(c, log, cfg)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeBus()) }()
			return fn(c, b, log)
		}
	}
	// onChannel runs fn on the channel named by the first argument.
	onChannel := func(fn func(c *cli.Context, ch *encodermotor.Channel) error) cli.ActionFunc {
		return with(func(c *cli.Context, b *encodermotor.Board, _ *zap.SugaredLogger) error {
			i, err := channelArg(c)
			if err != nil {
				return err
			}
			return fn(c, b.Channel(i))
		})
	}

	return []*cli.Command{
		{
			Name:  "version",
			Usage: "print the firmware version",
			Action: with(func(c *cli.Context, b *encodermotor.Board, _ *zap.SugaredLogger) error {
				v, err := b.Version()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, v)
				return nil
			}),
		},
		{
			Name:  "status",
			Usage: "print pwm, speed, position and target state of every channel",
			Action: with(func(c *cli.Context, b *encodermotor.Board, _ *zap.SugaredLogger) error {
				var errs error
				for i, ch := range b.All() {
					pwm, e1 := ch.CurrentPWM()
					rpm, e2 := ch.CurrentSpeed()
					pos, e3 := ch.CurrentPosition()
					done, e4 := ch.IsTargetPositionReached()
					if err := multierr.Combine(e1, e2, e3, e4); err != nil {
						errs = multierr.Append(errs, fmt.Errorf("channel %d: %w", i, err))
						continue
					}
					fmt.Fprintf(c.App.Writer, "%d pwm=%d speed=%.2frpm position=%d reached=%t\n", i, pwm, rpm, pos, done)
				}
				return errs
			}),
		},
		{
			Name:      "reset",
			Usage:     "reset a channel",
			ArgsUsage: "<channel>",
			Action:    onChannel(func(_ *cli.Context, ch *encodermotor.Channel) error { return ch.Reset() }),
		},
		{
			Name:      "stop",
			Usage:     "stop a channel, or every channel with --all",
			ArgsUsage: "[channel]",
			Flags:     []cli.Flag{&cli.BoolFlag{Name: "all"}},
			Action: with(func(c *cli.Context, b *encodermotor.Board, _ *zap.SugaredLogger) error {
				if c.Bool("all") {
					var errs error
					for _, ch := range b.All() {
						errs = multierr.Append(errs, ch.Stop())
					}
					return errs
				}
				i, err := channelArg(c)
				if err != nil {
					return err
				}
				return b.Channel(i).Stop()
			}),
		},
		{
			Name:      "pwm",
			Usage:     "drive a channel open-loop",
			ArgsUsage: "<channel> <pwm -255..255>",
			Action: onChannel(func(c *cli.Context, ch *encodermotor.Channel) error {
				v, err := intArg(c, 1, "pwm")
				if err != nil {
					return err
				}
				return ch.RunPWM(mathx.Saturate[int16](v))
			}),
		},
		{
			Name:      "speed",
			Usage:     "run a channel at a closed-loop speed",
			ArgsUsage: "<channel> <rpm>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: flagRampMs, Usage: "ramp from the current speed over this many ms"},
			},
			Action: onChannel(func(c *cli.Context, ch *encodermotor.Channel) error {
				v, err := intArg(c, 1, "rpm")
				if err != nil {
					return err
				}
				target := mathx.Saturate[int16](v)
				ms := c.Int(flagRampMs)
				if ms <= 0 {
					return ch.RunSpeed(target)
				}
				cur, err := ch.CurrentSpeed()
				if err != nil {
					return err
				}
				steps := mathx.Clamp(ms/50, 1, 100)
				return ramp.Linear(mathx.Saturate[int16](int64(cur)), target,
					time.Duration(ms)*time.Millisecond, steps, ramp.Sleep, ch.RunSpeed)
			}),
		},
		moveCommand("move", "move a channel by a relative angle", false, onChannel),
		moveCommand("move-to", "move a channel to an absolute angle", true, onChannel),
		{
			Name:  "pid",
			Usage: "read or write PID gains",
			Subcommands: []*cli.Command{
				{
					Name:      "get",
					ArgsUsage: "<channel>",
					Flags:     []cli.Flag{&cli.BoolFlag{Name: flagPosition, Usage: "position loop instead of speed"}},
					Action: onChannel(func(c *cli.Context, ch *encodermotor.Channel) error {
						get := ch.SpeedPID
						if c.Bool(flagPosition) {
							get = ch.PositionPID
						}
						pid, err := get()
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "p=%.2f i=%.2f d=%.2f\n", pid.P, pid.I, pid.D)
						return nil
					}),
				},
				{
					Name:      "set",
					ArgsUsage: "<channel>",
					Flags: []cli.Flag{
						&cli.BoolFlag{Name: flagPosition, Usage: "position loop instead of speed"},
						&cli.Float64Flag{Name: "p", Required: true},
						&cli.Float64Flag{Name: "i", Required: true},
						&cli.Float64Flag{Name: "d", Required: true},
					},
					Action: onChannel(func(c *cli.Context, ch *encodermotor.Channel) error {
						set := ch.SetSpeedPID
						if c.Bool(flagPosition) {
							set = ch.SetPositionPID
						}
						return set(float32(c.Float64("p")), float32(c.Float64("i")), float32(c.Float64("d")))
					}),
				},
			},
		},
		{
			Name:      "calibrate",
			Usage:     "write calibration; without flags prints the current values",
			ArgsUsage: "<channel>",
			Flags: []cli.Flag{
				&cli.UintFlag{Name: flagRatio, Usage: "gear reduction ratio"},
				&cli.UintFlag{Name: flagPPR, Usage: "encoder pulses per revolution"},
				&cli.UintFlag{Name: flagBLevel, Usage: "B-phase level for forward rotation (0 or 1)"},
				&cli.Int64Flag{Name: flagPosition, Usage: "overwrite the position counter (degrees)"},
			},
			Action: onChannel(calibrate),
		},
		serveCommand(logger),
	}
}

func moveCommand(name, usage string, absolute bool,
	onChannel func(func(*cli.Context, *encodermotor.Channel) error) cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<channel> <degrees>",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: flagRPM, Value: 100, Usage: "move speed, must be > 0"},
			&cli.BoolFlag{Name: "wait", Usage: "poll until the target is reached"},
		},
		Action: onChannel(func(c *cli.Context, ch *encodermotor.Channel) error {
			deg, err := intArg(c, 1, "degrees")
			if err != nil {
				return err
			}
			rpm := mathx.SaturateU[uint16](int64(c.Uint(flagRPM)))
			if rpm == 0 {
				return errors.New("rpm must be > 0")
			}
			pos := mathx.Saturate[int32](deg)
			if absolute {
				err = ch.MoveTo(pos, rpm)
			} else {
				err = ch.MovePosition(pos, rpm)
			}
			if err != nil || !c.Bool("wait") {
				return err
			}
			for {
				time.Sleep(100 * time.Millisecond)
				done, err := ch.IsTargetPositionReached()
				if err != nil || done {
					return err
				}
			}
		}),
	}
}

func calibrate(c *cli.Context, ch *encodermotor.Channel) error {
	u8 := func(name string) (uint8, error) {
		v := c.Uint(name)
		if v > 0xFF {
			return 0, fmt.Errorf("--%s out of range", name)
		}
		return uint8(v), nil
	}

	var errs error
	wrote := false
	if c.IsSet(flagRatio) {
		wrote = true
		if v, err := u8(flagRatio); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			errs = multierr.Append(errs, ch.SetReductionRatio(v))
		}
	}
	if c.IsSet(flagPPR) {
		wrote = true
		if v, err := u8(flagPPR); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			errs = multierr.Append(errs, ch.SetPulsesPerRevolution(v))
		}
	}
	if c.IsSet(flagBLevel) {
		if c.Uint(flagBLevel) > 1 {
			errs = multierr.Append(errs, errors.New("--b-level must be 0 or 1"))
		} else {
			errs = multierr.Append(errs, ch.SetPositiveBLevel(uint8(c.Uint(flagBLevel))))
		}
		wrote = true
	}
	if c.IsSet(flagPosition) {
		errs = multierr.Append(errs, ch.SetCurrentPosition(mathx.Saturate[int32](c.Int64(flagPosition))))
		wrote = true
	}
	if wrote {
		return errs
	}

	ratio, e1 := ch.ReductionRatio()
	ppr, e2 := ch.PulsesPerRevolution()
	bl, e3 := ch.PositiveBLevel()
	if err := multierr.Combine(e1, e2, e3); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "ratio=%d ppr=%d b-level=%d\n", ratio, ppr, bl)
	return nil
}
