package main

import (
	"errors"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/x/mathx"
)

// boardConfig applies --addr and --strict over base. Flags left unset keep
// the base values; a zero base address takes the --addr default.
func boardConfig(c *cli.Context, base encodermotor.Config) (encodermotor.Config, error) {
	if c.IsSet(flagAddr) || base.Address == 0 {
		addr := c.Uint(flagAddr)
		if addr == 0 || addr > 0x7F {
			return base, errors.New("address must be in 0x01..0x7f")
		}
		base.Address = mathx.SaturateU[uint8](int64(addr))
	}
	if c.IsSet(flagStrict) {
		base.StrictReads = c.Bool(flagStrict)
	}
	return base, nil
}

// openBoard brings up the host I²C bus and initialises a board built from
// cfg. The returned close func releases the bus.
func openBoard(c *cli.Context, log *zap.SugaredLogger, cfg encodermotor.Config) (*encodermotor.Board, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bus, err := i2creg.Open(c.String(flagBus))
	if err != nil {
		return nil, nil, err
	}
	if hz := c.Int(flagBusHz); hz > 0 {
		if err := bus.SetSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
	}
	log.Debugw("bus open", "bus", bus.String(),
		"addr", "0x"+strconv.FormatUint(uint64(cfg.Address), 16), "strict", cfg.StrictReads)

	b := encodermotor.New(cfg)
	if err := b.Initialize(encodermotor.NewI2C(bus)); err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return b, bus.Close, nil
}

// channelArg parses the first positional argument as a channel index.
func channelArg(c *cli.Context) (int, error) {
	if c.NArg() < 1 {
		return 0, errors.New("missing channel index")
	}
	i, err := strconv.Atoi(c.Args().First())
	if err != nil || i < 0 || i >= encodermotor.NumChannels {
		return 0, errors.New("channel must be 0..3")
	}
	return i, nil
}

// intArg parses positional argument n as a signed integer.
func intArg(c *cli.Context, n int, name string) (int64, error) {
	if c.NArg() <= n {
		return 0, errors.New("missing " + name)
	}
	v, err := strconv.ParseInt(c.Args().Get(n), 0, 64)
	if err != nil {
		return 0, errors.New("bad " + name + ": " + err.Error())
	}
	return v, nil
}
