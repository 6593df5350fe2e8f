// Package encodermotor provides a driver for the four-channel DC encoder-motor
// driver board. The board sits on an I²C bus at a single address and runs
// fixed firmware; every motor operation is one written frame
//
//	[opcode][channel index][payload...]
//
// and every query is that frame followed by a read of a fixed-length response.
//
//	b := encodermotor.New(encodermotor.DefaultConfig())
//	if err := b.Initialize(encodermotor.NewI2C(bus)); err != nil { ... }
//	_ = b.Channel(0).RunSpeed(120)
//	rpm, err := b.Channel(0).CurrentSpeed()
//
// NOTE: Board and Channel do not serialise bus access. When more than one
// goroutine talks to the same transport, each call must be made while holding
// an Exclusive (or an equivalent caller-owned lock).
//
// The board never acknowledges a write. A nil error from a command only means
// the transport accepted the frame.
package encodermotor

import (
	"encoding/binary"
	"errors"
	"strconv"
)

// DefaultAddress is the factory I²C address of the board.
const DefaultAddress = 0x09

// NumChannels is the number of motor channels on one board.
const NumChannels = 4

// Errors returned by the driver.
var (
	ErrNotInitialized = errors.New("encodermotor: transport not initialised")
	ErrShortRead      = errors.New("encodermotor: short read")
	ErrNoTransaction  = errors.New("encodermotor: write outside transaction")
	ErrFrameTooLong   = errors.New("encodermotor: frame too long")
)

// ShortReadError reports a response that was shorter than its opcode
// requires. It matches ErrShortRead with errors.Is.
type ShortReadError struct {
	Op   Opcode
	Want int
	Got  int
}

func (e *ShortReadError) Error() string {
	return "encodermotor: short read for " + e.Op.String() +
		": want " + strconv.Itoa(e.Want) + " got " + strconv.Itoa(e.Got)
}

func (e *ShortReadError) Is(target error) bool { return target == ErrShortRead }

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to DefaultAddress if zero.
	Address uint8
	// ByteOrder of multi-byte payload and response fields. The shipped
	// firmware runs on a little-endian MCU; nil selects binary.LittleEndian.
	ByteOrder binary.ByteOrder
	// StrictReads makes queries report a *ShortReadError when the transport
	// returns fewer bytes than expected. When false, missing bytes read as
	// zero and no error is reported.
	StrictReads bool
}

// DefaultConfig returns the configuration matching the stock firmware.
func DefaultConfig() Config {
	return Config{
		Address:   DefaultAddress,
		ByteOrder: binary.LittleEndian,
	}
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.ByteOrder == nil {
		c.ByteOrder = binary.LittleEndian
	}
	return c
}

// PID holds one set of controller coefficients as the firmware stores them,
// in steps of 0.01.
type PID struct {
	P, I, D float32
}
