package encodermotor

import "encoding/binary"

// link is the (address, transport, encoding) triple shared by the board and
// its channels.
type link struct {
	addr   uint8
	tr     Transport
	order  binary.ByteOrder
	strict bool
}

func (l *link) byteOrder() binary.ByteOrder {
	if l.order == nil {
		return binary.LittleEndian
	}
	return l.order
}

// send writes one frame in one transaction.
func (l *link) send(f *frame) error {
	if l.tr == nil {
		return ErrNotInitialized
	}
	l.tr.BeginTransaction(l.addr)
	if _, err := l.tr.Write(f.bytes()); err != nil {
		if a, ok := l.tr.(Aborter); ok {
			a.AbortTransaction()
		} else {
			_ = l.tr.EndTransaction()
		}
		return err
	}
	return l.tr.EndTransaction()
}

// query writes f and reads back op's fixed-length response. Bytes the
// transport did not deliver stay zero.
func (l *link) query(f *frame, op Opcode) (response, error) {
	r := response{order: l.byteOrder()}
	if err := l.send(f); err != nil {
		return r, err
	}
	want := op.ResponseLen()
	got, err := l.tr.RequestRead(l.addr, want)
	if err != nil {
		return r, err
	}
	n := copy(r.buf[:want], got)
	if n < want && l.strict {
		return r, &ShortReadError{Op: op, Want: want, Got: n}
	}
	return r, nil
}

// Channel drives one motor output of a Board. Channels are owned by their
// Board and obtained with Board.Channel; the address and index never change.
//
// Every method is a full bus transaction. Getters are not cached.
type Channel struct {
	link
	index uint8
}

// Index returns the channel position on the board, 0..3.
func (c *Channel) Index() uint8 { return c.index }

// Address returns the I²C address of the owning board.
func (c *Channel) Address() uint8 { return c.addr }

func (c *Channel) frame(op Opcode) frame { return newFrame(c.byteOrder(), op, c.index) }

func (c *Channel) command(op Opcode) error {
	f := c.frame(op)
	return c.send(&f)
}

func (c *Channel) query(op Opcode) (response, error) {
	f := c.frame(op)
	return c.link.query(&f, op)
}

// ---- Commands ----

// Reset restores the channel's firmware state: reduction ratio, PPR, PID
// coefficients, position, speed and PWM all return to their defaults.
func (c *Channel) Reset() error { return c.command(OpReset) }

// Stop stops the motor immediately.
func (c *Channel) Stop() error { return c.command(OpStop) }

// RunPWM drives the motor open-loop. The sign selects the direction; the
// firmware range is -255..255 and values are forwarded unchecked.
func (c *Channel) RunPWM(pwm int16) error {
	f := c.frame(OpRunPwm)
	f.i16(pwm)
	return c.send(&f)
}

// RunSpeed holds the motor at speed RPM (signed for direction) using the
// speed PID. The value is sent unscaled, unlike CurrentSpeed.
func (c *Channel) RunSpeed(speed int16) error {
	f := c.frame(OpRunSpeed)
	f.i16(speed)
	return c.send(&f)
}

// MovePosition turns the motor by delta degrees relative to the current
// position (360 per output revolution) at speed RPM. speed must be > 0.
func (c *Channel) MovePosition(delta int32, speed uint16) error {
	f := c.frame(OpMovePosition)
	f.i32(delta)
	f.u16(speed)
	return c.send(&f)
}

// MoveTo turns the motor to the absolute position in degrees at speed RPM.
// speed must be > 0.
func (c *Channel) MoveTo(position int32, speed uint16) error {
	f := c.frame(OpMovePositionTo)
	f.i32(position)
	f.u16(speed)
	return c.send(&f)
}

// SetSpeedPID sets all three speed-loop coefficients. Firmware defaults are
// 0.8, 0.4 and 0; P and I should not go below 0.01.
func (c *Channel) SetSpeedPID(p, i, d float32) error {
	f := c.frame(OpSetSpeedPid)
	f.pid(p, i, d)
	return c.send(&f)
}

// SetPositionPID sets all three position-loop coefficients.
func (c *Channel) SetPositionPID(p, i, d float32) error {
	f := c.frame(OpSetPositionPid)
	f.pid(p, i, d)
	return c.send(&f)
}

// SetReductionRatio sets the gearbox ratio (firmware default 90).
func (c *Channel) SetReductionRatio(ratio uint8) error { return c.setU8(OpSetRatio, ratio) }

// SetPulsesPerRevolution sets the encoder disc resolution (firmware default 12).
func (c *Channel) SetPulsesPerRevolution(ppr uint8) error { return c.setU8(OpSetPpr, ppr) }

// SetPositiveBLevel sets the B-phase level seen on a rising A edge while the
// motor turns forward: 1 for high, 0 for low (firmware default).
func (c *Channel) SetPositiveBLevel(level uint8) error { return c.setU8(OpSetPositiveBLevel, level) }

// SetCurrentPosition redefines the current angular position in degrees.
func (c *Channel) SetCurrentPosition(position int32) error {
	f := c.frame(OpSetCurrentPosition)
	f.i32(position)
	return c.send(&f)
}

func (c *Channel) setU8(op Opcode, v uint8) error {
	f := c.frame(op)
	f.u8(v)
	return c.send(&f)
}

// ---- Queries ----

// SpeedPID reads the speed-loop coefficients.
func (c *Channel) SpeedPID() (PID, error) {
	r, err := c.query(OpGetSpeedPid)
	return r.pid(), err
}

// PositionPID reads the position-loop coefficients.
func (c *Channel) PositionPID() (PID, error) {
	r, err := c.query(OpGetPositionPid)
	return r.pid(), err
}

// SpeedP reads the speed-loop P coefficient. The firmware always returns the
// whole triplet, so SpeedPID is cheaper when more than one is needed.
func (c *Channel) SpeedP() (float32, error) {
	pid, err := c.SpeedPID()
	return pid.P, err
}

// SpeedI reads the speed-loop I coefficient.
func (c *Channel) SpeedI() (float32, error) {
	pid, err := c.SpeedPID()
	return pid.I, err
}

// SpeedD reads the speed-loop D coefficient.
func (c *Channel) SpeedD() (float32, error) {
	pid, err := c.SpeedPID()
	return pid.D, err
}

// ReductionRatio reads the gearbox ratio (firmware default 90).
func (c *Channel) ReductionRatio() (uint8, error) { return c.getU8(OpGetReductionRatio) }

// PulsesPerRevolution reads the encoder resolution (firmware default 12).
func (c *Channel) PulsesPerRevolution() (uint8, error) { return c.getU8(OpGetPpr) }

// PositiveBLevel reads the forward B-phase level (firmware default 0).
func (c *Channel) PositiveBLevel() (uint8, error) { return c.getU8(OpGetPositiveBLevel) }

// CurrentPWM reads the PWM value the firmware is currently applying.
func (c *Channel) CurrentPWM() (int16, error) {
	r, err := c.query(OpGetCurrentPwm)
	return r.i16(0), err
}

// CurrentSpeed reads the measured speed in RPM. The firmware reports
// centi-RPM; see DecodeSpeed.
func (c *Channel) CurrentSpeed() (float32, error) {
	r, err := c.query(OpGetCurrentSpeed)
	return DecodeSpeed(r.i32(0)), err
}

// CurrentPosition reads the angular position in degrees.
func (c *Channel) CurrentPosition() (int32, error) {
	r, err := c.query(OpGetCurrentPosition)
	return r.i32(0), err
}

// IsTargetPositionReached reports whether the last MovePosition/MoveTo has
// completed.
func (c *Channel) IsTargetPositionReached() (bool, error) {
	r, err := c.query(OpQueryIsTargetPositionReached)
	return DecodeBool(r.u8(0)), err
}

func (c *Channel) getU8(op Opcode) (uint8, error) {
	r, err := c.query(op)
	return r.u8(0), err
}
