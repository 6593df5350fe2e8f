package encodermotor

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestChannelCommandFrames(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(2)

	cases := []struct {
		name string
		do   func() error
		want []byte
	}{
		{"reset", c.Reset, []byte{1, 2}},
		{"stop", c.Stop, []byte{2, 2}},
		{"pwm", func() error { return c.RunPWM(-255) }, []byte{3, 2, 0x01, 0xFF}},
		{"pwm unchecked", func() error { return c.RunPWM(1000) }, []byte{3, 2, 0xE8, 0x03}},
		{"speed", func() error { return c.RunSpeed(1200) }, []byte{4, 2, 0xB0, 0x04}},
		{"move to", func() error { return c.MoveTo(720, 50) }, []byte{5, 2, 0xD0, 0x02, 0x00, 0x00, 0x32, 0x00}},
		{"move", func() error { return c.MovePosition(-360, 100) }, []byte{6, 2, 0x98, 0xFE, 0xFF, 0xFF, 0x64, 0x00}},
		{"speed pid", func() error { return c.SetSpeedPID(0.8, 0.4, 0) }, []byte{7, 2, 80, 0, 40, 0, 0, 0}},
		{"position pid", func() error { return c.SetPositionPID(1.5, 0.01, 2.25) }, []byte{8, 2, 150, 0, 1, 0, 225, 0}},
		{"ratio", func() error { return c.SetReductionRatio(90) }, []byte{9, 2, 90}},
		{"ppr", func() error { return c.SetPulsesPerRevolution(12) }, []byte{10, 2, 12}},
		{"position", func() error { return c.SetCurrentPosition(1000) }, []byte{11, 2, 0xE8, 0x03, 0x00, 0x00}},
		{"b level", func() error { return c.SetPositiveBLevel(1) }, []byte{20, 2, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr.txns = nil
			if err := tc.do(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tr.txns) != 1 || len(tr.reads) != 0 {
				t.Fatalf("want exactly one write and no read, got %d/%d", len(tr.txns), len(tr.reads))
			}
			wantFrame(t, tr.last(t), DefaultAddress, tc.want...)
		})
	}
}

func TestChannelQueryFrames(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(1)

	cases := []struct {
		name string
		do   func() error
		op   Opcode
	}{
		{"speed", func() error { _, err := c.CurrentSpeed(); return err }, OpGetCurrentSpeed},
		{"position", func() error { _, err := c.CurrentPosition(); return err }, OpGetCurrentPosition},
		{"reached", func() error { _, err := c.IsTargetPositionReached(); return err }, OpQueryIsTargetPositionReached},
		{"speed pid", func() error { _, err := c.SpeedPID(); return err }, OpGetSpeedPid},
		{"position pid", func() error { _, err := c.PositionPID(); return err }, OpGetPositionPid},
		{"ratio", func() error { _, err := c.ReductionRatio(); return err }, OpGetReductionRatio},
		{"ppr", func() error { _, err := c.PulsesPerRevolution(); return err }, OpGetPpr},
		{"pwm", func() error { _, err := c.CurrentPWM(); return err }, OpGetCurrentPwm},
		{"b level", func() error { _, err := c.PositiveBLevel(); return err }, OpGetPositiveBLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr.txns, tr.reads = nil, nil
			if err := tc.do(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wantFrame(t, tr.last(t), DefaultAddress, byte(tc.op), 1)
			if len(tr.reads) != 1 || tr.reads[0] != tc.op.ResponseLen() {
				t.Fatalf("reads=%v want [%d]", tr.reads, tc.op.ResponseLen())
			}
		})
	}
}

func TestSpeedPIDRoundTrip(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(0)

	if err := c.SetSpeedPID(0.8, 0.4, 0.0); err != nil {
		t.Fatal(err)
	}
	echo := tr.last(t).frame[2:]
	tr.reply(echo...)

	pid, err := c.SpeedPID()
	if err != nil {
		t.Fatal(err)
	}
	if pid != (PID{P: 0.8, I: 0.4, D: 0}) {
		t.Fatalf("pid=%+v", pid)
	}

	// Single coefficients each cost a full round trip.
	tr.reads = nil
	tr.reply(80, 0, 40, 0, 0, 0)
	tr.reply(80, 0, 40, 0, 0, 0)
	tr.reply(80, 0, 40, 0, 0, 0)
	p, _ := c.SpeedP()
	i, _ := c.SpeedI()
	d, _ := c.SpeedD()
	if p != 0.8 || i != 0.4 || d != 0 {
		t.Fatalf("p,i,d = %v,%v,%v", p, i, d)
	}
	if len(tr.reads) != 3 {
		t.Fatalf("want 3 reads, got %d", len(tr.reads))
	}
}

func TestPositionPIDDecode(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	tr.reply(150, 0, 1, 0, 0xE1, 0x00)
	pid, err := b.Channel(3).PositionPID()
	if err != nil {
		t.Fatal(err)
	}
	if pid != (PID{P: 1.5, I: 0.01, D: 2.25}) {
		t.Fatalf("pid=%+v", pid)
	}
}

func TestSpeedScaleIsAsymmetric(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(0)

	if err := c.RunSpeed(100); err != nil {
		t.Fatal(err)
	}
	wantFrame(t, tr.last(t), DefaultAddress, 4, 0, 100, 0)

	tr.reply(0x0C, 0x30, 0x00, 0x00) // 12300 centi-RPM
	rpm, err := c.CurrentSpeed()
	if err != nil {
		t.Fatal(err)
	}
	if rpm != 123.0 {
		t.Fatalf("rpm=%v want 123", rpm)
	}
}

func TestIsTargetPositionReached(t *testing.T) {
	cases := []struct {
		raw  byte
		want bool
	}{
		{0, false},
		{1, true},
		{255, true},
	}
	for _, tc := range cases {
		b, tr := newTestBoard(t, Config{})
		tr.reply(tc.raw)
		got, err := b.Channel(0).IsTargetPositionReached()
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("raw %d: got %v want %v", tc.raw, got, tc.want)
		}
	}
}

func TestScalarQueries(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(0)

	tr.reply(0x01, 0xFF) // -255
	if v, _ := c.CurrentPWM(); v != -255 {
		t.Fatalf("pwm=%d", v)
	}
	tr.reply(0x98, 0xFE, 0xFF, 0xFF)
	if v, _ := c.CurrentPosition(); v != -360 {
		t.Fatalf("position=%d", v)
	}
	tr.reply(90)
	if v, _ := c.ReductionRatio(); v != 90 {
		t.Fatalf("ratio=%d", v)
	}
	tr.reply(12)
	if v, _ := c.PulsesPerRevolution(); v != 12 {
		t.Fatalf("ppr=%d", v)
	}
	tr.reply(1)
	if v, _ := c.PositiveBLevel(); v != 1 {
		t.Fatalf("b level=%d", v)
	}
}

func TestShortReadZeroPadsByDefault(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(0)

	// Nothing delivered: reads as zero with no error.
	rpm, err := c.CurrentSpeed()
	if err != nil || rpm != 0 {
		t.Fatalf("empty read: rpm=%v err=%v", rpm, err)
	}

	// Partial response: the missing high bytes are zero.
	tr.reply(0x10, 0x27) // 10000 in the low half only
	rpm, err = c.CurrentSpeed()
	if err != nil || rpm != 100 {
		t.Fatalf("partial read: rpm=%v err=%v", rpm, err)
	}

	tr.reply(80, 0)
	pid, err := c.SpeedPID()
	if err != nil || pid != (PID{P: 0.8}) {
		t.Fatalf("partial pid: %+v err=%v", pid, err)
	}

	ok, err := c.IsTargetPositionReached()
	if err != nil || ok {
		t.Fatalf("empty bool read: %v err=%v", ok, err)
	}
}

func TestShortReadStrict(t *testing.T) {
	b, tr := newTestBoard(t, Config{StrictReads: true})
	c := b.Channel(0)

	tr.reply(0x10, 0x27)
	rpm, err := c.CurrentSpeed()
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("want ErrShortRead, got %v", err)
	}
	var sre *ShortReadError
	if !errors.As(err, &sre) || sre.Op != OpGetCurrentSpeed || sre.Want != 4 || sre.Got != 2 {
		t.Fatalf("bad short read error: %#v", err)
	}
	if rpm != 100 {
		t.Fatalf("value should still be the zero-padded decode, got %v", rpm)
	}

	tr.reply(7)
	if v, err := b.Version(); err != nil || v != 7 {
		t.Fatalf("full response must not error: v=%d err=%v", v, err)
	}
}

func TestTransportErrorsReturnZero(t *testing.T) {
	b, tr := newTestBoard(t, Config{})
	c := b.Channel(0)

	boom := errors.New("nack")
	tr.readErr = boom
	tr.reply(0x0C, 0x30, 0, 0)
	rpm, err := c.CurrentSpeed()
	if !errors.Is(err, boom) || rpm != 0 {
		t.Fatalf("rpm=%v err=%v", rpm, err)
	}

	tr.readErr = nil
	tr.endErr = boom
	if err := c.Stop(); !errors.Is(err, boom) {
		t.Fatalf("write error not surfaced: %v", err)
	}
	tr.reads = nil
	if _, err := c.CurrentPosition(); !errors.Is(err, boom) {
		t.Fatalf("query write error not surfaced: %v", err)
	}
	if len(tr.reads) != 0 {
		t.Fatal("read phase must be skipped after a failed write")
	}

	// A failed Write aborts the transaction instead of leaving it open.
	tr.endErr = nil
	tr.txns = nil
	tr.writeErr = boom
	if err := c.RunSpeed(10); !errors.Is(err, boom) {
		t.Fatalf("Write error not surfaced: %v", err)
	}
	if tr.open || tr.aborted != 1 || len(tr.txns) != 0 {
		t.Fatalf("open=%v aborted=%d txns=%d", tr.open, tr.aborted, len(tr.txns))
	}
	tr.reads = nil
	if _, err := c.CurrentPWM(); !errors.Is(err, boom) || len(tr.reads) != 0 {
		t.Fatalf("query after failed Write: err=%v reads=%v", err, tr.reads)
	}
}

// endOnly hides AbortTransaction from the driver.
type endOnly struct{ Transport }

func TestFailedWriteEndsTransactionWithoutAborter(t *testing.T) {
	tr := &fakeTransport{}
	b := New(Config{})
	if err := b.Initialize(endOnly{tr}); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("nack")
	tr.writeErr = boom
	if err := b.Channel(2).Stop(); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if tr.open || tr.aborted != 0 {
		t.Fatalf("open=%v aborted=%d", tr.open, tr.aborted)
	}
	if tr.begun != 0 {
		t.Fatal("Begin must not be visible through endOnly")
	}
}

func TestBigEndianBoard(t *testing.T) {
	b, tr := newTestBoard(t, Config{ByteOrder: binary.BigEndian})
	c := b.Channel(1)

	if err := c.RunSpeed(1200); err != nil {
		t.Fatal(err)
	}
	wantFrame(t, tr.last(t), DefaultAddress, 4, 1, 0x04, 0xB0)

	tr.reply(0x00, 0x00, 0x30, 0x0C)
	if rpm, _ := c.CurrentSpeed(); rpm != 123 {
		t.Fatalf("rpm=%v", rpm)
	}
}

func TestChannelBeforeInitialize(t *testing.T) {
	b := New(DefaultConfig())
	if err := b.Channel(0).Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := b.Channel(0).CurrentSpeed(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("CurrentSpeed: %v", err)
	}
	if _, err := b.Version(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Version: %v", err)
	}

	var zero Channel
	if _, err := zero.SpeedPID(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("zero channel: %v", err)
	}
}
