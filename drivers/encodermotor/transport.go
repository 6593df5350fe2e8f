package encodermotor

import "tinygo.org/x/drivers"

// Transport is the addressed, blocking byte transport the board hangs off.
// One command is BeginTransaction, Write and EndTransaction; a query follows
// that with RequestRead.
//
// RequestRead should return exactly n bytes. It may return fewer; the driver
// treats the missing tail as zero (see Config.StrictReads).
type Transport interface {
	BeginTransaction(addr uint8)
	Write(p []byte) (int, error)
	EndTransaction() error
	RequestRead(addr uint8, n int) ([]byte, error)
}

// Starter is implemented by transports that need a one-off bring-up before
// first use. Board.Initialize calls Begin once.
type Starter interface {
	Begin() error
}

// Aborter is implemented by transports that can drop a transaction without
// sending it. After a failed Write the driver calls AbortTransaction when
// available and EndTransaction otherwise, so no transaction is left open.
type Aborter interface {
	AbortTransaction()
}

// I2CTransport adapts a drivers.I2C bus (TinyGo machine.I2C,
// periph.io i2c.Bus, ...) to Transport. The frame written between
// BeginTransaction and EndTransaction is sent as a single write-only Tx.
type I2CTransport struct {
	bus  drivers.I2C
	addr uint16
	open bool
	w    [maxFrame]byte
	n    int
}

// NewI2C wraps an already configured I²C bus.
func NewI2C(bus drivers.I2C) *I2CTransport {
	return &I2CTransport{bus: bus}
}

func (t *I2CTransport) BeginTransaction(addr uint8) {
	t.addr = uint16(addr)
	t.open = true
	t.n = 0
}

func (t *I2CTransport) Write(p []byte) (int, error) {
	if !t.open {
		return 0, ErrNoTransaction
	}
	n := copy(t.w[t.n:], p)
	t.n += n
	if n < len(p) {
		return n, ErrFrameTooLong
	}
	return n, nil
}

func (t *I2CTransport) EndTransaction() error {
	if !t.open {
		return ErrNoTransaction
	}
	t.open = false
	return t.bus.Tx(t.addr, t.w[:t.n], nil)
}

// AbortTransaction discards the buffered frame without touching the bus.
func (t *I2CTransport) AbortTransaction() {
	t.open = false
	t.n = 0
}

func (t *I2CTransport) RequestRead(addr uint8, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.bus.Tx(uint16(addr), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}
