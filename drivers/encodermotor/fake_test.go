package encodermotor

import (
	"bytes"
	"testing"
)

// txn is one completed write transaction seen by fakeTransport.
type txn struct {
	addr  uint8
	frame []byte
}

// fakeTransport records frames and replays queued responses.
type fakeTransport struct {
	txns    []txn
	reads   []int // requested lengths
	replies [][]byte

	open     bool
	addr     uint8
	cur      []byte
	begun    int
	aborted  int
	beginErr error
	writeErr error
	endErr   error
	readErr  error
}

func (f *fakeTransport) Begin() error {
	f.begun++
	return f.beginErr
}

func (f *fakeTransport) BeginTransaction(addr uint8) {
	f.open = true
	f.addr = addr
	f.cur = nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.cur = append(f.cur, p...)
	return len(p), nil
}

func (f *fakeTransport) EndTransaction() error {
	if !f.open {
		return ErrNoTransaction
	}
	f.open = false
	if f.endErr != nil {
		return f.endErr
	}
	f.txns = append(f.txns, txn{addr: f.addr, frame: f.cur})
	return nil
}

func (f *fakeTransport) AbortTransaction() {
	f.open = false
	f.cur = nil
	f.aborted++
}

func (f *fakeTransport) RequestRead(addr uint8, n int) ([]byte, error) {
	f.reads = append(f.reads, n)
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.replies) == 0 {
		return nil, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if len(r) > n {
		r = r[:n]
	}
	return r, nil
}

func (f *fakeTransport) reply(b ...byte) { f.replies = append(f.replies, b) }

func (f *fakeTransport) last(t *testing.T) txn {
	t.Helper()
	if len(f.txns) == 0 {
		t.Fatal("no transaction recorded")
	}
	return f.txns[len(f.txns)-1]
}

// newTestBoard returns an initialised board with the reset frames cleared.
func newTestBoard(t *testing.T, cfg Config) (*Board, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	b := New(cfg)
	if err := b.Initialize(tr); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	tr.txns = nil
	return b, tr
}

func wantFrame(t *testing.T, got txn, addr uint8, want ...byte) {
	t.Helper()
	if got.addr != addr {
		t.Fatalf("addr=0x%02x want 0x%02x", got.addr, addr)
	}
	if !bytes.Equal(got.frame, want) {
		t.Fatalf("frame=% x want % x", got.frame, want)
	}
}

// fakeI2C implements drivers.I2C.
type fakeI2C struct {
	calls []i2cCall
	resp  []byte
	err   error
}

type i2cCall struct {
	addr uint16
	w    []byte
	rlen int
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.calls = append(f.calls, i2cCall{addr: addr, w: append([]byte(nil), w...), rlen: len(r)})
	if f.err != nil {
		return f.err
	}
	copy(r, f.resp)
	return nil
}
