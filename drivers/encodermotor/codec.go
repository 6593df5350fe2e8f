package encodermotor

import (
	"encoding/binary"
	"math"
)

// Longest frame (opcode, index, 6-byte payload) and longest response.
const (
	maxFrame    = 8
	maxResponse = 6
)

// centiScale is the fixed-point factor for PID coefficients and read-back
// speed.
const centiScale = 100

// EncodeCenti converts v to the firmware's centi-unit uint16 by rounding
// v*100 to the nearest integer. Values outside 0..655.35 are not clamped;
// they wrap to 16 bits the same way the firmware's own C conversion does on
// the stock toolchain.
func EncodeCenti(v float32) uint16 {
	return uint16(int64(math.Round(float64(v) * centiScale)))
}

// DecodeCenti converts a centi-unit uint16 back to a float.
func DecodeCenti(raw uint16) float32 {
	return float32(float64(raw) / centiScale)
}

// DecodeSpeed converts a read-back speed in centi-RPM to RPM. Speeds are
// written in whole RPM (see Channel.RunSpeed); only the read path is scaled.
func DecodeSpeed(raw int32) float32 {
	return float32(float64(raw) / centiScale)
}

// DecodeBool treats any non-zero response byte as true.
func DecodeBool(b byte) bool { return b != 0 }

// frame is a fixed buffer holding one outbound frame.
type frame struct {
	buf   [maxFrame]byte
	n     int
	order binary.ByteOrder
}

func newFrame(order binary.ByteOrder, op Opcode, index uint8) frame {
	f := frame{order: order}
	f.u8(uint8(op))
	if op.Indexed() {
		f.u8(index)
	}
	return f
}

func (f *frame) bytes() []byte { return f.buf[:f.n] }

func (f *frame) u8(v uint8) {
	f.buf[f.n] = v
	f.n++
}

func (f *frame) u16(v uint16) {
	f.order.PutUint16(f.buf[f.n:], v)
	f.n += 2
}

func (f *frame) i16(v int16) { f.u16(uint16(v)) }

func (f *frame) u32(v uint32) {
	f.order.PutUint32(f.buf[f.n:], v)
	f.n += 4
}

func (f *frame) i32(v int32) { f.u32(uint32(v)) }

func (f *frame) pid(p, i, d float32) {
	f.u16(EncodeCenti(p))
	f.u16(EncodeCenti(i))
	f.u16(EncodeCenti(d))
}

// response holds one inbound response, zero-padded to its expected length.
type response struct {
	buf   [maxResponse]byte
	order binary.ByteOrder
}

func (r *response) u8(off int) uint8   { return r.buf[off] }
func (r *response) u16(off int) uint16 { return r.order.Uint16(r.buf[off:]) }
func (r *response) i16(off int) int16  { return int16(r.u16(off)) }
func (r *response) i32(off int) int32  { return int32(r.order.Uint32(r.buf[off:])) }

func (r *response) pid() PID {
	return PID{
		P: DecodeCenti(r.u16(0)),
		I: DecodeCenti(r.u16(2)),
		D: DecodeCenti(r.u16(4)),
	}
}
