package encodermotor

import "iter"

// Board is one encoder-motor driver board. It owns exactly NumChannels
// channels which share the board's address and transport.
type Board struct {
	link
	channels [NumChannels]Channel
}

// New creates a Board for cfg. It does not touch the bus; call Initialize
// before any other method.
func New(cfg Config) *Board {
	cfg = cfg.withDefaults()
	b := &Board{
		link: link{
			addr:   cfg.Address,
			order:  cfg.ByteOrder,
			strict: cfg.StrictReads,
		},
	}
	for i := range b.channels {
		b.channels[i] = Channel{link: b.link, index: uint8(i)}
	}
	return b
}

// Initialize brings tr up if it implements Starter, binds it and sends Reset
// to every channel in index order. A failed Begin leaves the board unbound;
// a failed reset stops the sequence with tr bound, so Initialize may simply
// be called again.
func (b *Board) Initialize(tr Transport) error {
	if tr == nil {
		return ErrNotInitialized
	}
	if s, ok := tr.(Starter); ok {
		if err := s.Begin(); err != nil {
			return err
		}
	}
	b.tr = tr
	for i := range b.channels {
		b.channels[i].tr = tr
	}
	for i := range b.channels {
		if err := b.channels[i].Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Address returns the board's I²C address.
func (b *Board) Address() uint8 { return b.addr }

// Version reads the firmware version byte.
func (b *Board) Version() (uint8, error) {
	f := newFrame(b.byteOrder(), OpGetVersion, 0)
	r, err := b.query(&f, OpGetVersion)
	return r.u8(0), err
}

// Channel returns channel i (0..3). Out-of-range indices panic.
func (b *Board) Channel(i int) *Channel { return &b.channels[i] }

// All yields every channel in index order.
func (b *Board) All() iter.Seq2[int, *Channel] {
	return func(yield func(int, *Channel) bool) {
		for i := range b.channels {
			if !yield(i, &b.channels[i]) {
				return
			}
		}
	}
}
