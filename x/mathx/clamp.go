package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Saturate narrows v to the signed integer type T, pinning out-of-range
// values to T's limits instead of wrapping.
func Saturate[T constraints.Signed](v int64) T {
	hi := T(1)
	for hi<<1 > hi {
		hi = hi<<1 | 1
	}
	return T(Clamp(v, int64(-hi-1), int64(hi)))
}

// SaturateU is Saturate for unsigned targets; negative inputs become 0.
func SaturateU[T constraints.Unsigned](v int64) T {
	if v <= 0 {
		return 0
	}
	hi := ^T(0)
	if uint64(v) > uint64(hi) {
		return hi
	}
	return T(v)
}
