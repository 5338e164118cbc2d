package history

// Rand is a small deterministic integer-hash stream. Two streams built from
// the same seed produce the same sequence on every platform.
type Rand struct {
	state uint32
}

// NewRand seeds a stream.
func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	x := (t ^ (t >> 15)) * (1 | t)
	x ^= x + (x^(x>>7))*(61|x)
	return float64(x^(x>>14)) / 4294967296
}

// Centered returns the next value shifted to [-0.5, 0.5).
func (r *Rand) Centered() float64 {
	return r.Float64() - 0.5
}
