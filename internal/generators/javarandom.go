package generators

// javaRandom is the 48-bit linear congruential generator specified for
// java.util.Random. The byte expansion of every generated value is defined in
// terms of it, so write and read passes made by any client using the same
// algorithm produce identical bytes.
type javaRandom struct {
	seed int64
}

const (
	lcgMultiplier int64 = 0x5DEECE66D
	lcgAddend     int64 = 0xB
	lcgMask       int64 = (1 << 48) - 1
)

func (r *javaRandom) SetSeed(seed int64) {
	r.seed = (seed ^ lcgMultiplier) & lcgMask
}

func (r *javaRandom) next(bits uint) int32 {
	r.seed = (r.seed*lcgMultiplier + lcgAddend) & lcgMask
	return int32(uint64(r.seed) >> (48 - bits))
}

func (r *javaRandom) NextInt() int32 {
	return r.next(32)
}

// Fill writes len(buf) bytes, four per NextInt, least significant byte first.
func (r *javaRandom) Fill(buf []byte) {
	i := 0
	for i < len(buf) {
		v := r.NextInt()
		for n := min(len(buf)-i, 4); n > 0; n-- {
			buf[i] = byte(v)
			i++
			v >>= 8
		}
	}
}
