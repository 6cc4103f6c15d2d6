// Package mask provides the component-set bitmask registry used by the
// family engine to answer "which entities have exactly this set of
// components?" queries at frame rate.
package mask

import "math/bits"

// words is the number of uint64 words backing a Bits value. 4 words gives a
// 256-bit mask, the minimum width the runtime requires.
const words = 4

// Width is the number of component bits a Bits value can hold.
const Width = words * 64

// Bits is a fixed-width bitset over component indices. It is a plain value
// type (comparable, usable as a map key) so the registry can intern it
// cheaply.
type Bits [words]uint64

// Set returns a copy of b with bit i set.
func (b Bits) Set(i int) Bits {
	b[i/64] |= 1 << uint(i%64)
	return b
}

// Clear returns a copy of b with bit i cleared.
func (b Bits) Clear(i int) Bits {
	b[i/64] &^= 1 << uint(i%64)
	return b
}

// Test reports whether bit i is set.
func (b Bits) Test(i int) bool {
	return b[i/64]&(1<<uint(i%64)) != 0
}

// Union returns the bitwise OR of b and other.
func (b Bits) Union(other Bits) Bits {
	var out Bits
	for i := range out {
		out[i] = b[i] | other[i]
	}
	return out
}

// Intersect returns the bitwise AND of b and other.
func (b Bits) Intersect(other Bits) Bits {
	var out Bits
	for i := range out {
		out[i] = b[i] & other[i]
	}
	return out
}

// AndNot returns b with every bit also set in other cleared.
func (b Bits) AndNot(other Bits) Bits {
	var out Bits
	for i := range out {
		out[i] = b[i] &^ other[i]
	}
	return out
}

// Contains reports whether b is a superset of other (b ⊇ other).
func (b Bits) Contains(other Bits) bool {
	for i := range b {
		if b[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

// Empty reports whether no bit is set.
func (b Bits) Empty() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (b Bits) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// ForEach calls fn once per set bit index, in ascending order.
func (b Bits) ForEach(fn func(i int)) {
	for w := 0; w < words; w++ {
		word := b[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			fn(w*64 + bit)
			word &^= 1 << uint(bit)
		}
	}
}
