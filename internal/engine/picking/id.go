// Package picking resolves the pointer to a data point by reading back an
// off-screen pass in which every point is drawn in its encoded ID color.
package picking

// Background is the ID of a pixel no point was drawn to.
const Background uint32 = 0

// MaxIndex is the largest point index that fits in four bytes after the +1 offset.
const MaxIndex = 1<<32 - 2

// EncodeID returns the little-endian bytes of index+1.
func EncodeID(index int) [4]byte {
	id := uint32(index + 1)
	return [4]byte{
		byte(id),
		byte(id >> 8),
		byte(id >> 16),
		byte(id >> 24),
	}
}

// DecodeID accumulates b0 + b1·256 + b2·65536 + b3·16777216.
func DecodeID(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Resolve turns a read-back pixel into a point index.
func Resolve(b [4]byte) (index int, hit bool) {
	id := DecodeID(b)
	if id == Background {
		return -1, false
	}
	return int(id - 1), true
}

// ChannelCapacity returns how many distinct points fit in n 8-bit channels.
func ChannelCapacity(n int) int {
	if n <= 0 {
		return 0
	}
	if n >= 4 {
		return MaxIndex + 1
	}
	return 1<<(8*n) - 1
}
