package ttnmapper

import "fmt"

// signExtend treats the low 8*n bits of v as a two's-complement integer and
// widens it to int32. A width of 4 is returned unchanged.
func signExtend(v uint32, n int) int32 {
	if n < 1 || n > 4 {
		panic(fmt.Errorf("%w: %d bytes", ErrUnsupportedWidth, n))
	}
	shift := uint(32 - 8*n)
	return int32(v<<shift) >> shift
}

func checkField(data []byte, offset, n int) {
	if n < 1 || n > 4 {
		panic(fmt.Errorf("%w: %d bytes", ErrUnsupportedWidth, n))
	}
	if offset < 0 || offset+n > len(data) {
		panic(fmt.Errorf("%w: offset=%d width=%d len=%d", ErrFieldOutOfRange, offset, n, len(data)))
	}
}

// IntLSB reads an n-byte signed integer stored least significant byte first.
// Reading past the end of data panics.
func IntLSB(data []byte, offset, n int) int32 {
	checkField(data, offset, n)

	var v uint32
	for i := 0; i < n; i++ {
		v |= uint32(data[offset+i]) << (8 * i)
	}
	return signExtend(v, n)
}

// IntNetworkOrder reads an n-byte signed integer stored most significant byte first.
// Reading past the end of data panics.
func IntNetworkOrder(data []byte, offset, n int) int32 {
	checkField(data, offset, n)

	var v uint32
	for i := offset; i < offset+n; i++ {
		v = v<<8 | uint32(data[i])
	}
	return signExtend(v, n)
}
