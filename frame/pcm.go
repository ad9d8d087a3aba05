package frame

// PCM marshalling between the native i32 sample pipeline and the byte
// streams of the supported depths. The conversions are bit-exact in both
// directions: unsigned 8-bit PCM is re-centred on zero, 16- and 24-bit PCM
// are little-endian and sign-extended.

// ReadPCM unmarshals len(dst) samples from src into dst and returns the
// number of bytes consumed. src must hold at least len(dst)*d bytes.
func ReadPCM(dst []int32, src []byte, d Depth) int {
	switch d {
	case Depth8:
		for i := range dst {
			dst[i] = int32(src[i]) - 0x80
		}
	case Depth16:
		for i, j := 0, 0; i < len(dst); i, j = i+1, j+2 {
			dst[i] = int32(uint32(src[j]) | uint32(int8(src[j+1]))<<8)
		}
	case Depth24:
		for i, j := 0, 0; i < len(dst); i, j = i+1, j+3 {
			dst[i] = int32(uint32(src[j]) | uint32(src[j+1])<<8 | uint32(int8(src[j+2]))<<16)
		}
	}
	return len(dst) * int(d)
}

// WritePCM marshals len(src) samples from src into dst and returns the
// number of bytes produced. dst must hold at least len(src)*d bytes.
func WritePCM(dst []byte, src []int32, d Depth) int {
	switch d {
	case Depth8:
		for i, v := range src {
			dst[i] = byte(v + 0x80)
		}
	case Depth16:
		for i, v := range src {
			dst[2*i] = byte(v)
			dst[2*i+1] = byte(v >> 8)
		}
	case Depth24:
		for i, v := range src {
			dst[3*i] = byte(v)
			dst[3*i+1] = byte(v >> 8)
			dst[3*i+2] = byte(v >> 16)
		}
	}
	return len(src) * int(d)
}
