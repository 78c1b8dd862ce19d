package protocol

import "encoding/binary"

// putLE16 writes v into buf[offset:offset+2] little-endian. The caller
// must ensure buf is long enough.
func putLE16(buf []byte, offset int, v uint16) {
	binary.LittleEndian.PutUint16(buf[offset:], v)
}

// putLE32 writes v into buf[offset:offset+4] little-endian.
func putLE32(buf []byte, offset int, v uint32) {
	binary.LittleEndian.PutUint32(buf[offset:], v)
}

// getLE16 reads a little-endian uint16 from buf[offset:offset+2].
func getLE16(buf []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(buf[offset:])
}

// getLE32 reads a little-endian uint32 from buf[offset:offset+4].
func getLE32(buf []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(buf[offset:])
}
