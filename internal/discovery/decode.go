package discovery

import (
	"encoding/binary"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrInsufficientData is returned when a venue payload is shorter than its layout requires.
var ErrInsufficientData = errors.New("insufficient data")

// ReadU64LE reads a little-endian uint64 at offset.
func ReadU64LE(buf []byte, offset int) (uint64, bool) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf[offset : offset+8]), true
}

// ReadU8 reads a single byte at offset.
func ReadU8(buf []byte, offset int) (uint8, bool) {
	if offset < 0 || offset >= len(buf) {
		return 0, false
	}
	return buf[offset], true
}

// ReadPubkey reads a 32-byte public key at offset and returns it base58-encoded.
func ReadPubkey(buf []byte, offset int) (string, bool) {
	if offset < 0 || offset+32 > len(buf) {
		return "", false
	}
	return base58.Encode(buf[offset : offset+32]), true
}
