package domain

import (
	"crypto/rand"
	"encoding/binary"
)

// NewID generates a random 16-digit identifier, used for surrogate keys
// such as lazily created score records.
func NewID() ID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; treat a failure
		// as unrecoverable rather than handing out predictable ids.
		panic("domain: read random id bytes: " + err.Error())
	}
	value := binary.BigEndian.Uint64(buf[:])
	span := uint64(maxID-minID) + 1
	return minID + ID(value%span)
}
