package session

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashDevice maps a raw device identifier to the pseudonymous id used in
// logs and storage: the first 16 bytes of its BLAKE2b-256 digest, hex encoded.
func HashDevice(deviceID string) string {
	sum := blake2b.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:16])
}
