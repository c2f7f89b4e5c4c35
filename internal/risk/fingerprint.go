package risk

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a device identifier from the user agent and client IP.
// Stronger signals can replace this without changing the reputation keying.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + ":" + ip))
	return hex.EncodeToString(sum[:])
}
