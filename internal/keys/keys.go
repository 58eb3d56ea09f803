// Package keys generates and hashes raw API keys. The raw secret exists only
// in memory at creation time; everything else in the system works with the
// SHA-256 digest.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Prefix marks gateway-issued keys so they are recognizable in logs and
// support tickets without revealing anything.
const Prefix = "pk_"

// PreviewLen is the number of trailing hex characters kept as the
// non-reversible display preview.
const PreviewLen = 8

// Hash returns the hex-encoded SHA-256 digest of a raw key. Deterministic;
// no salt, because secrets are 256-bit server-generated random values, never
// user-chosen.
func Hash(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Generate produces a new credential secret: the raw key (shown to the owner
// exactly once), its digest for storage, and the short preview safe to
// display afterwards.
func Generate() (raw, digest, preview string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate random key: %w", err)
	}
	raw = Prefix + hex.EncodeToString(buf)
	digest = Hash(raw)
	preview = raw[len(raw)-PreviewLen:]
	return raw, digest, preview, nil
}
