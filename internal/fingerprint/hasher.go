// Package fingerprint implements the combinatorial hasher: peak pairing
// within a target zone and SHA-1-derived hash emission.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashPeaks canonicalizes the triple (anchor freq, partner freq, delta
// time) into an ASCII-decimal "|"-joined string, SHA-1 hashes it, and
// returns the first 20 hex characters (80 bits). Any ingest and query
// must agree on this derivation, since it is the catalog's on-disk
// contract.
func HashPeaks(anchorFreq, partnerFreq, deltaFrames uint32) string {
	canon := fmt.Sprintf("%d|%d|%d", anchorFreq, partnerFreq, deltaFrames)
	sum := sha1.Sum([]byte(canon))
	return hex.EncodeToString(sum[:])[:20]
}
