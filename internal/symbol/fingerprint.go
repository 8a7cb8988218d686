package symbol

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the stable per-symbol change-detection hash:
// hash(name, kind, normalized-signature, parent-module-path).
// It is deliberately non-cryptographic — xxhash, not SHA-256 — because it
// only needs to detect change, not resist tampering; file content hashing
// (symbol.File.ContentHash) stays SHA-256 by convention.
type Fingerprint uint64

// ComputeFingerprint computes the symbol's fingerprint given the resolved string
// values (the caller looks these up from the Interner once per symbol).
func ComputeFingerprint(name string, kind Kind, normalizedSignature string, modulePath string) Fingerprint {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(strconv.Itoa(int(kind)))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(normalizedSignature)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(modulePath)
	return Fingerprint(d.Sum64())
}
