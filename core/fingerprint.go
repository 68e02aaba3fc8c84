package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint computes a short, deterministic content fingerprint using
// BLAKE2b hashing. Identical text always produces the same fingerprint.
//
// The engine never reads fingerprints back; they ride along in record
// metadata so the retention process can recognize byte-identical
// re-ingestions of a document without downloading embeddings.
func Fingerprint(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
