package taxonomy

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint computes a stable content hash over the whole taxonomy. Two
// oracles with identical concepts (ids, labels, definitions) produce the
// same fingerprint; any content change produces a different one. Used to
// key the embedding index disk cache.
func Fingerprint(oracle Oracle) string {
	h, _ := blake2b.New(16, nil)
	for c := range oracle.All() {
		h.Write([]byte(c.Id))
		h.Write([]byte{0})
		h.Write([]byte(c.Label))
		h.Write([]byte{0})
		h.Write([]byte(c.Definition))
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}
