package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ID derives a stable chunk identity from filename, category and chunk index.
// The same triple always yields the same 64 character hex string.
func ID(filename, category string, index int) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{'|'})
	h.Write([]byte(category))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(index)))
	return hex.EncodeToString(h.Sum(nil))
}
