package document

import (
	"strconv"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint returns a content checksum for data.
func Fingerprint(data []byte) (uint64, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Checksum returns the hex encoded fingerprint of text, or an empty string when hashing fails.
func Checksum(text string) string {
	sum, err := Fingerprint([]byte(text))
	if err != nil {
		return ""
	}
	return strconv.FormatUint(sum, 16)
}
