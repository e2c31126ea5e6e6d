// Package util holds small shared helpers.
package util

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
)

// MD5Hex returns the lowercase hex md5 digest of data. Digests ride along
// with published artifact URLs so the packaging side can verify downloads.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)

	return hex.EncodeToString(sum[:])
}

// RandomSuffix returns n bytes of randomness as 2n lowercase hex characters.
func RandomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	return hex.EncodeToString(buf)
}
