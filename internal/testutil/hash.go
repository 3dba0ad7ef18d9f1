package testutil

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base32"
	"strings"
)

// SHA512Base32 returns the unpadded base32 SHA-512 digest of data, the
// encoding used for primary content hashes.
func SHA512Base32(data []byte) string {
	sum := sha512.Sum512(data)
	return strings.TrimRight(base32.StdEncoding.EncodeToString(sum[:]), "=")
}

// SHA1Base32 returns the unpadded base32 SHA-1 digest of data, the
// encoding used for secondary hashes.
func SHA1Base32(data []byte) string {
	sum := sha1.Sum(data)
	return strings.TrimRight(base32.StdEncoding.EncodeToString(sum[:]), "=")
}
