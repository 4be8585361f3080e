// Package hash computes and validates the SHA-1 checksums stored in Podfile.lock.
package hash

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"go.trai.ch/zerr"
)

// ErrInvalidChecksum is returned for checksums that are not 40 lowercase hex characters.
var ErrInvalidChecksum = zerr.New("invalid checksum")

// ChecksumLength is the length of a hex-encoded SHA-1 digest.
const ChecksumLength = 2 * sha1.Size

// PodfileChecksum returns the hex SHA-1 of data.
func PodfileChecksum(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum checks that s is a hex SHA-1 digest as CocoaPods writes it.
func ValidateChecksum(s string) error {
	if len(s) != ChecksumLength {
		return zerr.With(zerr.Wrap(ErrInvalidChecksum, "wrong length"), "checksum", s)
	}
	if strings.ToLower(s) != s {
		return zerr.With(zerr.Wrap(ErrInvalidChecksum, "must be lowercase"), "checksum", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return zerr.With(zerr.Wrap(ErrInvalidChecksum, "not hexadecimal"), "checksum", s)
	}
	return nil
}

// Short shortens a checksum for display.
func Short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
