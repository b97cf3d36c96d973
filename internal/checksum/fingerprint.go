package checksum

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Fingerprint is a 128-bit digest, stored big-endian.
type Fingerprint [16]byte

// String returns the decimal form of the fingerprint read as an unsigned
// big-endian integer. This is the form appended when a fingerprint is nested
// inside another one.
func (f Fingerprint) String() string {
	return new(big.Int).SetBytes(f[:]).String()
}

// Hex returns the fingerprint as 32 lowercase hex characters.
// Used as the storage key by cache backends.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether f is the zero fingerprint.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Checksum makes a Fingerprint its own explicit fingerprint, so dependency
// fingerprints can be passed straight into Sum.
func (f Fingerprint) Checksum() Fingerprint {
	return f
}

// HexPrefix marks the hex form in ParseFingerprint input.
const HexPrefix = "0x"

// ParseFingerprint accepts the decimal form produced by String, or the hex
// form with HexPrefix. Bare hex is rejected: 32 decimal digits are also valid
// hex, so an unprefixed string could name two different fingerprints.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	s = strings.TrimSpace(s)
	if s == "" {
		return f, fmt.Errorf("parse fingerprint: empty input")
	}
	if h, ok := strings.CutPrefix(s, HexPrefix); ok {
		return ParseHex(h)
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return f, fmt.Errorf("parse fingerprint %q: not an unsigned decimal or %s-prefixed hex digest", s, HexPrefix)
	}
	if n.BitLen() > 128 {
		return f, fmt.Errorf("parse fingerprint %q: exceeds 128 bits", s)
	}
	n.FillBytes(f[:])
	return f, nil
}

// ParseHex parses exactly 32 hex characters, the form returned by Hex.
func ParseHex(s string) (Fingerprint, error) {
	var f Fingerprint
	if len(s) != 2*len(f) {
		return f, fmt.Errorf("parse fingerprint %q: want %d hex characters", s, 2*len(f))
	}
	if _, err := hex.Decode(f[:], []byte(s)); err != nil {
		return Fingerprint{}, fmt.Errorf("parse fingerprint %q: %w", s, err)
	}
	return f, nil
}

// MustParseFingerprint is like ParseFingerprint but panics on error.
// Use only in tests or with known-good constants.
func MustParseFingerprint(s string) Fingerprint {
	f, err := ParseFingerprint(s)
	if err != nil {
		panic(err)
	}
	return f
}
