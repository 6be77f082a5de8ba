package token

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address is a canonical contract address: 0x-prefixed, 40 lower-case hex
// characters. Construct via CanonicalAddress; the zero value is not valid.
type Address string

const addressHexLen = 40

// CanonicalAddress normalizes raw input into the canonical lower-case form.
// Mixed-case input must carry a valid EIP-55 checksum; all-lower and
// all-upper input is accepted as unchecksummed. Canonicalization is
// idempotent: canonical input is returned unchanged.
func CanonicalAddress(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s) != addressHexLen {
		return "", fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidAddress, addressHexLen, len(s))
	}
	for _, c := range s {
		if !isHex(byte(c)) {
			return "", fmt.Errorf("%w: non-hex character %q", ErrInvalidAddress, c)
		}
	}
	if hasMixedCase(s) && !validChecksum(s) {
		return "", fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return Address("0x" + strings.ToLower(s)), nil
}

// String returns the canonical textual form.
func (a Address) String() string { return string(a) }

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hasMixedCase(hex string) bool {
	var lower, upper bool
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if c >= 'a' && c <= 'f' {
			lower = true
		}
		if c >= 'A' && c <= 'F' {
			upper = true
		}
	}
	return lower && upper
}

// validChecksum implements the EIP-55 mixed-case checksum: a hex letter is
// upper-case iff the corresponding nibble of keccak256(lowercase(address))
// is >= 8.
func validChecksum(hex string) bool {
	lower := strings.ToLower(hex)
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	sum := hasher.Sum(nil)

	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		nibble &= 0x0f
		if nibble >= 8 {
			if c < 'A' || c > 'F' {
				return false
			}
		} else {
			if c < 'a' || c > 'f' {
				return false
			}
		}
	}
	return true
}
