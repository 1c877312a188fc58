package entitymodel

import "fmt"

// UniqueIdentifier is the 64-bit EUI-64 identity used for entities,
// streams, and clock references. The all-zeros value means "null/unset".
type UniqueIdentifier uint64

// NullUniqueIdentifier is the reserved "unset" identity.
const NullUniqueIdentifier UniqueIdentifier = 0

// IsValid reports whether the identifier is non-null.
func (u UniqueIdentifier) IsValid() bool {
	return u != NullUniqueIdentifier
}

// String renders the identifier the conventional EUI-64 way.
func (u UniqueIdentifier) String() string {
	return fmt.Sprintf("%016X", uint64(u))
}

// MacAddress is a 6-byte link-layer address.
type MacAddress [6]byte

// IsValid reports whether the address is non-zero.
func (m MacAddress) IsValid() bool {
	return m != MacAddress{}
}

// String renders the address in colon-separated hex form.
func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// AvdeccFixedString is a fixed 64-byte UTF-8 descriptor name field.
// Only the bytes up to the first NUL (or all 64) are significant.
type AvdeccFixedString [64]byte

// NewAvdeccFixedString truncates s to 64 bytes and zero-pads the rest.
func NewAvdeccFixedString(s string) AvdeccFixedString {
	var out AvdeccFixedString
	b := []byte(s)
	if len(b) > len(out) {
		b = b[:len(out)]
	}
	copy(out[:], b)
	return out
}

// String returns the string up to the first NUL byte.
func (s AvdeccFixedString) String() string {
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s[:])
}
