package contracts

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account: a human signer, a colony, or the network treasury.
type Address [AddressLength]byte

// ZeroAddress is the unset address. Task roles that have not been assigned hold it.
var ZeroAddress Address

// BytesToAddress copies the trailing AddressLength bytes of b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// ParseAddress decodes a 0x-prefixed (or bare) hex address.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return ZeroAddress, fmt.Errorf("invalid address length %d", len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return ZeroAddress, fmt.Errorf("invalid address hex: %w", err)
	}
	return BytesToAddress(b), nil
}

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase 0x-prefixed form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// MarshalText implements encoding.TextMarshaler so addresses render as hex in JSON.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
