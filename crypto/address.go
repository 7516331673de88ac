package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable part used when rendering addresses.
type AddressPrefix string

// PayPrefix is the prefix carried by every paygate ledger address.
const PayPrefix AddressPrefix = "pay"

// AddressLength is the raw byte length of a ledger address.
const AddressLength = 32

// Address identifies a ledger account. Record addresses, program
// identities, token mints and derived custodial signers all share this
// representation.
type Address [AddressLength]byte

// NewAddress builds an address from raw bytes.
func NewAddress(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes, got %d", AddressLength, len(b))
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address as bech32 with the pay prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(PayPrefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Hex renders the address as a plain hex string. Used in log output where
// bech32 would be needlessly long.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// DecodeAddress parses a bech32 string produced by Address.String.
func DecodeAddress(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	if AddressPrefix(prefix) != PayPrefix {
		return Address{}, fmt.Errorf("crypto: unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(conv)
}

// MustDecodeAddress parses a bech32 address and panics on failure. Reserved
// for deployment constants and tests.
func MustDecodeAddress(s string) Address {
	addr, err := DecodeAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Equal reports whether two addresses hold the same bytes.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a[:], other[:])
}
