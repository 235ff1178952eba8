package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "star"
	TestnetHRP = "tstar"
)

// activeHRP is the address HRP used by String() and MarshalJSON().
// Set once at startup via SetAddressHRP(). Default is mainnet.
var activeHRP = MainnetHRP

// SetAddressHRP sets the active address HRP (call once at startup).
func SetAddressHRP(hrp string) {
	activeHRP = hrp
}

// GetAddressHRP returns the currently active address HRP.
func GetAddressHRP() string {
	return activeHRP
}

// Address identifies a wallet: the first 20 bytes of the BLAKE3 digest of
// its compressed secp256k1 public key.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the bech32-encoded address (e.g. "star1...").
func (a Address) String() string {
	s, err := bech32.EncodeFromBase256(activeHRP, a[:])
	if err != nil {
		return activeHRP + ":" + hex.EncodeToString(a[:])
	}
	return s
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as a bech32 string, or null for the zero address.
func (a Address) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 or raw hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Address{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 address ("star1...", "tstar1...") or a raw
// 40-char hex address. The HRP is not checked against the active network.
func ParseAddress(s string) (Address, error) {
	a, _, err := parseAddress(s)
	return a, err
}

// ParseNetworkAddress is ParseAddress restricted to the active network:
// a bech32 address must carry the HRP set by SetAddressHRP. Raw hex is
// network-neutral and always accepted.
func ParseNetworkAddress(s string) (Address, error) {
	a, hrp, err := parseAddress(s)
	if err != nil {
		return Address{}, err
	}
	if hrp != "" && !strings.EqualFold(hrp, activeHRP) {
		return Address{}, fmt.Errorf("address %q belongs to network %q, want %q", s, hrp, activeHRP)
	}
	return a, nil
}

// parseAddress returns the decoded address and, for bech32 input, its HRP.
func parseAddress(s string) (Address, string, error) {
	if s == "" {
		return Address{}, "", fmt.Errorf("empty address")
	}

	if isHex40(s) {
		a, err := HexToAddress(s)
		return a, "", err
	}

	if !strings.Contains(s, "1") {
		return Address{}, "", fmt.Errorf("invalid address %q: missing bech32 separator", s)
	}
	hrp, data, err := bech32.DecodeToBase256(s)
	if err != nil {
		return Address{}, "", fmt.Errorf("invalid bech32 address: %w", err)
	}
	if len(data) != AddressSize {
		return Address{}, "", fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	var a Address
	copy(a[:], data)
	return a, hrp, nil
}

// HexToAddress converts a raw hex string to an Address.
// Returns an error if the string is not exactly 40 hex characters.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func isHex40(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
