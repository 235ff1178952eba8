package crypto

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/starnotary/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// MessagePrefix is mixed into every signed message so that a signature over
// an ownership challenge can never be replayed as a signature over raw data.
const MessagePrefix = "Star Notary Signed Message:\n"

// CompactSignatureSize is the length of a recoverable compact signature.
const CompactSignatureSize = 65

// ErrBadSignatureEncoding is returned when a signature is not valid base64
// or has the wrong length.
var ErrBadSignatureEncoding = errors.New("malformed message signature")

// MessageSigner signs ownership challenges on behalf of a wallet.
type MessageSigner interface {
	// SignMessage returns the base64 compact signature over message.
	SignMessage(message string) string
	// Address returns the address whose key produces the signatures.
	Address() types.Address
}

// PrivateKey wraps a secp256k1 private key for message signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Address returns the address derived from the public key.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SignMessage produces a base64 compact recoverable signature over
// MessageHash(message).
func (pk *PrivateKey) SignMessage(message string) string {
	digest := MessageHash(message)
	sig := ecdsa.SignCompact(pk.key, digest[:], true)
	return base64.StdEncoding.EncodeToString(sig)
}

// MessageHash returns the digest that is actually signed for message:
// BLAKE3(varint(len(prefix)) | prefix | varint(len(message)) | message).
func MessageHash(message string) types.Hash {
	buf := make([]byte, 0, len(MessagePrefix)+len(message)+2*binary.MaxVarintLen64)
	buf = binary.AppendUvarint(buf, uint64(len(MessagePrefix)))
	buf = append(buf, MessagePrefix...)
	buf = binary.AppendUvarint(buf, uint64(len(message)))
	buf = append(buf, message...)
	return Hash(buf)
}

// RecoverMessageAddress recovers the address of the key that produced
// signature over message.
func RecoverMessageAddress(message, signature string) (types.Address, error) {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrBadSignatureEncoding, err)
	}
	if len(sig) != CompactSignatureSize {
		return types.Address{}, fmt.Errorf("%w: got %d bytes, want %d", ErrBadSignatureEncoding, len(sig), CompactSignatureSize)
	}
	digest := MessageHash(message)
	pub, compressed, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return types.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	if !compressed {
		return types.Address{}, fmt.Errorf("signature commits to an uncompressed key")
	}
	return AddressFromPubKey(pub.SerializeCompressed()), nil
}

// VerifyMessage reports whether signature is a valid signature over message
// by the key behind address. Returns false on any error.
func VerifyMessage(address types.Address, message, signature string) bool {
	recovered, err := RecoverMessageAddress(message, signature)
	if err != nil {
		return false
	}
	return recovered == address
}
