package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/starnotary/internal/log"
	"github.com/Klingon-tech/starnotary/pkg/block"
	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/Klingon-tech/starnotary/pkg/star"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// RegistrySuffix terminates every ownership message.
const RegistrySuffix = "starRegistry"

// OwnershipMessage is a parsed "<address>:<unixSeconds>:starRegistry" challenge.
type OwnershipMessage struct {
	Address   string
	Timestamp int64
}

// ParseOwnershipMessage splits an ownership message into its fields.
func ParseOwnershipMessage(message string) (OwnershipMessage, error) {
	fields := strings.Split(message, ":")
	if len(fields) != 3 {
		return OwnershipMessage{}, fmt.Errorf("%w: want 3 colon-separated fields, got %d", ErrInvalidMessage, len(fields))
	}
	if fields[2] != RegistrySuffix {
		return OwnershipMessage{}, fmt.Errorf("%w: missing %q suffix", ErrInvalidMessage, RegistrySuffix)
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || ts < 0 {
		return OwnershipMessage{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidMessage, fields[1])
	}
	return OwnershipMessage{Address: fields[0], Timestamp: ts}, nil
}

// String formats the message the way RequestOwnershipMessage issues it.
func (m OwnershipMessage) String() string {
	return fmt.Sprintf("%s:%d:%s", m.Address, m.Timestamp, RegistrySuffix)
}

// RequestOwnershipMessage returns the challenge the owner of address must
// sign before submitting a star.
func (c *Chain) RequestOwnershipMessage(address string) string {
	return OwnershipMessage{Address: address, Timestamp: c.clock.Now().Unix()}.String()
}

// Window returns how long an ownership message stays valid.
func (c *Chain) Window() time.Duration {
	return c.window
}

// SubmitStar records s on the ledger on behalf of address. message must be
// a challenge issued for address less than the validation window ago and
// signature must be address's signature over it. Expired messages fail with
// ErrTimeout and bad signatures with ErrInvalidSignature; in both cases no
// block is built. On success the sealed block is returned.
func (c *Chain) SubmitStar(address, message, signature string, s star.Star) (*block.Block, error) {
	owner, err := c.verifyOwnership(address, message, signature)
	if err != nil {
		c.countRejection(err)
		log.Registry.Warn().
			Err(err).
			Str("address", address).
			Msg("Rejected star submission")
		return nil, err
	}

	if err := s.Validate(); err != nil {
		c.badPayloads.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	blk, err := block.NewOwned(s, owner)
	if err != nil {
		c.badPayloads.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	sealed, err := c.Append(blk)
	if err != nil {
		return nil, err
	}

	c.accepted.Add(1)
	log.Registry.Info().
		Str("owner", owner.String()).
		Str("star", s.Coordinates()).
		Uint64("height", sealed.Height).
		Msg("Star registered")
	return sealed, nil
}

// verifyOwnership checks the message window and the signature, in that
// order, and returns the owner address.
func (c *Chain) verifyOwnership(address, message, signature string) (types.Address, error) {
	msg, err := ParseOwnershipMessage(message)
	if err != nil {
		return types.Address{}, err
	}

	// Whole seconds; ts is non-negative so the difference cannot overflow.
	elapsed := c.clock.Now().Unix() - msg.Timestamp
	if elapsed < -int64(c.skew/time.Second) {
		return types.Address{}, fmt.Errorf("%w: timestamp is %ds in the future", ErrInvalidMessage, -elapsed)
	}
	if elapsed >= int64(c.window/time.Second) {
		return types.Address{}, fmt.Errorf("%w: issued %ds ago, window is %s", ErrTimeout, elapsed, c.window)
	}

	owner, err := types.ParseNetworkAddress(address)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	issuedFor, err := types.ParseNetworkAddress(msg.Address)
	if err != nil || issuedFor != owner {
		return types.Address{}, fmt.Errorf("%w: message was issued for another address", ErrInvalidSignature)
	}
	if !crypto.VerifyMessage(owner, message, signature) {
		return types.Address{}, ErrInvalidSignature
	}
	return owner, nil
}

func (c *Chain) countRejection(err error) {
	switch {
	case errors.Is(err, ErrTimeout):
		c.timeouts.Add(1)
	case errors.Is(err, ErrInvalidSignature):
		c.badSignatures.Add(1)
	case errors.Is(err, ErrInvalidMessage):
		c.badMessages.Add(1)
	}
}

// GetStarsByWalletAddress returns the stars recorded by address in height
// order. Chain integrity is checked first and any findings are logged, but
// they do not fail the lookup. ErrAddressNotFound is returned when the
// address owns no stars.
func (c *Chain) GetStarsByWalletAddress(address string) ([]star.Star, error) {
	owner, err := types.ParseNetworkAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddressNotFound, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, verr := range c.validateLocked() {
		c.integrity.Add(1)
		c.logger.Error().Err(verr).Msg("Chain integrity check failed")
	}

	var stars []star.Star
	for _, b := range c.blocks {
		if b.IsGenesis() || b.Owner != owner {
			continue
		}
		var s star.Star
		if err := b.DecodePayload(&s); err != nil {
			c.logger.Error().
				Err(err).
				Uint64("height", b.Height).
				Msg("Undecodable star payload")
			continue
		}
		stars = append(stars, s)
	}
	if len(stars) == 0 {
		return nil, ErrAddressNotFound
	}
	return stars, nil
}
