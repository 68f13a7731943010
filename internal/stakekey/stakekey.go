package stakekey

import (
	"context"
	"errors"
	"fmt"
)

const (
	// Algorithm is the hash used by the program to key its user_stake mapping.
	Algorithm = "bhp256"
	// OutputType is the Leo type of the derived key.
	OutputType = "field"
	// NativeToken is the token_id baked into every stake record.
	NativeToken = "11111111111111111111field"
)

// ErrHasherUnavailable means the hashing primitive could not be reached.
// Callers must treat this as "key unavailable", never as a zero stake.
var ErrHasherUnavailable = errors.New("stakekey: hasher unavailable")

// Hasher computes an algorithm hash of a Leo value literal. The same
// computation runs inside the on-chain program, so implementations must not
// alter the input in any way.
type Hasher interface {
	Hash(ctx context.Context, algorithm, value, outputType, network string) (string, error)
}

// Deriver derives deterministic stake keys for (event, account) pairs.
type Deriver struct {
	hasher  Hasher
	network string
}

// NewDeriver creates a Deriver scoped to a named network ("testnet", "mainnet").
func NewDeriver(hasher Hasher, network string) *Deriver {
	return &Deriver{
		hasher:  hasher,
		network: network,
	}
}

// StakeRecord builds the canonical record literal hashed into a stake key.
// Field order and type suffixes must match the on-chain program exactly; any
// divergence silently breaks mapping lookups instead of erroring.
func StakeRecord(eventID int64, account string) string {
	return fmt.Sprintf("{ account: %s, token_id: %s, event_id: %dfield }", account, NativeToken, eventID)
}

// Derive returns the stake key for one account's position on one event.
// Pure and deterministic: the same pair always yields the same key.
func (d *Deriver) Derive(ctx context.Context, eventID int64, account string) (string, error) {
	if eventID < 0 {
		return "", fmt.Errorf("stakekey: event id must be non-negative, got %d", eventID)
	}
	if account == "" {
		return "", fmt.Errorf("stakekey: account is required")
	}

	message := StakeRecord(eventID, account)

	key, err := d.hasher.Hash(ctx, Algorithm, message, OutputType, d.network)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHasherUnavailable, err)
	}
	if key == "" {
		return "", ErrHasherUnavailable
	}

	return key, nil
}
