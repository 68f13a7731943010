package services

import "errors"

var (
	// ErrInvalidAmount means a stake or claim amount was not a positive integer.
	ErrInvalidAmount = errors.New("amount must be a positive whole number of microcredits")

	// ErrChainPending means the authoritative chain state for the request is
	// not available yet. Ambiguous between "never written" and "awaiting
	// finalization"; callers may retry.
	ErrChainPending = errors.New("on-chain state not available yet")

	// ErrEventNotResolved means a claim was attempted before the on-chain
	// event was resolved.
	ErrEventNotResolved = errors.New("event is not resolved on-chain")

	// ErrNothingToClaim means the chain shows no positive stake for the
	// account on the event.
	ErrNothingToClaim = errors.New("no confirmed stake to claim")

	// ErrClaimExceedsStake means the requested claim is larger than the
	// account's on-chain stake total.
	ErrClaimExceedsStake = errors.New("claim amount exceeds on-chain stake")
)
