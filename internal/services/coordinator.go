package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"zkpredict/internal/chain"
	"zkpredict/internal/models"
	"zkpredict/internal/repository"
	"zkpredict/internal/wallet"

	"github.com/shopspring/decimal"
)

// FlowState tracks how far a write flow progressed. The mirror write always
// precedes the chain submission; a row left in MIRROR_WRITTEN is optimistic
// state awaiting either a retry or the reconciler sweep.
type FlowState string

const (
	FlowStateIntent        FlowState = "INTENT"
	FlowStateMirrorWritten FlowState = "MIRROR_WRITTEN"
	FlowStateSubmitted     FlowState = "CHAIN_SUBMITTED"
	FlowStateConfirmed     FlowState = "CONFIRMED"
	FlowStateFailed        FlowState = "FAILED"
)

// On-chain program entry points.
const (
	FnCreateEvent  = "create_event"
	FnStakePublic  = "stake_public"
	FnResolveEvent = "resolve_event"
	FnClaimPublic  = "claim_public"
	FnUnpause      = "unpause"
)

// chainReader is the authoritative read side consulted for claim gating.
type chainReader interface {
	GetEvent(ctx context.Context, eventID int64) (*chain.ChainEvent, error)
	GetUserStake(ctx context.Context, stakeKey string) (decimal.Decimal, error)
}

// keyDeriver derives the deterministic stake key for an (event, account) pair.
type keyDeriver interface {
	Derive(ctx context.Context, eventID int64, account string) (string, error)
}

// Coordinator drives the two-phase write against mirror and chain: the mirror
// is written optimistically first, the wallet transaction is submitted second,
// and the mirror confirm flag is flipped once the wallet reports a transaction
// id. "Confirmed" here means broadcast accepted, not finalized; finalization
// is only ever observed through the chain reader.
type Coordinator struct {
	repo      *repository.Repository
	reader    chainReader
	deriver   keyDeriver
	submitter wallet.Submitter
	programID string
	network   string
	fee       uint64
}

// NewCoordinator creates a Coordinator for one deployed program.
func NewCoordinator(
	repo *repository.Repository,
	reader chainReader,
	deriver keyDeriver,
	submitter wallet.Submitter,
	programID string,
	network string,
	fee uint64,
) *Coordinator {
	return &Coordinator{
		repo:      repo,
		reader:    reader,
		deriver:   deriver,
		submitter: submitter,
		programID: programID,
		network:   network,
		fee:       fee,
	}
}

// EventFlowResult reports the outcome of a create-event flow.
type EventFlowResult struct {
	Event         *models.Event `json:"event"`
	TransactionID string        `json:"transaction_id,omitempty"`
	State         FlowState     `json:"state"`
}

// StakeFlowResult reports the outcome of a stake flow.
type StakeFlowResult struct {
	Stake         *models.UserParticipation `json:"stake"`
	TransactionID string                    `json:"transaction_id,omitempty"`
	State         FlowState                 `json:"state"`
}

// CreateEvent assigns the next event id in the mirror, submits create_event
// referencing the same id, and confirms the mirror row once the wallet
// reports a transaction id. On submit failure the mirror row is kept
// unconfirmed and returned alongside the error; retrying is safe because the
// reconciler sweep confirms it if the transaction did land.
func (co *Coordinator) CreateEvent(ctx context.Context, sender, name, detail string) (*EventFlowResult, error) {
	event, err := co.repo.CreateEvent(ctx, name, detail)
	if err != nil {
		return &EventFlowResult{State: FlowStateFailed}, fmt.Errorf("mirror write failed: %w", err)
	}
	log.Printf("[Coordinator] Event %d written to mirror", event.EventID)

	txID, err := co.submitter.Submit(ctx, wallet.TransactionRequest{
		Sender:          sender,
		Network:         co.network,
		ProgramID:       co.programID,
		FunctionName:    FnCreateEvent,
		Inputs:          []string{fmt.Sprintf("%dfield", event.EventID)},
		FeeMicrocredits: co.fee,
	})
	if err != nil {
		log.Printf("[Coordinator] create_event submit failed for event %d: %v", event.EventID, err)
		return &EventFlowResult{Event: event, State: FlowStateFailed},
			fmt.Errorf("transaction submit failed: %w", err)
	}

	if err := co.repo.MarkEventChainConfirmed(ctx, event.EventID); err != nil {
		return &EventFlowResult{Event: event, TransactionID: txID, State: FlowStateSubmitted},
			fmt.Errorf("failed to confirm event in mirror: %w", err)
	}
	event.IsChainSuccess = true

	log.Printf("[Coordinator] Event %d confirmed, tx %s", event.EventID, txID)
	return &EventFlowResult{Event: event, TransactionID: txID, State: FlowStateConfirmed}, nil
}

// PlaceStake derives the stake key, accumulates the stake in the mirror,
// submits stake_public and confirms the participation row. A repeat stake on
// the same event reuses the same key, so retries accumulate instead of
// duplicating rows.
func (co *Coordinator) PlaceStake(
	ctx context.Context,
	account string,
	eventID int64,
	amount decimal.Decimal,
	prediction bool,
) (*StakeFlowResult, error) {
	if err := validateAmount(amount); err != nil {
		return &StakeFlowResult{State: FlowStateFailed}, err
	}

	if _, err := co.repo.GetEventByEventID(ctx, eventID); err != nil {
		return &StakeFlowResult{State: FlowStateFailed}, err
	}

	// Key derivation happens before any write; an unavailable hasher must
	// halt the flow rather than fall through as a zero stake.
	stakeKey, err := co.deriver.Derive(ctx, eventID, account)
	if err != nil {
		return &StakeFlowResult{State: FlowStateFailed}, err
	}

	yesAmount, noAmount := decimal.Zero, decimal.Zero
	if prediction {
		yesAmount = amount
	} else {
		noAmount = amount
	}

	stake, err := co.repo.UpsertStake(ctx, stakeKey, eventID, account, yesAmount, noAmount)
	if err != nil {
		return &StakeFlowResult{State: FlowStateFailed}, fmt.Errorf("mirror write failed: %w", err)
	}
	log.Printf("[Coordinator] Stake %s written to mirror (event %d)", stakeKey, eventID)

	txID, err := co.submitter.Submit(ctx, wallet.TransactionRequest{
		Sender:       account,
		Network:      co.network,
		ProgramID:    co.programID,
		FunctionName: FnStakePublic,
		Inputs: []string{
			fmt.Sprintf("%dfield", eventID),
			fmt.Sprintf("%su64", amount.String()),
			boolLiteral(prediction),
		},
		FeeMicrocredits: co.fee,
	})
	if err != nil {
		log.Printf("[Coordinator] stake_public submit failed for %s: %v", stakeKey, err)
		return &StakeFlowResult{Stake: stake, State: FlowStateFailed},
			fmt.Errorf("transaction submit failed: %w", err)
	}

	if err := co.repo.MarkStakeChainConfirmed(ctx, stakeKey); err != nil {
		return &StakeFlowResult{Stake: stake, TransactionID: txID, State: FlowStateSubmitted},
			fmt.Errorf("failed to confirm stake in mirror: %w", err)
	}
	stake.IsChainSuccess = true

	log.Printf("[Coordinator] Stake %s confirmed, tx %s", stakeKey, txID)
	return &StakeFlowResult{Stake: stake, TransactionID: txID, State: FlowStateConfirmed}, nil
}

// ClaimEligibility is the chain-authoritative view used to gate claims.
type ClaimEligibility struct {
	Resolved   bool            `json:"resolved"`
	Outcome    bool            `json:"outcome"`
	TotalStake decimal.Decimal `json:"total_stake"`
}

// CheckClaim reads the authoritative chain state for an account's claim on an
// event. The mirror is never consulted: claim decisions ride on the events
// and user_stake mappings alone.
func (co *Coordinator) CheckClaim(ctx context.Context, account string, eventID int64) (*ClaimEligibility, error) {
	event, err := co.reader.GetEvent(ctx, eventID)
	if errors.Is(err, chain.ErrAbsent) {
		return nil, fmt.Errorf("%w: event %d", ErrChainPending, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("chain read failed: %w", err)
	}

	eligibility := &ClaimEligibility{
		Resolved:   event.Resolved,
		Outcome:    event.Outcome,
		TotalStake: decimal.Zero,
	}

	stakeKey, err := co.deriver.Derive(ctx, eventID, account)
	if err != nil {
		return nil, err
	}

	total, err := co.reader.GetUserStake(ctx, stakeKey)
	if errors.Is(err, chain.ErrAbsent) {
		// No mapping entry: either never staked or not yet finalized.
		// Either way there is nothing claimable right now.
		return eligibility, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chain read failed: %w", err)
	}

	eligibility.TotalStake = total
	return eligibility, nil
}

// Claim gates on the chain view and submits claim_public. No transaction is
// built unless the event is resolved on-chain and the account's stake total
// covers the requested amount.
func (co *Coordinator) Claim(ctx context.Context, account string, eventID int64, amount decimal.Decimal) (string, error) {
	if err := validateAmount(amount); err != nil {
		return "", err
	}

	eligibility, err := co.CheckClaim(ctx, account, eventID)
	if err != nil {
		return "", err
	}
	if !eligibility.Resolved {
		return "", ErrEventNotResolved
	}
	if eligibility.TotalStake.IsZero() {
		return "", ErrNothingToClaim
	}
	if amount.GreaterThan(eligibility.TotalStake) {
		return "", fmt.Errorf("%w: have %s, requested %s", ErrClaimExceedsStake, eligibility.TotalStake, amount)
	}

	txID, err := co.submitter.Submit(ctx, wallet.TransactionRequest{
		Sender:       account,
		Network:      co.network,
		ProgramID:    co.programID,
		FunctionName: FnClaimPublic,
		Inputs: []string{
			fmt.Sprintf("%dfield", eventID),
			fmt.Sprintf("%su64", amount.String()),
		},
		FeeMicrocredits: co.fee,
	})
	if err != nil {
		return "", fmt.Errorf("transaction submit failed: %w", err)
	}

	log.Printf("[Coordinator] Claim submitted for event %d by %s, tx %s", eventID, account, txID)
	return txID, nil
}

// ResolveEvent submits resolve_event with the final outcome and then marks
// the mirror row resolved. The two updates are not atomically linked; the
// mirror flag is a listing hint while the events mapping stays authoritative.
func (co *Coordinator) ResolveEvent(ctx context.Context, sender string, eventID int64, outcome bool) (string, error) {
	if _, err := co.repo.GetEventByEventID(ctx, eventID); err != nil {
		return "", err
	}

	txID, err := co.submitter.Submit(ctx, wallet.TransactionRequest{
		Sender:       sender,
		Network:      co.network,
		ProgramID:    co.programID,
		FunctionName: FnResolveEvent,
		Inputs: []string{
			fmt.Sprintf("%dfield", eventID),
			boolLiteral(outcome),
		},
		FeeMicrocredits: co.fee,
	})
	if err != nil {
		return "", fmt.Errorf("transaction submit failed: %w", err)
	}

	if err := co.repo.ResolveEvent(ctx, eventID); err != nil {
		return txID, fmt.Errorf("failed to mark event resolved in mirror: %w", err)
	}

	log.Printf("[Coordinator] Event %d resolved, tx %s", eventID, txID)
	return txID, nil
}

// Unpause submits the admin unpause transaction.
func (co *Coordinator) Unpause(ctx context.Context, sender string) (string, error) {
	txID, err := co.submitter.Submit(ctx, wallet.TransactionRequest{
		Sender:          sender,
		Network:         co.network,
		ProgramID:       co.programID,
		FunctionName:    FnUnpause,
		Inputs:          []string{},
		FeeMicrocredits: co.fee,
	})
	if err != nil {
		return "", fmt.Errorf("transaction submit failed: %w", err)
	}
	return txID, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsInteger() || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func boolLiteral(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
