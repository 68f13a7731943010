package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"zkpredict/internal/chain"
	"zkpredict/internal/models"
	"zkpredict/internal/repository"
	"zkpredict/internal/stakekey"
	"zkpredict/internal/wallet"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testProgramID = "zkpredict_v1.aleo"
	testAccount   = "aleo1testaccount"
	testAdmin     = "aleo1adminaccount"
)

func setupTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}, &models.UserParticipation{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return repository.NewRepository(db)
}

// fakeSubmitter records submitted transactions and returns a canned result.
type fakeSubmitter struct {
	requests []wallet.TransactionRequest
	txID     string
	err      error
}

func (f *fakeSubmitter) Submit(ctx context.Context, tx wallet.TransactionRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, tx)
	return f.txID, nil
}

// fakeReader serves a fixed chain view.
type fakeReader struct {
	event      *chain.ChainEvent
	eventErr   error
	userStake  decimal.Decimal
	stakeErr   error
	stakeReads int
}

func (f *fakeReader) GetEvent(ctx context.Context, eventID int64) (*chain.ChainEvent, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	return f.event, nil
}

func (f *fakeReader) GetUserStake(ctx context.Context, stakeKey string) (decimal.Decimal, error) {
	f.stakeReads++
	if f.stakeErr != nil {
		return decimal.Zero, f.stakeErr
	}
	return f.userStake, nil
}

// fakeDeriver derives stable keys without the hasher service.
type fakeDeriver struct {
	err error
}

func (f *fakeDeriver) Derive(ctx context.Context, eventID int64, account string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("key-%d-%s", eventID, account), nil
}

func newTestCoordinator(repo *repository.Repository, reader chainReader, deriver keyDeriver, submitter wallet.Submitter) *Coordinator {
	return NewCoordinator(repo, reader, deriver, submitter, testProgramID, "testnet", 1_000_000)
}

func TestCreateEventFlowConfirmsMirror(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, submitter)

	result, err := co.CreateEvent(context.Background(), testAdmin, "Will X happen", "desc")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if result.State != FlowStateConfirmed {
		t.Errorf("Expected CONFIRMED, got %s", result.State)
	}
	if result.Event.EventID != 1 {
		t.Errorf("Expected event id 1, got %d", result.Event.EventID)
	}
	if result.TransactionID != "at1tx" {
		t.Errorf("Expected transaction id at1tx, got %s", result.TransactionID)
	}

	if len(submitter.requests) != 1 {
		t.Fatalf("Expected one submitted transaction, got %d", len(submitter.requests))
	}
	tx := submitter.requests[0]
	if tx.FunctionName != FnCreateEvent || tx.ProgramID != testProgramID {
		t.Errorf("Unexpected transaction target: %s %s", tx.ProgramID, tx.FunctionName)
	}
	if len(tx.Inputs) != 1 || tx.Inputs[0] != "1field" {
		t.Errorf("Expected inputs [1field], got %v", tx.Inputs)
	}

	stored, err := repo.GetEventByEventID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetEventByEventID failed: %v", err)
	}
	if !stored.IsChainSuccess {
		t.Errorf("Expected mirror row confirmed")
	}
}

func TestCreateEventSubmitFailureKeepsOptimisticRow(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{err: errors.New("user rejected signing")}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, submitter)

	result, err := co.CreateEvent(context.Background(), testAdmin, "Will X happen", "desc")
	if err == nil {
		t.Fatalf("Expected error on submit failure")
	}
	if result.State != FlowStateFailed {
		t.Errorf("Expected FAILED, got %s", result.State)
	}
	if result.Event == nil {
		t.Fatalf("Expected the mirror row to be surfaced with the failure")
	}

	// No rollback: the row stays, unconfirmed, for retry or the sweep.
	stored, err := repo.GetEventByEventID(context.Background(), result.Event.EventID)
	if err != nil {
		t.Fatalf("GetEventByEventID failed: %v", err)
	}
	if stored.IsChainSuccess {
		t.Errorf("Row must remain unconfirmed after submit failure")
	}
}

func TestPlaceStakeThenRestakeAccumulates(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, submitter)
	ctx := context.Background()

	if _, err := co.CreateEvent(ctx, testAdmin, "Will X happen", "desc"); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	result, err := co.PlaceStake(ctx, testAccount, 1, decimal.NewFromInt(1_000_000), true)
	if err != nil {
		t.Fatalf("PlaceStake failed: %v", err)
	}
	if result.State != FlowStateConfirmed {
		t.Errorf("Expected CONFIRMED, got %s", result.State)
	}
	if !result.Stake.IsChainSuccess {
		t.Errorf("Expected stake confirmed")
	}

	result, err = co.PlaceStake(ctx, testAccount, 1, decimal.NewFromInt(500_000), true)
	if err != nil {
		t.Fatalf("Second PlaceStake failed: %v", err)
	}
	if result.Stake.StakeAmountYes.String() != "1500000" {
		t.Errorf("Expected accumulated 1500000, got %s", result.Stake.StakeAmountYes)
	}

	event, _ := repo.GetEventByEventID(ctx, 1)
	if event.TotalYesVote.String() != "1500000" {
		t.Errorf("Expected event total 1500000, got %s", event.TotalYesVote)
	}

	// create_event + two stake_public submissions
	if len(submitter.requests) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(submitter.requests))
	}
	tx := submitter.requests[2]
	if tx.FunctionName != FnStakePublic {
		t.Errorf("Expected stake_public, got %s", tx.FunctionName)
	}
	want := []string{"1field", "500000u64", "true"}
	for i, input := range want {
		if tx.Inputs[i] != input {
			t.Errorf("Input %d: expected %s, got %s", i, input, tx.Inputs[i])
		}
	}
}

func TestPlaceStakeNoPredictionStakesNoSide(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, submitter)
	ctx := context.Background()

	if _, err := co.CreateEvent(ctx, testAdmin, "Will X happen", "desc"); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	result, err := co.PlaceStake(ctx, testAccount, 1, decimal.NewFromInt(300), false)
	if err != nil {
		t.Fatalf("PlaceStake failed: %v", err)
	}
	if !result.Stake.StakeAmountYes.IsZero() || result.Stake.StakeAmountNo.String() != "300" {
		t.Errorf("Expected 0/300, got %s/%s", result.Stake.StakeAmountYes, result.Stake.StakeAmountNo)
	}

	tx := submitter.requests[len(submitter.requests)-1]
	if tx.Inputs[2] != "false" {
		t.Errorf("Expected prediction literal false, got %s", tx.Inputs[2])
	}
}

func TestPlaceStakeKeyUnavailableHaltsBeforeMirrorWrite(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{err: stakekey.ErrHasherUnavailable}, submitter)
	ctx := context.Background()

	if _, err := co.CreateEvent(ctx, testAdmin, "Will X happen", "desc"); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	_, err := co.PlaceStake(ctx, testAccount, 1, decimal.NewFromInt(100), true)
	if !errors.Is(err, stakekey.ErrHasherUnavailable) {
		t.Fatalf("Expected ErrHasherUnavailable, got %v", err)
	}

	stakes, _ := repo.FindStakesByAccount(ctx, testAccount)
	if len(stakes) != 0 {
		t.Errorf("No mirror row may be written when the key is unavailable")
	}
	// create_event only
	if len(submitter.requests) != 1 {
		t.Errorf("No stake transaction may be submitted, got %d submissions", len(submitter.requests))
	}
}

func TestPlaceStakeRejectsBadAmounts(t *testing.T) {
	repo := setupTestRepo(t)
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, &fakeSubmitter{txID: "at1tx"})
	ctx := context.Background()

	for _, raw := range []string{"0", "-5", "1.5"} {
		amount, _ := decimal.NewFromString(raw)
		if _, err := co.PlaceStake(ctx, testAccount, 1, amount, true); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Amount %s: expected ErrInvalidAmount, got %v", raw, err)
		}
	}
}

func TestPlaceStakeUnknownEvent(t *testing.T) {
	repo := setupTestRepo(t)
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, &fakeSubmitter{txID: "at1tx"})

	_, err := co.PlaceStake(context.Background(), testAccount, 42, decimal.NewFromInt(100), true)
	if !errors.Is(err, repository.ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound, got %v", err)
	}
}

func TestClaimRejectedWhenUnresolved(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	reader := &fakeReader{event: &chain.ChainEvent{Resolved: false}}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, submitter)

	_, err := co.Claim(context.Background(), testAccount, 1, decimal.NewFromInt(100))
	if !errors.Is(err, ErrEventNotResolved) {
		t.Fatalf("Expected ErrEventNotResolved, got %v", err)
	}
	if len(submitter.requests) != 0 {
		t.Errorf("No transaction may be built before the resolve gate")
	}
}

func TestClaimRejectedWithNothingToClaim(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1tx"}
	reader := &fakeReader{
		event:    &chain.ChainEvent{Resolved: true, Outcome: true},
		stakeErr: chain.ErrAbsent,
	}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, submitter)

	_, err := co.Claim(context.Background(), testAccount, 1, decimal.NewFromInt(100))
	if !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("Expected ErrNothingToClaim, got %v", err)
	}
	if len(submitter.requests) != 0 {
		t.Errorf("No transaction may be built with nothing to claim")
	}
}

func TestClaimRejectedWhenExceedingStake(t *testing.T) {
	repo := setupTestRepo(t)
	reader := &fakeReader{
		event:     &chain.ChainEvent{Resolved: true, Outcome: true},
		userStake: decimal.NewFromInt(500),
	}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, &fakeSubmitter{txID: "at1tx"})

	_, err := co.Claim(context.Background(), testAccount, 1, decimal.NewFromInt(501))
	if !errors.Is(err, ErrClaimExceedsStake) {
		t.Fatalf("Expected ErrClaimExceedsStake, got %v", err)
	}
}

func TestClaimSubmitsTypedInputs(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1claim"}
	reader := &fakeReader{
		event:     &chain.ChainEvent{Resolved: true, Outcome: true},
		userStake: decimal.NewFromInt(1_000_000),
	}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, submitter)

	txID, err := co.Claim(context.Background(), testAccount, 7, decimal.NewFromInt(400_000))
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if txID != "at1claim" {
		t.Errorf("Expected tx id at1claim, got %s", txID)
	}

	tx := submitter.requests[0]
	if tx.FunctionName != FnClaimPublic {
		t.Errorf("Expected claim_public, got %s", tx.FunctionName)
	}
	if tx.Inputs[0] != "7field" || tx.Inputs[1] != "400000u64" {
		t.Errorf("Unexpected inputs: %v", tx.Inputs)
	}
}

func TestCheckClaimPendingWhenEventAbsent(t *testing.T) {
	repo := setupTestRepo(t)
	reader := &fakeReader{eventErr: chain.ErrAbsent}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, &fakeSubmitter{txID: "at1tx"})

	_, err := co.CheckClaim(context.Background(), testAccount, 1)
	if !errors.Is(err, ErrChainPending) {
		t.Errorf("Expected ErrChainPending for absent event, got %v", err)
	}
}

func TestCheckClaimReadFailureIsNotPending(t *testing.T) {
	repo := setupTestRepo(t)
	reader := &fakeReader{eventErr: errors.New("connection refused")}
	co := newTestCoordinator(repo, reader, &fakeDeriver{}, &fakeSubmitter{txID: "at1tx"})

	_, err := co.CheckClaim(context.Background(), testAccount, 1)
	if err == nil || errors.Is(err, ErrChainPending) {
		t.Errorf("Read failure must propagate as a hard error, got %v", err)
	}
}

func TestResolveEventMarksMirror(t *testing.T) {
	repo := setupTestRepo(t)
	submitter := &fakeSubmitter{txID: "at1resolve"}
	co := newTestCoordinator(repo, &fakeReader{}, &fakeDeriver{}, submitter)
	ctx := context.Background()

	if _, err := co.CreateEvent(ctx, testAdmin, "Will X happen", "desc"); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	txID, err := co.ResolveEvent(ctx, testAdmin, 1, true)
	if err != nil {
		t.Fatalf("ResolveEvent failed: %v", err)
	}
	if txID != "at1resolve" {
		t.Errorf("Expected tx id at1resolve, got %s", txID)
	}

	tx := submitter.requests[len(submitter.requests)-1]
	if tx.FunctionName != FnResolveEvent {
		t.Errorf("Expected resolve_event, got %s", tx.FunctionName)
	}
	if tx.Inputs[0] != "1field" || tx.Inputs[1] != "true" {
		t.Errorf("Unexpected inputs: %v", tx.Inputs)
	}

	event, _ := repo.GetEventByEventID(ctx, 1)
	if !event.IsResolved {
		t.Errorf("Expected mirror row resolved")
	}
}
