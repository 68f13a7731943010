package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"zkpredict/internal/chain"
	"zkpredict/internal/repository"
)

const sweepBatchSize = 100

// ReconcilerJob sweeps mirror rows that were written optimistically but never
// confirmed (abandoned wallet prompts, confirm calls lost after a broadcast).
// The chain is the source of truth: when a mapping entry appears for an
// unconfirmed row, the mirror confirm flag is flipped.
type ReconcilerJob struct {
	repo   *repository.Repository
	reader *chain.Reader
}

func NewReconcilerJob(repo *repository.Repository, reader *chain.Reader) *ReconcilerJob {
	return &ReconcilerJob{
		repo:   repo,
		reader: reader,
	}
}

// Start begins the periodic reconciliation sweep
func (j *ReconcilerJob) Start(interval time.Duration) {
	go func() {
		ctx := context.Background()
		if err := j.Sweep(ctx); err != nil {
			log.Printf("Initial reconcile error: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := j.Sweep(ctx); err != nil {
				log.Printf("Reconcile error: %v", err)
			}
		}
	}()
}

// Sweep runs one reconciliation pass over unconfirmed events and stakes.
func (j *ReconcilerJob) Sweep(ctx context.Context) error {
	events, err := j.repo.ListUnconfirmedEvents(ctx, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if _, err := j.reader.GetEvent(ctx, event.EventID); err != nil {
			if errors.Is(err, chain.ErrAbsent) {
				continue // still pending, keep the optimistic row as-is
			}
			log.Printf("[Reconciler] Chain read failed for event %d: %v", event.EventID, err)
			continue
		}

		if err := j.repo.MarkEventChainConfirmed(ctx, event.EventID); err != nil {
			log.Printf("[Reconciler] Failed to confirm event %d: %v", event.EventID, err)
			continue
		}
		log.Printf("[Reconciler] Event %d found on-chain, mirror confirmed", event.EventID)
	}

	stakes, err := j.repo.ListUnconfirmedStakes(ctx, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, stake := range stakes {
		if _, err := j.reader.GetUserStake(ctx, stake.StakeKey); err != nil {
			if errors.Is(err, chain.ErrAbsent) {
				continue
			}
			log.Printf("[Reconciler] Chain read failed for stake %s: %v", stake.StakeKey, err)
			continue
		}

		if err := j.repo.MarkStakeChainConfirmed(ctx, stake.StakeKey); err != nil {
			log.Printf("[Reconciler] Failed to confirm stake %s: %v", stake.StakeKey, err)
			continue
		}
		log.Printf("[Reconciler] Stake %s found on-chain, mirror confirmed", stake.StakeKey)
	}

	return nil
}
