package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"zkpredict/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createRetries bounds the retry loop for event id assignment when two
// creators race on the same max+1 and the unique index rejects the loser.
const createRetries = 3

// ErrEventNotFound is returned when an operation references an unknown event.
var ErrEventNotFound = errors.New("repository: event not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateEvent inserts a new event with the next sequential event id.
// The read-max-then-insert runs inside a transaction and relies on the unique
// index on event_id: if a concurrent creator wins the same id, the insert
// fails and the assignment is retried with a fresh max.
func (r *Repository) CreateEvent(ctx context.Context, name, detail string) (*models.Event, error) {
	var created *models.Event

	for attempt := 0; attempt < createRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxID int64
			if err := tx.Model(&models.Event{}).
				Select("COALESCE(MAX(event_id), 0)").
				Scan(&maxID).Error; err != nil {
				return err
			}

			event := &models.Event{
				EventID:      maxID + 1,
				EventName:    name,
				EventDetail:  detail,
				TotalYesVote: decimal.Zero,
				TotalNoVote:  decimal.Zero,
			}
			if err := tx.Create(event).Error; err != nil {
				return err
			}

			created = event
			return nil
		})

		if err == nil {
			return created, nil
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("failed to create event: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to create event: id assignment kept conflicting after %d attempts", createRetries)
}

// GetEventByEventID retrieves an event by its numeric event id.
func (r *Repository) GetEventByEventID(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents retrieves events ordered by event id descending.
func (r *Repository) ListEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Order("event_id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkEventChainConfirmed flips is_chain_success to true for an event.
// Monotonic and idempotent: re-applying on a confirmed event is a no-op.
func (r *Repository) MarkEventChainConfirmed(ctx context.Context, eventID int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Update("is_chain_success", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ResolveEvent flips is_resolved to true for an event. Idempotent.
func (r *Repository) ResolveEvent(ctx context.Context, eventID int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Update("is_resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// UpsertStake records a stake. A first stake inserts the participation row;
// a repeat stake by the same account on the same event accumulates onto the
// stored amounts. The event's aggregate counters receive the same delta.
// Both writes run in one transaction with in-database increments, so
// concurrent stakes on the same event or the same stake key cannot lose
// updates.
func (r *Repository) UpsertStake(
	ctx context.Context,
	stakeKey string,
	eventID int64,
	publicKey string,
	yesAmount decimal.Decimal,
	noAmount decimal.Decimal,
) (*models.UserParticipation, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).
			Where("event_id = ?", eventID).
			Updates(map[string]interface{}{
				"total_yes_vote": gorm.Expr("total_yes_vote + ?", yesAmount),
				"total_no_vote":  gorm.Expr("total_no_vote + ?", noAmount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEventNotFound
		}

		participation := &models.UserParticipation{
			StakeKey:       stakeKey,
			PublicKey:      publicKey,
			EventID:        eventID,
			StakeAmountYes: yesAmount,
			StakeAmountNo:  noAmount,
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stake_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"stake_amount_yes": gorm.Expr("user_participations.stake_amount_yes + ?", yesAmount),
				"stake_amount_no":  gorm.Expr("user_participations.stake_amount_no + ?", noAmount),
				"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(participation).Error
	})
	if err != nil {
		return nil, err
	}

	return r.GetStakeByKey(ctx, stakeKey)
}

// GetStakeByKey retrieves a participation row by its stake key.
func (r *Repository) GetStakeByKey(ctx context.Context, stakeKey string) (*models.UserParticipation, error) {
	var stake models.UserParticipation
	err := r.db.WithContext(ctx).Where("stake_key = ?", stakeKey).First(&stake).Error
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// MarkStakeChainConfirmed flips is_chain_success to true for a stake.
// Monotonic and idempotent, analogous to event confirmation.
func (r *Repository) MarkStakeChainConfirmed(ctx context.Context, stakeKey string) error {
	res := r.db.WithContext(ctx).
		Model(&models.UserParticipation{}).
		Where("stake_key = ?", stakeKey).
		Update("is_chain_success", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindStakesByAccount retrieves all participations for one account.
func (r *Repository) FindStakesByAccount(ctx context.Context, publicKey string) ([]*models.UserParticipation, error) {
	var stakes []*models.UserParticipation
	err := r.db.WithContext(ctx).
		Where("public_key = ?", publicKey).
		Order("created_at DESC").
		Find(&stakes).Error
	if err != nil {
		return nil, err
	}
	return stakes, nil
}

// FindStakeByAccountAndEvent retrieves one account's participation on one
// event, or nil when the account never staked it.
func (r *Repository) FindStakeByAccountAndEvent(ctx context.Context, publicKey string, eventID int64) (*models.UserParticipation, error) {
	var stake models.UserParticipation
	err := r.db.WithContext(ctx).
		Where("public_key = ? AND event_id = ?", publicKey, eventID).
		First(&stake).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// ListUnconfirmedEvents retrieves events still awaiting chain confirmation.
func (r *Repository) ListUnconfirmedEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("is_chain_success = ?", false).
		Order("event_id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListUnconfirmedStakes retrieves participations still awaiting confirmation.
func (r *Repository) ListUnconfirmedStakes(ctx context.Context, limit int) ([]*models.UserParticipation, error) {
	var stakes []*models.UserParticipation
	err := r.db.WithContext(ctx).
		Where("is_chain_success = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&stakes).Error
	if err != nil {
		return nil, err
	}
	return stakes, nil
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// Covers gorm's translated error plus the raw Postgres and SQLite messages,
// since error translation depends on driver configuration.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
