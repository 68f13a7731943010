package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserParticipation represents one account's accumulated stake on one event.
// StakeKey is the bhp256 hash of (account, native token, event id) and doubles
// as the lookup key into the program's user_stake mapping, so the row can be
// joined against authoritative chain state.
type UserParticipation struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StakeKey       string          `gorm:"size:255;uniqueIndex;not null" json:"stake_key"`
	PublicKey      string          `gorm:"size:255;not null;index" json:"public_key"`
	EventID        int64           `gorm:"not null;index" json:"event_id"`
	StakeAmountYes decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"stake_amount_yes"`
	StakeAmountNo  decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"stake_amount_no"`
	IsChainSuccess bool            `gorm:"not null;default:false" json:"is_chain_success"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserParticipation) TableName() string {
	return "user_participations"
}

func (p *UserParticipation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StakeRequest is the payload for placing (or adding to) a stake.
type StakeRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
	// Prediction true stakes yes, false stakes no.
	Prediction *bool `json:"prediction" binding:"required"`
}

// ConfirmStakeRequest marks a stake transaction as accepted by the network.
type ConfirmStakeRequest struct {
	StakeKey string `json:"stake_key" binding:"required"`
}

// ClaimRequest is the payload for claiming winnings on a resolved event.
type ClaimRequest struct {
	Amount string `json:"amount" binding:"required"`
}
