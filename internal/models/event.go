package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event represents one prediction market mirrored off-chain.
// The numeric EventID is the identifier shared with the on-chain program:
// it is assigned here as max+1 and passed to create_event as a field literal.
type Event struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventID        int64           `gorm:"uniqueIndex;not null" json:"event_id"`
	EventName      string          `gorm:"size:255;not null" json:"event_name"`
	EventDetail    string          `gorm:"type:text" json:"event_detail"`
	IsResolved     bool            `gorm:"not null;default:false" json:"is_resolved"`
	IsChainSuccess bool            `gorm:"not null;default:false" json:"is_chain_success"`
	TotalYesVote   decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"total_yes_vote"`
	TotalNoVote    decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"total_no_vote"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CreateEventRequest is the payload for creating a new market.
type CreateEventRequest struct {
	EventName   string `json:"event_name" binding:"required"`
	EventDetail string `json:"event_detail" binding:"required"`
}

// ConfirmEventRequest marks an event's creation transaction as accepted.
type ConfirmEventRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// ResolveEventRequest resolves a market with its final outcome.
type ResolveEventRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
	Outcome *bool `json:"outcome" binding:"required"`
}
