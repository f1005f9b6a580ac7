package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/videostreampro/adcore/money"
	"gorm.io/gorm"
)

// Wallet represents a single owning user's balance. Spec §3 models a
// wallet as one balance plus a currency, mutated only through the Wallet
// Ledger's transact() (see repository.WalletRepository). Adapted from the
// teacher's models/wallet.go, which split balance across a separate
// BalanceSnapshot table (free/frozen/locked tiers); this domain has no
// freeze/lock states, so the balance lives directly on the wallet row and
// Transaction.BalanceBefore/BalanceAfter (see transaction.go) carry the
// audit trail the snapshot table used to provide.
type Wallet struct {
	ID       uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	OwnerID  uint        `gorm:"not null;uniqueIndex;index" json:"owner_id"`
	Balance  money.Cents `gorm:"not null;default:0" json:"balance"`
	Currency string      `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:WalletID" json:"transactions,omitempty"`
}

// TableName overrides the pluralized default, matching the teacher's
// convention of naming tables explicitly.
func (Wallet) TableName() string {
	return "wallets"
}

// WalletFilter mirrors the teacher's *Filter structs used by BaseRepository.
type WalletFilter struct {
	ID      *uint      `json:"id,omitempty"`
	UUID    *uuid.UUID `json:"uuid,omitempty"`
	OwnerID *uint      `json:"owner_id,omitempty"`
}

// BeforeCreate ensures UUID and a default currency are set.
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	if w.Currency == "" {
		w.Currency = "USD"
	}
	return nil
}
