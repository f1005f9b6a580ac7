package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/videostreampro/adcore/money"
	"gorm.io/gorm"
)

// TransactionType narrows the teacher's much larger enum (which also
// covered freeze/lock/agency-share states this domain doesn't have) down
// to the two ledger operations spec §3 names.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionStatus mirrors spec §3's Transaction.status enum exactly.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// Transaction is an append-only wallet ledger entry (spec §3). Grounded on
// the teacher's models/transaction.go: UUID + CorrelationID identity,
// immutable-after-completion semantics, BalanceBefore/BalanceAfter audit
// columns. Amount-related fields and the Atipay-specific external
// reference columns were generalized from Tomans/Atipay to the core's
// plain Cents type and a payment-method-agnostic reference string.
type Transaction struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"`

	Type     TransactionType   `gorm:"type:varchar(10);not null;index" json:"type"`
	Status   TransactionStatus `gorm:"type:varchar(12);not null;default:'pending';index" json:"status"`
	Amount   money.Cents       `gorm:"not null" json:"amount"`
	Currency string            `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	WalletID uint `gorm:"not null;index" json:"wallet_id"`

	BalanceBefore money.Cents `gorm:"not null" json:"balance_before"`
	BalanceAfter  money.Cents `gorm:"not null" json:"balance_after"`

	// CampaignID / AdID attribute the transaction to the entity whose
	// budget triggered it (campaign creation allocation, ad budget
	// reassignment). Both are nil for plain top-up/withdrawal transactions.
	CampaignID *uint `gorm:"index" json:"campaign_id,omitempty"`
	AdID       *uint `gorm:"index" json:"ad_id,omitempty"`

	PaymentMethod string `gorm:"type:varchar(30);not null;default:'wallet'" json:"payment_method"`
	ReferenceID   string `gorm:"type:varchar(255);index" json:"reference_id,omitempty"`
	Description   string `gorm:"type:text" json:"description"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Wallet Wallet `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
}

// TableName overrides the pluralized default.
func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate ensures UUID and CorrelationID are set.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CorrelationID == uuid.Nil {
		t.CorrelationID = uuid.New()
	}
	return nil
}

// IsCompleted reports whether the transaction reached a terminal state.
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled ||
		t.Status == TransactionStatusRefunded
}

// TransactionFilter mirrors the teacher's *Filter convention.
type TransactionFilter struct {
	ID            *uint              `json:"id,omitempty"`
	UUID          *uuid.UUID         `json:"uuid,omitempty"`
	CorrelationID *uuid.UUID         `json:"correlation_id,omitempty"`
	Type          *TransactionType   `json:"type,omitempty"`
	Status        *TransactionStatus `json:"status,omitempty"`
	WalletID      *uint              `json:"wallet_id,omitempty"`
	CampaignID    *uint              `json:"campaign_id,omitempty"`
	AdID          *uint              `json:"ad_id,omitempty"`
	ReferenceID   *string            `json:"reference_id,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}
