package repository

import (
	"context"
	"errors"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepositoryImpl implements WalletRepository. Grounded on the
// teacher's repository/wallet_repository.go (ByID/ByUUID/ByFilter shape,
// getDB/getDBForWrite plumbing); the BalanceSnapshot history table is
// dropped in favor of a direct Balance column (see models.Wallet), so
// Credit/Debit replace SaveWithInitialSnapshot/GetCurrentBalance as the
// ledger's two mutating entry points (spec §4.3).
type WalletRepositoryImpl struct {
	*BaseRepository[models.Wallet, models.WalletFilter]
}

// NewWalletRepository creates a new wallet repository.
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &WalletRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Wallet, models.WalletFilter](db),
	}
}

// ByID finds a wallet by ID.
func (r *WalletRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Last(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// ByUUID finds a wallet by UUID.
func (r *WalletRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("uuid = ?", uuid).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// ByOwnerID finds a wallet by its owning user's ID.
func (r *WalletRepositoryImpl) ByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("owner_id = ?", ownerID).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// ByOwnerIDForUpdate locks the owning user's wallet row within the
// caller's transaction, the first step of every ledger mutation
// (spec §4.3).
func (r *WalletRepositoryImpl) ByOwnerIDForUpdate(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// Credit increases a locked wallet's balance and appends a completed
// ledger Transaction row. Callers must hold the wallet row lock (via
// ByOwnerIDForUpdate) within the same transaction context.
func (r *WalletRepositoryImpl) Credit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error) {
	return r.mutate(ctx, walletID, amount, true, txType, campaignID, adID, description)
}

// Debit decreases a locked wallet's balance and appends a completed
// ledger Transaction row. Returns money.ErrInsufficientFunds if the
// balance would go negative.
func (r *WalletRepositoryImpl) Debit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error) {
	return r.mutate(ctx, walletID, amount, false, txType, campaignID, adID, description)
}

func (r *WalletRepositoryImpl) mutate(ctx context.Context, walletID uint, amount money.Cents, credit bool, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error) {
	db := r.getDB(ctx)

	var wallet models.Wallet
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, walletID).Error; err != nil {
		return nil, err
	}

	before := wallet.Balance
	var after money.Cents
	if credit {
		after = before.Add(amount)
	} else {
		var err error
		after, err = before.Sub(amount)
		if err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", after).Error; err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		Type:          txType,
		Status:        models.TransactionStatusCompleted,
		Amount:        amount,
		Currency:      wallet.Currency,
		WalletID:      walletID,
		BalanceBefore: before,
		BalanceAfter:  after,
		CampaignID:    campaignID,
		AdID:          adID,
		Description:   description,
	}
	if err := db.Create(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}

// ByFilter retrieves wallets based on filter criteria.
func (r *WalletRepositoryImpl) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallets []*models.Wallet

	query := db.Model(&models.Wallet{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// Count returns the number of wallets matching the filter.
func (r *WalletRepositoryImpl) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Wallet{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any wallet matching the filter exists.
func (r *WalletRepositoryImpl) Exists(ctx context.Context, filter models.WalletFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *WalletRepositoryImpl) applyFilter(query *gorm.DB, filter models.WalletFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	return query
}
