package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// GetOrCreateWallet returns the user's wallet, creating it on first use. A
// concurrent create loses the unique-index race and falls back to a fetch.
func (store *Store) GetOrCreateWallet(ctx context.Context, userID string) (*ledger.Wallet, bool, error) {
	db := store.conn(ctx)
	var model Wallet
	err := db.Where("user_id = ?", userID).Take(&model).Error
	if err == nil {
		return walletFromModel(&model), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, mapError("wallet", ledger.ErrWalletNotFound, err)
	}

	model = Wallet{UserID: userID, Currency: ledger.DefaultCurrency, IsActive: true}
	if err = db.Create(&model).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, mapError("wallet", ledger.ErrWalletNotFound, err)
		}
		if err = db.Where("user_id = ?", userID).Take(&model).Error; err != nil {
			return nil, false, mapError("wallet", ledger.ErrWalletNotFound, err)
		}
		return walletFromModel(&model), false, nil
	}
	return walletFromModel(&model), true, nil
}

// GetOrCreateWorkspaceWallet returns the workspace's wallet, creating it on
// first use.
func (store *Store) GetOrCreateWorkspaceWallet(ctx context.Context, workspaceID string) (*ledger.WorkspaceWallet, bool, error) {
	db := store.conn(ctx)
	var model WorkspaceWallet
	err := db.Where("workspace_id = ?", workspaceID).Take(&model).Error
	if err == nil {
		return workspaceWalletFromModel(&model), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, mapError("workspace wallet", ledger.ErrWalletNotFound, err)
	}

	model = WorkspaceWallet{WorkspaceID: workspaceID, Currency: ledger.DefaultCurrency, IsActive: true}
	if err = db.Create(&model).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, mapError("workspace wallet", ledger.ErrWalletNotFound, err)
		}
		if err = db.Where("workspace_id = ?", workspaceID).Take(&model).Error; err != nil {
			return nil, false, mapError("workspace wallet", ledger.ErrWalletNotFound, err)
		}
		return workspaceWalletFromModel(&model), false, nil
	}
	return workspaceWalletFromModel(&model), true, nil
}

// WalletByUser returns the user's wallet without creating it.
func (store *Store) WalletByUser(ctx context.Context, userID string) (*ledger.Wallet, error) {
	var model Wallet
	err := store.conn(ctx).Where("user_id = ?", userID).Take(&model).Error
	if err != nil {
		return nil, mapError("wallet", ledger.ErrWalletNotFound, err)
	}
	return walletFromModel(&model), nil
}

// WorkspaceWalletByWorkspace returns the workspace's wallet without creating it.
func (store *Store) WorkspaceWalletByWorkspace(ctx context.Context, workspaceID string) (*ledger.WorkspaceWallet, error) {
	var model WorkspaceWallet
	err := store.conn(ctx).Where("workspace_id = ?", workspaceID).Take(&model).Error
	if err != nil {
		return nil, mapError("workspace wallet", ledger.ErrWalletNotFound, err)
	}
	return workspaceWalletFromModel(&model), nil
}

// WalletForUpdate fetches a wallet under an exclusive row lock.
func (store *Store) WalletForUpdate(ctx context.Context, walletID string) (*ledger.Wallet, error) {
	var model Wallet
	err := store.locked(store.conn(ctx)).Where("wallet_id = ?", walletID).Take(&model).Error
	if err != nil {
		return nil, mapError("wallet", ledger.ErrWalletNotFound, err)
	}
	return walletFromModel(&model), nil
}

// WorkspaceWalletForUpdate fetches a workspace wallet under an exclusive row lock.
func (store *Store) WorkspaceWalletForUpdate(ctx context.Context, walletID string) (*ledger.WorkspaceWallet, error) {
	var model WorkspaceWallet
	err := store.locked(store.conn(ctx)).Where("wallet_id = ?", walletID).Take(&model).Error
	if err != nil {
		return nil, mapError("workspace wallet", ledger.ErrWalletNotFound, err)
	}
	return workspaceWalletFromModel(&model), nil
}

// SaveWallet persists a wallet's mutable fields.
func (store *Store) SaveWallet(ctx context.Context, wallet *ledger.Wallet) error {
	updates := map[string]any{
		"balance":   wallet.Balance.Int64(),
		"is_active": wallet.IsActive,
		"is_locked": wallet.IsLocked,
	}
	err := store.conn(ctx).Model(&Wallet{}).Where("wallet_id = ?", wallet.WalletID).Updates(updates).Error
	if err != nil {
		return mapError("wallet", ledger.ErrWalletNotFound, err)
	}
	return nil
}

// SaveWorkspaceWallet persists a workspace wallet's mutable fields.
func (store *Store) SaveWorkspaceWallet(ctx context.Context, wallet *ledger.WorkspaceWallet) error {
	updates := map[string]any{
		"balance":         wallet.Balance.Int64(),
		"total_earnings":  wallet.TotalEarnings.Int64(),
		"total_withdrawn": wallet.TotalWithdrawn.Int64(),
		"is_active":       wallet.IsActive,
	}
	err := store.conn(ctx).Model(&WorkspaceWallet{}).Where("wallet_id = ?", wallet.WalletID).Updates(updates).Error
	if err != nil {
		return mapError("workspace wallet", ledger.ErrWalletNotFound, err)
	}
	return nil
}

// SumCompletedByWallet sums the signed completed entries of a user wallet.
func (store *Store) SumCompletedByWallet(ctx context.Context, walletID string) (int64, error) {
	var sum sqlSum
	err := store.conn(ctx).
		Model(&Transaction{}).
		Select("coalesce(sum(case when type = 'credit' then amount else -amount end), 0) as total").
		Where("wallet_id = ? AND status = ?", walletID, string(ledger.TransactionCompleted)).
		Scan(&sum).Error
	if err != nil {
		return 0, mapError("transaction", ledger.ErrWalletNotFound, err)
	}
	return sum.Total, nil
}

// SumCompletedByWorkspaceWallet sums the signed completed entries of a
// workspace wallet.
func (store *Store) SumCompletedByWorkspaceWallet(ctx context.Context, walletID string) (int64, error) {
	var sum sqlSum
	err := store.conn(ctx).
		Model(&Transaction{}).
		Select("coalesce(sum(case when type = 'credit' then amount else -amount end), 0) as total").
		Where("workspace_wallet_id = ? AND status = ?", walletID, string(ledger.TransactionCompleted)).
		Scan(&sum).Error
	if err != nil {
		return 0, mapError("transaction", ledger.ErrWalletNotFound, err)
	}
	return sum.Total, nil
}

type sqlSum struct {
	Total int64
}

func walletFromModel(model *Wallet) *ledger.Wallet {
	return &ledger.Wallet{
		WalletID:  model.WalletID,
		UserID:    model.UserID,
		Balance:   ledger.Amount(model.Balance),
		Currency:  model.Currency,
		IsActive:  model.IsActive,
		IsLocked:  model.IsLocked,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func workspaceWalletFromModel(model *WorkspaceWallet) *ledger.WorkspaceWallet {
	return &ledger.WorkspaceWallet{
		WalletID:       model.WalletID,
		WorkspaceID:    model.WorkspaceID,
		Balance:        ledger.Amount(model.Balance),
		TotalEarnings:  ledger.Amount(model.TotalEarnings),
		TotalWithdrawn: ledger.Amount(model.TotalWithdrawn),
		Currency:       model.Currency,
		IsActive:       model.IsActive,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
