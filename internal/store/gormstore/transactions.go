package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// InsertTransaction persists a new ledger entry.
func (store *Store) InsertTransaction(ctx context.Context, transaction *ledger.Transaction) error {
	model := transactionToModel(transaction)
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return mapError("transaction", faults.New(faults.KindNotFound, "transaction not found"), err)
	}
	transaction.TransactionID = model.TransactionID
	transaction.CreatedAt = model.CreatedAt
	transaction.UpdatedAt = model.UpdatedAt
	return nil
}

// SaveTransaction persists the mutable fields of an existing ledger entry.
func (store *Store) SaveTransaction(ctx context.Context, transaction *ledger.Transaction) error {
	updates := map[string]any{
		"category":       string(transaction.Category),
		"status":         string(transaction.Status),
		"balance_before": transaction.BalanceBefore.Int64(),
		"balance_after":  transaction.BalanceAfter.Int64(),
		"description":    transaction.Description,
		"processed_at":   transaction.ProcessedAt,
		"failed_at":      transaction.FailedAt,
		"failure_reason": transaction.FailureReason,
	}
	err := store.conn(ctx).
		Model(&Transaction{}).
		Where("transaction_id = ?", transaction.TransactionID).
		Updates(updates).Error
	if err != nil {
		return mapError("transaction", faults.New(faults.KindNotFound, "transaction not found"), err)
	}
	return nil
}

// FindPendingBookingPayment returns the booking's held payment, or nil when
// none is pending.
func (store *Store) FindPendingBookingPayment(ctx context.Context, bookingID string) (*ledger.Transaction, error) {
	var model Transaction
	err := store.locked(store.conn(ctx)).
		Where("booking_id = ? AND category = ? AND status = ?",
			bookingID, string(ledger.CategoryBookingPayment), string(ledger.TransactionPending)).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.KindInternal, "pending payment lookup failed", err)
	}
	return transactionFromModel(&model), nil
}

// ClaimPendingTransaction conditionally flips an entry out of pending.
// RowsAffected decides the race: false means another caller settled it first.
func (store *Store) ClaimPendingTransaction(ctx context.Context, transactionID string, to ledger.TransactionStatus) (bool, error) {
	result := store.conn(ctx).
		Model(&Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, string(ledger.TransactionPending)).
		Update("status", string(to))
	if result.Error != nil {
		return false, faults.Wrap(faults.KindInternal, "pending payment claim failed", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func transactionToModel(transaction *ledger.Transaction) *Transaction {
	createdAt := transaction.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Transaction{
		TransactionID:     transaction.TransactionID,
		Reference:         transaction.Reference,
		Type:              string(transaction.Type),
		Category:          string(transaction.Category),
		Amount:            transaction.Amount.Int64(),
		Currency:          transaction.Currency,
		WalletID:          optionalString(transaction.WalletID),
		WorkspaceWalletID: optionalString(transaction.WorkspaceWalletID),
		BookingID:         optionalString(transaction.BookingID),
		BalanceBefore:     transaction.BalanceBefore.Int64(),
		BalanceAfter:      transaction.BalanceAfter.Int64(),
		Status:            string(transaction.Status),
		Description:       transaction.Description,
		Metadata:          metadataJSON(transaction.Metadata),
		ProcessedAt:       transaction.ProcessedAt,
		FailedAt:          transaction.FailedAt,
		FailureReason:     transaction.FailureReason,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

func transactionFromModel(model *Transaction) *ledger.Transaction {
	return &ledger.Transaction{
		TransactionID:     model.TransactionID,
		Reference:         model.Reference,
		Type:              ledger.TransactionType(model.Type),
		Category:          ledger.Category(model.Category),
		Amount:            ledger.Amount(model.Amount),
		Currency:          model.Currency,
		WalletID:          stringOrEmpty(model.WalletID),
		WorkspaceWalletID: stringOrEmpty(model.WorkspaceWalletID),
		BookingID:         stringOrEmpty(model.BookingID),
		BalanceBefore:     ledger.Amount(model.BalanceBefore),
		BalanceAfter:      ledger.Amount(model.BalanceAfter),
		Status:            ledger.TransactionStatus(model.Status),
		Description:       model.Description,
		Metadata:          metadataMap(model.Metadata),
		ProcessedAt:       model.ProcessedAt,
		FailedAt:          model.FailedAt,
		FailureReason:     model.FailureReason,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
