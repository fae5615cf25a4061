package gormstore

import (
	"context"

	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
)

// CreateDeposit persists a new deposit.
func (store *Store) CreateDeposit(ctx context.Context, deposit *payment.Deposit) error {
	model := &Deposit{
		DepositID:        deposit.DepositID,
		WalletID:         deposit.WalletID,
		UserID:           deposit.UserID,
		Amount:           deposit.Amount.Int64(),
		PaymentMethod:    deposit.PaymentMethod,
		Reference:        deposit.Reference,
		GatewayReference: deposit.GatewayReference,
		Status:           string(deposit.Status),
	}
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return mapError("deposit", payment.ErrDepositNotFound, err)
	}
	deposit.DepositID = model.DepositID
	deposit.CreatedAt = model.CreatedAt
	deposit.UpdatedAt = model.UpdatedAt
	return nil
}

// DepositByReference fetches a deposit by its platform reference.
func (store *Store) DepositByReference(ctx context.Context, reference string) (*payment.Deposit, error) {
	var model Deposit
	err := store.conn(ctx).Where("reference = ?", reference).Take(&model).Error
	if err != nil {
		return nil, mapError("deposit", payment.ErrDepositNotFound, err)
	}
	return depositFromModel(&model), nil
}

// SaveDeposit persists a deposit's mutable fields.
func (store *Store) SaveDeposit(ctx context.Context, deposit *payment.Deposit) error {
	updates := map[string]any{
		"gateway_reference": deposit.GatewayReference,
		"status":            string(deposit.Status),
		"failure_reason":    deposit.FailureReason,
		"completed_at":      deposit.CompletedAt,
	}
	err := store.conn(ctx).
		Model(&Deposit{}).
		Where("deposit_id = ?", deposit.DepositID).
		Updates(updates).Error
	if err != nil {
		return mapError("deposit", payment.ErrDepositNotFound, err)
	}
	return nil
}

// ClaimDeposit conditionally flips a deposit out of pending. RowsAffected
// decides the race so a repeated verification can never credit twice.
func (store *Store) ClaimDeposit(ctx context.Context, depositID string, to payment.Status) (bool, error) {
	result := store.conn(ctx).
		Model(&Deposit{}).
		Where("deposit_id = ? AND status = ?", depositID, string(payment.StatusPending)).
		Update("status", string(to))
	if result.Error != nil {
		return false, faults.Wrap(faults.KindInternal, "deposit claim failed", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CreateWithdrawal persists a new withdrawal request.
func (store *Store) CreateWithdrawal(ctx context.Context, request *payment.WithdrawalRequest) error {
	model := &WithdrawalRequest{
		WithdrawalID:      request.WithdrawalID,
		WorkspaceWalletID: request.WorkspaceWalletID,
		WorkspaceID:       request.WorkspaceID,
		Amount:            request.Amount.Int64(),
		Fee:               request.Fee.Int64(),
		NetAmount:         request.NetAmount.Int64(),
		AccountNumber:     request.AccountNumber,
		AccountName:       request.AccountName,
		BankCode:          request.BankCode,
		Reference:         request.Reference,
		Status:            string(request.Status),
		Notes:             request.Notes,
	}
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return mapError("withdrawal request", payment.ErrWithdrawalNotFound, err)
	}
	request.WithdrawalID = model.WithdrawalID
	request.CreatedAt = model.CreatedAt
	request.UpdatedAt = model.UpdatedAt
	return nil
}

// GetWithdrawal fetches a withdrawal request under an exclusive row lock.
func (store *Store) GetWithdrawal(ctx context.Context, withdrawalID string) (*payment.WithdrawalRequest, error) {
	var model WithdrawalRequest
	err := store.locked(store.conn(ctx)).Where("withdrawal_id = ?", withdrawalID).Take(&model).Error
	if err != nil {
		return nil, mapError("withdrawal request", payment.ErrWithdrawalNotFound, err)
	}
	return withdrawalFromModel(&model), nil
}

// SaveWithdrawal persists a withdrawal request's mutable fields.
func (store *Store) SaveWithdrawal(ctx context.Context, request *payment.WithdrawalRequest) error {
	updates := map[string]any{
		"status":       string(request.Status),
		"notes":        request.Notes,
		"processed_at": request.ProcessedAt,
		"completed_at": request.CompletedAt,
	}
	err := store.conn(ctx).
		Model(&WithdrawalRequest{}).
		Where("withdrawal_id = ?", request.WithdrawalID).
		Updates(updates).Error
	if err != nil {
		return mapError("withdrawal request", payment.ErrWithdrawalNotFound, err)
	}
	return nil
}

func depositFromModel(model *Deposit) *payment.Deposit {
	return &payment.Deposit{
		DepositID:        model.DepositID,
		WalletID:         model.WalletID,
		UserID:           model.UserID,
		Amount:           ledger.Amount(model.Amount),
		PaymentMethod:    model.PaymentMethod,
		Reference:        model.Reference,
		GatewayReference: model.GatewayReference,
		Status:           payment.Status(model.Status),
		FailureReason:    model.FailureReason,
		CompletedAt:      model.CompletedAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func withdrawalFromModel(model *WithdrawalRequest) *payment.WithdrawalRequest {
	return &payment.WithdrawalRequest{
		WithdrawalID:      model.WithdrawalID,
		WorkspaceWalletID: model.WorkspaceWalletID,
		WorkspaceID:       model.WorkspaceID,
		Amount:            ledger.Amount(model.Amount),
		Fee:               ledger.Amount(model.Fee),
		NetAmount:         ledger.Amount(model.NetAmount),
		AccountNumber:     model.AccountNumber,
		AccountName:       model.AccountName,
		BankCode:          model.BankCode,
		Reference:         model.Reference,
		Status:            payment.Status(model.Status),
		Notes:             model.Notes,
		ProcessedAt:       model.ProcessedAt,
		CompletedAt:       model.CompletedAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
