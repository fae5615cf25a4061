package httpapi

import "time"

type createReservationRequest struct {
	SpaceID       string    `json:"space_id" binding:"required"`
	UserID        string    `json:"user_id" binding:"required"`
	Start         time.Time `json:"start" binding:"required"`
	End           time.Time `json:"end" binding:"required"`
	ExpiryMinutes int       `json:"expiry_minutes"`
	SlotIDs       []string  `json:"slot_ids"`
}

type createBookingRequest struct {
	SpaceID        string    `json:"space_id" binding:"required"`
	WorkspaceID    string    `json:"workspace_id" binding:"required"`
	UserID         string    `json:"user_id" binding:"required"`
	BookingType    string    `json:"booking_type" binding:"required"`
	CheckIn        time.Time `json:"check_in" binding:"required"`
	CheckOut       time.Time `json:"check_out" binding:"required"`
	Guests         int       `json:"guests" binding:"required"`
	BasePrice      int64     `json:"base_price" binding:"required"`
	DiscountAmount int64     `json:"discount_amount"`
	TaxAmount      int64     `json:"tax_amount"`
	TotalPrice     int64     `json:"total_price" binding:"required"`
}

type payBookingRequest struct {
	PaymentID string `json:"payment_id"`
}

type cancelBookingRequest struct {
	CancelledBy       string `json:"cancelled_by" binding:"required"`
	Reason            string `json:"reason"`
	ReasonDescription string `json:"reason_description"`
}

type approveCancellationRequest struct {
	ApprovedBy     string `json:"approved_by" binding:"required"`
	AdminNotes     string `json:"admin_notes"`
	RefundOverride *int64 `json:"refund_override"`
}

type rejectCancellationRequest struct {
	RejectedBy string `json:"rejected_by" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

type initiateDepositRequest struct {
	Email         string `json:"email" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

type verifyDepositRequest struct {
	Reference string `json:"reference" binding:"required"`
}

type requestWithdrawalRequest struct {
	WorkspaceID   string `json:"workspace_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name"`
	BankCode      string `json:"bank_code"`
	Notes         string `json:"notes"`
}
