package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Wallet mirrors the wallets table.
type Wallet struct {
	WalletID  string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex:uniq_wallets_user"`
	Balance   int64     `gorm:"not null;default:0"`
	Currency  string    `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	IsLocked  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

func (wallet *Wallet) BeforeCreate(tx *gorm.DB) error {
	if wallet.WalletID == "" {
		wallet.WalletID = uuid.NewString()
	}
	return nil
}

// WorkspaceWallet mirrors the workspace_wallets table.
type WorkspaceWallet struct {
	WalletID       string    `gorm:"type:uuid;primaryKey"`
	WorkspaceID    string    `gorm:"not null;uniqueIndex:uniq_workspace_wallets_workspace"`
	Balance        int64     `gorm:"not null;default:0"`
	TotalEarnings  int64     `gorm:"not null;default:0"`
	TotalWithdrawn int64     `gorm:"not null;default:0"`
	Currency       string    `gorm:"not null"`
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (WorkspaceWallet) TableName() string { return "workspace_wallets" }

func (wallet *WorkspaceWallet) BeforeCreate(tx *gorm.DB) error {
	if wallet.WalletID == "" {
		wallet.WalletID = uuid.NewString()
	}
	return nil
}

// Transaction mirrors the transactions table. Exactly one of WalletID and
// WorkspaceWalletID is set.
type Transaction struct {
	TransactionID     string         `gorm:"type:uuid;primaryKey"`
	Reference         string         `gorm:"not null;uniqueIndex:uniq_transactions_reference"`
	Type              string         `gorm:"not null"`
	Category          string         `gorm:"not null;index:idx_transactions_category"`
	Amount            int64          `gorm:"not null"`
	Currency          string         `gorm:"not null"`
	WalletID          *string        `gorm:"type:uuid;index:idx_transactions_wallet"`
	WorkspaceWalletID *string        `gorm:"type:uuid;index:idx_transactions_workspace_wallet"`
	BookingID         *string        `gorm:"index:idx_transactions_booking"`
	BalanceBefore     int64          `gorm:"not null"`
	BalanceAfter      int64          `gorm:"not null"`
	Status            string         `gorm:"not null;index:idx_transactions_status"`
	Description       string         `gorm:""`
	Metadata          datatypes.JSON `gorm:""`
	ProcessedAt       *time.Time     `gorm:""`
	FailedAt          *time.Time     `gorm:""`
	FailureReason     string         `gorm:""`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// Reservation mirrors the reservations table.
type Reservation struct {
	ReservationID string    `gorm:"type:uuid;primaryKey"`
	SpaceID       string    `gorm:"not null;index:idx_reservations_space_status,priority:1"`
	UserID        string    `gorm:"not null;index:idx_reservations_user"`
	StartTime     time.Time `gorm:"not null"`
	EndTime       time.Time `gorm:"not null"`
	Status        string    `gorm:"not null;index:idx_reservations_space_status,priority:2"`
	ExpiresAt     time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (reservation *Reservation) BeforeCreate(tx *gorm.DB) error {
	if reservation.ReservationID == "" {
		reservation.ReservationID = uuid.NewString()
	}
	return nil
}

// CalendarSlot mirrors the calendar_slots table. The unique index enforces
// one slot per (space, date, time bucket, booking type).
type CalendarSlot struct {
	SlotID      string    `gorm:"type:uuid;primaryKey"`
	SpaceID     string    `gorm:"not null;uniqueIndex:uniq_slots_space_window,priority:1"`
	Date        time.Time `gorm:"not null;uniqueIndex:uniq_slots_space_window,priority:2"`
	StartMinute int       `gorm:"not null;uniqueIndex:uniq_slots_space_window,priority:3"`
	EndMinute   int       `gorm:"not null;uniqueIndex:uniq_slots_space_window,priority:4"`
	BookingType string    `gorm:"not null;uniqueIndex:uniq_slots_space_window,priority:5"`
	Status      string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (CalendarSlot) TableName() string { return "calendar_slots" }

func (slot *CalendarSlot) BeforeCreate(tx *gorm.DB) error {
	if slot.SlotID == "" {
		slot.SlotID = uuid.NewString()
	}
	return nil
}

// Booking mirrors the bookings table.
type Booking struct {
	BookingID      string     `gorm:"type:uuid;primaryKey"`
	SpaceID        string     `gorm:"not null;index:idx_bookings_space_status,priority:1"`
	WorkspaceID    string     `gorm:"not null;index:idx_bookings_workspace"`
	UserID         string     `gorm:"not null;index:idx_bookings_user"`
	BookingType    string     `gorm:"not null"`
	CheckIn        time.Time  `gorm:"not null"`
	CheckOut       time.Time  `gorm:"not null"`
	Guests         int        `gorm:"not null"`
	BasePrice      int64      `gorm:"not null"`
	DiscountAmount int64      `gorm:"not null;default:0"`
	TaxAmount      int64      `gorm:"not null;default:0"`
	TotalPrice     int64      `gorm:"not null"`
	Status         string     `gorm:"not null;index:idx_bookings_space_status,priority:2"`
	IsCheckedIn    bool       `gorm:"not null;default:false"`
	IsCheckedOut   bool       `gorm:"not null;default:false"`
	CancelledAt    *time.Time `gorm:""`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

func (booking *Booking) BeforeCreate(tx *gorm.DB) error {
	if booking.BookingID == "" {
		booking.BookingID = uuid.NewString()
	}
	return nil
}

// CartItem mirrors the cart_items table.
type CartItem struct {
	CartItemID    string    `gorm:"type:uuid;primaryKey"`
	UserID        string    `gorm:"not null;index:idx_cart_items_user"`
	SpaceID       string    `gorm:"not null"`
	ReservationID string    `gorm:"not null;index:idx_cart_items_reservation"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

func (item *CartItem) BeforeCreate(tx *gorm.DB) error {
	if item.CartItemID == "" {
		item.CartItemID = uuid.NewString()
	}
	return nil
}

// BookingCancellation mirrors the booking_cancellations table. The unique
// index on booking_id enforces one cancellation per booking.
type BookingCancellation struct {
	CancellationID    string     `gorm:"type:uuid;primaryKey"`
	BookingID         string     `gorm:"not null;uniqueIndex:uniq_cancellations_booking"`
	CancelledBy       string     `gorm:"not null"`
	Reason            string     `gorm:""`
	ReasonDescription string     `gorm:""`
	Status            string     `gorm:"not null;index:idx_cancellations_status"`
	OriginalAmount    int64      `gorm:"not null"`
	RefundPercent     int64      `gorm:"not null"`
	RefundAmount      int64      `gorm:"not null"`
	PenaltyAmount     int64      `gorm:"not null"`
	HoursUntilCheckIn float64    `gorm:"not null"`
	RefundStatus      string     `gorm:"not null"`
	RefundReference   string     `gorm:""`
	ApprovedBy        string     `gorm:""`
	ApprovedAt        *time.Time `gorm:""`
	RefundedAt        *time.Time `gorm:""`
	AdminNotes        string     `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
	UpdatedAt         time.Time  `gorm:"not null"`
}

func (BookingCancellation) TableName() string { return "booking_cancellations" }

func (cancellation *BookingCancellation) BeforeCreate(tx *gorm.DB) error {
	if cancellation.CancellationID == "" {
		cancellation.CancellationID = uuid.NewString()
	}
	return nil
}

// Deposit mirrors the deposits table.
type Deposit struct {
	DepositID        string     `gorm:"type:uuid;primaryKey"`
	WalletID         string     `gorm:"type:uuid;not null;index:idx_deposits_wallet"`
	UserID           string     `gorm:"not null"`
	Amount           int64      `gorm:"not null"`
	PaymentMethod    string     `gorm:"not null"`
	Reference        string     `gorm:"not null;uniqueIndex:uniq_deposits_reference"`
	GatewayReference string     `gorm:""`
	Status           string     `gorm:"not null"`
	FailureReason    string     `gorm:""`
	CompletedAt      *time.Time `gorm:""`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

func (Deposit) TableName() string { return "deposits" }

func (deposit *Deposit) BeforeCreate(tx *gorm.DB) error {
	if deposit.DepositID == "" {
		deposit.DepositID = uuid.NewString()
	}
	return nil
}

// WithdrawalRequest mirrors the withdrawal_requests table.
type WithdrawalRequest struct {
	WithdrawalID      string     `gorm:"type:uuid;primaryKey"`
	WorkspaceWalletID string     `gorm:"type:uuid;not null;index:idx_withdrawals_wallet"`
	WorkspaceID       string     `gorm:"not null"`
	Amount            int64      `gorm:"not null"`
	Fee               int64      `gorm:"not null"`
	NetAmount         int64      `gorm:"not null"`
	AccountNumber     string     `gorm:"not null"`
	AccountName       string     `gorm:""`
	BankCode          string     `gorm:""`
	Reference         string     `gorm:"not null;uniqueIndex:uniq_withdrawals_reference"`
	Status            string     `gorm:"not null"`
	Notes             string     `gorm:""`
	ProcessedAt       *time.Time `gorm:""`
	CompletedAt       *time.Time `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
	UpdatedAt         time.Time  `gorm:"not null"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

func (request *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if request.WithdrawalID == "" {
		request.WithdrawalID = uuid.NewString()
	}
	return nil
}
