package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)
	SaveBooking(ctx context.Context, booking *Booking) error
}

// EscrowReleaser releases the pending booking payment at check-in. A nil
// transaction means no hold was found, which is fine: release is idempotent.
type EscrowReleaser interface {
	ReleasePendingPayment(ctx context.Context, bookingID, workspaceID string) (*ledger.Transaction, error)
}

// CreateInput describes a booking to persist at checkout.
type CreateInput struct {
	SpaceID        string
	WorkspaceID    string
	UserID         string
	BookingType    reservation.BookingType
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	BasePrice      ledger.Amount
	DiscountAmount ledger.Amount
	TaxAmount      ledger.Amount
	TotalPrice     ledger.Amount
}

// Service owns the booking state machine: pending -> confirmed ->
// in_progress -> completed. Cancellation is owned by the cancellation
// engine, the sole writer of StatusCancelled.
type Service struct {
	store     Store
	escrow    EscrowReleaser
	nowFn     func() time.Time
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService wires a Service. The escrow releaser may be nil for flows that
// never reach check-in (tests of earlier lifecycle stages).
func NewService(store Store, escrow EscrowReleaser, options ...Option) (*Service, error) {
	if store == nil {
		return nil, faults.New(faults.KindInternal, "booking store dependency is nil")
	}
	service := &Service{
		store:     store,
		escrow:    escrow,
		nowFn:     func() time.Time { return time.Now().UTC() },
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateBooking persists a pending booking with a validated price breakdown.
func (service *Service) CreateBooking(ctx context.Context, input CreateInput) (*Booking, error) {
	if !input.CheckIn.Before(input.CheckOut) {
		return nil, ErrInvalidWindow
	}
	if input.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if input.TotalPrice <= 0 || input.TotalPrice != input.BasePrice-input.DiscountAmount+input.TaxAmount {
		return nil, ErrInvalidPrice
	}

	booking := &Booking{
		SpaceID:        input.SpaceID,
		WorkspaceID:    input.WorkspaceID,
		UserID:         input.UserID,
		BookingType:    input.BookingType,
		CheckIn:        input.CheckIn,
		CheckOut:       input.CheckOut,
		Guests:         input.Guests,
		BasePrice:      input.BasePrice,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		TotalPrice:     input.TotalPrice,
		Status:         StatusPending,
	}
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		return service.store.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeBookingCreated, map[string]any{
		"booking_id":   booking.BookingID,
		"workspace_id": booking.WorkspaceID,
		"space_id":     booking.SpaceID,
		"user_id":      booking.UserID,
		"booking_type": string(booking.BookingType),
		"check_in":     booking.CheckIn,
		"check_out":    booking.CheckOut,
		"total_price":  booking.TotalPrice.Int64(),
		"status":       string(booking.Status),
	})
	return booking, nil
}

// ConfirmBooking moves a pending booking to confirmed once its order is paid.
func (service *Service) ConfirmBooking(ctx context.Context, bookingID string) (*Booking, error) {
	var booking *Booking
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		booking, txErr = service.store.GetBooking(ctx, bookingID)
		if txErr != nil {
			return txErr
		}
		if booking.Status != StatusPending {
			return ErrNotPending
		}
		booking.Status = StatusConfirmed
		return service.store.SaveBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeBookingConfirmed, map[string]any{
		"booking_id":   booking.BookingID,
		"workspace_id": booking.WorkspaceID,
		"space_id":     booking.SpaceID,
		"user_id":      booking.UserID,
	})
	return booking, nil
}

// CheckIn marks the guest arrived and releases the escrowed payment to the
// workspace. A release failure is logged but does not block check-in; the
// held payment can be reconciled later.
func (service *Service) CheckIn(ctx context.Context, bookingID string) (*Booking, error) {
	var booking *Booking
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		booking, txErr = service.store.GetBooking(ctx, bookingID)
		if txErr != nil {
			return txErr
		}
		if booking.IsCheckedIn {
			return ErrAlreadyCheckedIn
		}
		if booking.Status != StatusConfirmed {
			return ErrNotConfirmed
		}
		booking.IsCheckedIn = true
		booking.Status = StatusInProgress
		return service.store.SaveBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if service.escrow != nil {
		released, releaseErr := service.escrow.ReleasePendingPayment(ctx, booking.BookingID, booking.WorkspaceID)
		switch {
		case releaseErr != nil:
			service.logger.Error("failed to release pending payment",
				zap.String("booking_id", booking.BookingID),
				zap.Error(releaseErr))
		case released == nil:
			service.logger.Warn("no pending payment to release",
				zap.String("booking_id", booking.BookingID))
		default:
			service.logger.Info("released pending payment",
				zap.String("booking_id", booking.BookingID),
				zap.String("reference", released.Reference))
		}
	}

	service.publish(ctx, events.TypeBookingCheckedIn, map[string]any{
		"booking_id":   booking.BookingID,
		"workspace_id": booking.WorkspaceID,
		"space_id":     booking.SpaceID,
		"user_id":      booking.UserID,
	})
	return booking, nil
}

// CheckOut marks the guest departed and completes the booking.
func (service *Service) CheckOut(ctx context.Context, bookingID string) (*Booking, error) {
	var booking *Booking
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		booking, txErr = service.store.GetBooking(ctx, bookingID)
		if txErr != nil {
			return txErr
		}
		if !booking.IsCheckedIn {
			return ErrNotCheckedIn
		}
		if booking.IsCheckedOut {
			return ErrAlreadyCheckedOut
		}
		booking.IsCheckedOut = true
		booking.Status = StatusCompleted
		return service.store.SaveBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeBookingCheckedOut, map[string]any{
		"booking_id":   booking.BookingID,
		"workspace_id": booking.WorkspaceID,
		"space_id":     booking.SpaceID,
		"user_id":      booking.UserID,
	})
	return booking, nil
}

// GetBooking returns a booking by id.
func (service *Service) GetBooking(ctx context.Context, bookingID string) (*Booking, error) {
	return service.store.GetBooking(ctx, bookingID)
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "booking", payload))
}
