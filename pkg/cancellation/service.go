package cancellation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
	SaveBooking(ctx context.Context, record *booking.Booking) error
	CreateCancellation(ctx context.Context, record *BookingCancellation) error
	GetCancellation(ctx context.Context, cancellationID string) (*BookingCancellation, error)
	// CancellationByBooking returns nil when the booking has no
	// cancellation record yet.
	CancellationByBooking(ctx context.Context, bookingID string) (*BookingCancellation, error)
	SaveCancellation(ctx context.Context, record *BookingCancellation) error
}

// Refunder is the slice of the escrow service used to pay refunds.
type Refunder interface {
	RefundBookingPayment(ctx context.Context, input escrow.RefundInput) (escrow.RefundResult, error)
}

// CancelInput describes a cancellation request.
type CancelInput struct {
	BookingID         string
	CancelledBy       string
	Reason            string
	ReasonDescription string
}

// ApproveInput describes an admin approval. RefundOverride, when set,
// replaces the policy refund amount.
type ApproveInput struct {
	CancellationID string
	ApprovedBy     string
	AdminNotes     string
	RefundOverride *ledger.Amount
}

// Result reports a cancellation decision. Refund is nil when no money moved,
// which covers both the approval path and zero-refund auto cancellations.
type Result struct {
	Cancellation     *BookingCancellation
	Booking          *booking.Booking
	RequiresApproval bool
	Refund           *escrow.RefundResult
}

// Service applies the refund policy and drives the cancellation workflow.
type Service struct {
	store     Store
	refunder  Refunder
	nowFn     func() time.Time
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, refunder Refunder, options ...Option) (*Service, error) {
	if store == nil || refunder == nil {
		return nil, faults.New(faults.KindInternal, "cancellation dependencies are nil")
	}
	service := &Service{
		store:     store,
		refunder:  refunder,
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

// CancelBooking records a cancellation request for a booking. Cancellations
// more than the approval threshold before check-in settle immediately: the
// booking is cancelled and the policy refund is paid in the same transaction.
// Closer to check-in the booking is left untouched and the record stays
// pending for an admin decision.
func (service *Service) CancelBooking(ctx context.Context, input CancelInput) (Result, error) {
	ctx, flush := events.Stage(ctx)
	var result Result
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		bookingRecord, txErr := service.store.GetBooking(ctx, input.BookingID)
		if txErr != nil {
			return txErr
		}
		if txErr = cancellable(bookingRecord); txErr != nil {
			return txErr
		}
		existing, txErr := service.store.CancellationByBooking(ctx, input.BookingID)
		if txErr != nil {
			return txErr
		}
		if existing != nil {
			return ErrDuplicateCancellation
		}

		hoursUntilCheckIn := bookingRecord.CheckIn.Sub(service.nowFn()).Hours()
		outcome := RefundPolicy(hoursUntilCheckIn, bookingRecord.TotalPrice)
		record := &BookingCancellation{
			BookingID:         bookingRecord.BookingID,
			CancelledBy:       input.CancelledBy,
			Reason:            input.Reason,
			ReasonDescription: input.ReasonDescription,
			Status:            StatusPending,
			OriginalAmount:    bookingRecord.TotalPrice,
			RefundPercent:     outcome.RefundPercent,
			RefundAmount:      outcome.RefundAmount,
			PenaltyAmount:     outcome.PenaltyAmount,
			HoursUntilCheckIn: hoursUntilCheckIn,
			RefundStatus:      RefundPending,
		}
		if txErr = service.store.CreateCancellation(ctx, record); txErr != nil {
			return txErr
		}

		result.Cancellation = record
		result.Booking = bookingRecord
		if RequiresApproval(hoursUntilCheckIn) {
			result.RequiresApproval = true
			return nil
		}
		return service.settle(ctx, record, bookingRecord, &result)
	})
	if err != nil {
		return Result{}, err
	}

	if result.RequiresApproval {
		service.logger.Info("cancellation held for admin approval",
			zap.String("booking_id", input.BookingID),
			zap.Float64("hours_until_check_in", result.Cancellation.HoursUntilCheckIn))
		flush()
		return result, nil
	}
	service.publishCancelled(ctx, result)
	flush()
	return result, nil
}

// ApproveCancellation settles a pending cancellation: the booking is
// cancelled and the refund paid, optionally at an admin-overridden amount.
func (service *Service) ApproveCancellation(ctx context.Context, input ApproveInput) (Result, error) {
	ctx, flush := events.Stage(ctx)
	var result Result
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		record, txErr := service.store.GetCancellation(ctx, input.CancellationID)
		if txErr != nil {
			return txErr
		}
		if record.Status != StatusPending {
			return ErrNotPending
		}
		bookingRecord, txErr := service.store.GetBooking(ctx, record.BookingID)
		if txErr != nil {
			return txErr
		}
		if txErr = cancellable(bookingRecord); txErr != nil {
			return txErr
		}
		if input.RefundOverride != nil {
			if txErr = applyOverride(record, *input.RefundOverride); txErr != nil {
				return txErr
			}
		}
		approvedAt := service.nowFn()
		record.ApprovedBy = input.ApprovedBy
		record.ApprovedAt = &approvedAt
		record.AdminNotes = input.AdminNotes

		result.Cancellation = record
		result.Booking = bookingRecord
		return service.settle(ctx, record, bookingRecord, &result)
	})
	if err != nil {
		return Result{}, err
	}

	service.publish(ctx, events.TypeCancellationApproved, map[string]any{
		"cancellation_id": result.Cancellation.CancellationID,
		"booking_id":      result.Cancellation.BookingID,
		"approved_by":     result.Cancellation.ApprovedBy,
		"refund_amount":   result.Cancellation.RefundAmount.Int64(),
		"refund_percent":  result.Cancellation.RefundPercent,
	})
	service.publishCancelled(ctx, result)
	flush()
	return result, nil
}

// RejectCancellation closes a pending cancellation without touching the
// booking or moving money.
func (service *Service) RejectCancellation(ctx context.Context, cancellationID, rejectedBy, adminNotes string) (*BookingCancellation, error) {
	var record *BookingCancellation
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		record, txErr = service.store.GetCancellation(ctx, cancellationID)
		if txErr != nil {
			return txErr
		}
		if record.Status != StatusPending {
			return ErrNotPending
		}
		rejectedAt := service.nowFn()
		record.Status = StatusRejected
		record.RefundStatus = RefundCompleted
		record.ApprovedBy = rejectedBy
		record.ApprovedAt = &rejectedAt
		record.AdminNotes = adminNotes
		return service.store.SaveCancellation(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeCancellationRejected, map[string]any{
		"cancellation_id": record.CancellationID,
		"booking_id":      record.BookingID,
		"rejected_by":     rejectedBy,
	})
	return record, nil
}

// GetCancellation returns a cancellation record by id.
func (service *Service) GetCancellation(ctx context.Context, cancellationID string) (*BookingCancellation, error) {
	return service.store.GetCancellation(ctx, cancellationID)
}

// settle cancels the booking and pays the refund inside the caller's
// transaction. Any failure rolls the whole cancellation back.
func (service *Service) settle(ctx context.Context, record *BookingCancellation, bookingRecord *booking.Booking, result *Result) error {
	now := service.nowFn()
	bookingRecord.Status = booking.StatusCancelled
	bookingRecord.CancelledAt = &now
	if err := service.store.SaveBooking(ctx, bookingRecord); err != nil {
		return err
	}

	if record.RefundAmount > 0 {
		refund, err := service.refunder.RefundBookingPayment(ctx, escrow.RefundInput{
			BookingID:   bookingRecord.BookingID,
			UserID:      bookingRecord.UserID,
			WorkspaceID: bookingRecord.WorkspaceID,
			Amount:      record.RefundAmount,
			Description: "Cancellation refund for booking " + bookingRecord.BookingID,
		})
		if err != nil {
			return err
		}
		record.Status = StatusRefunded
		record.RefundStatus = RefundCompleted
		record.RefundReference = refund.Reference
		record.RefundedAt = &now
		result.Refund = &refund
	} else {
		record.Status = StatusApproved
		record.RefundStatus = RefundCompleted
	}
	return service.store.SaveCancellation(ctx, record)
}

// cancellable rejects bookings that already left the cancellable window.
func cancellable(record *booking.Booking) error {
	switch {
	case record.Status == booking.StatusCancelled:
		return ErrBookingCancelled
	case record.Status == booking.StatusCompleted:
		return ErrBookingCompleted
	case record.IsCheckedIn && !record.IsCheckedOut:
		return ErrBookingInProgress
	}
	return nil
}

// applyOverride replaces the policy refund with an admin-chosen amount and
// recomputes the derived split.
func applyOverride(record *BookingCancellation, override ledger.Amount) error {
	if override < 0 || override > record.OriginalAmount {
		return ErrInvalidOverride
	}
	record.RefundAmount = override
	record.PenaltyAmount = record.OriginalAmount - override
	if record.OriginalAmount > 0 {
		record.RefundPercent = override.Int64() * 100 / record.OriginalAmount.Int64()
	}
	return nil
}

func (service *Service) publishCancelled(ctx context.Context, result Result) {
	payload := map[string]any{
		"booking_id":      result.Booking.BookingID,
		"workspace_id":    result.Booking.WorkspaceID,
		"space_id":        result.Booking.SpaceID,
		"user_id":         result.Booking.UserID,
		"cancellation_id": result.Cancellation.CancellationID,
		"cancelled_by":    result.Cancellation.CancelledBy,
		"refund_amount":   result.Cancellation.RefundAmount.Int64(),
		"refund_percent":  result.Cancellation.RefundPercent,
		"penalty_amount":  result.Cancellation.PenaltyAmount.Int64(),
	}
	if result.Refund != nil {
		payload["refund_reference"] = result.Refund.Reference
		payload["refund_from"] = string(result.Refund.Source)
		payload["shortfall"] = result.Refund.Shortfall.Int64()
	}
	events.Emit(ctx, service.publisher, events.New(events.TypeBookingCancelled, "cancellation", payload))
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "cancellation", payload))
}
