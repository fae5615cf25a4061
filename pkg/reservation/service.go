package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/faults"
)

// Store is the persistence contract used by Service. Overlap checks run
// under a lock on the space's reservation rows so that a concurrent
// check-then-create on the same interval serializes instead of racing.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// ExpireStaleReservations flips stale active holds for one space to
	// expired, resetting their slots to available unless another live hold
	// still covers them. Returns the number of holds expired.
	ExpireStaleReservations(ctx context.Context, spaceID string, now time.Time) (int64, error)
	// ExpireAllStaleReservations is the global safety-net variant used by
	// the background sweeper.
	ExpireAllStaleReservations(ctx context.Context, now time.Time) (int64, error)
	HasOverlappingReservation(ctx context.Context, spaceID string, start, end, now time.Time) (bool, error)
	HasOverlappingBooking(ctx context.Context, spaceID string, start, end time.Time) (bool, error)
	CreateReservation(ctx context.Context, reservation *Reservation) error
	GetReservation(ctx context.Context, reservationID string) (*Reservation, error)
	SaveReservation(ctx context.Context, reservation *Reservation) error
	MarkSlotsReserved(ctx context.Context, slotIDs []string) (int64, error)
	// TransitionSlots flips every slot of the space in [fromDate, toDate]
	// currently in the from status to the to status.
	TransitionSlots(ctx context.Context, spaceID string, from, to SlotStatus, fromDate, toDate time.Time) (int64, error)
	DeleteCartItemsByReservation(ctx context.Context, reservationID string) error
}

// CreateInput describes a requested hold.
type CreateInput struct {
	SpaceID       string
	UserID        string
	Start         time.Time
	End           time.Time
	ExpiryMinutes int
	SlotIDs       []string
}

// Service creates, confirms, and cancels time-boxed holds on a space.
type Service struct {
	store     Store
	nowFn     func() time.Time
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, options ...Option) (*Service, error) {
	if store == nil {
		return nil, faults.New(faults.KindInternal, "reservation store dependency is nil")
	}
	service := &Service{
		store:     store,
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

// CreateReservation places a hold on the space for [start, end). Stale holds
// on the same space are expired first, then the interval is checked against
// live holds and confirmed bookings under lock.
func (service *Service) CreateReservation(ctx context.Context, input CreateInput) (*Reservation, error) {
	if !input.Start.Before(input.End) {
		return nil, ErrInvalidWindow
	}
	if input.ExpiryMinutes == 0 {
		input.ExpiryMinutes = DefaultExpiryMinutes
	}
	if input.ExpiryMinutes < 0 {
		return nil, ErrInvalidExpiry
	}

	now := service.nowFn()
	reservation := &Reservation{
		SpaceID:   input.SpaceID,
		UserID:    input.UserID,
		Start:     input.Start,
		End:       input.End,
		Status:    StatusActive,
		ExpiresAt: now.Add(time.Duration(input.ExpiryMinutes) * time.Minute),
	}

	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		expired, txErr := service.store.ExpireStaleReservations(ctx, input.SpaceID, now)
		if txErr != nil {
			return txErr
		}
		if expired > 0 {
			service.logger.Info("expired stale reservations",
				zap.String("space_id", input.SpaceID),
				zap.Int64("count", expired))
		}
		overlapping, txErr := service.store.HasOverlappingReservation(ctx, input.SpaceID, input.Start, input.End, now)
		if txErr != nil {
			return txErr
		}
		if overlapping {
			return ErrSlotTaken
		}
		booked, txErr := service.store.HasOverlappingBooking(ctx, input.SpaceID, input.Start, input.End)
		if txErr != nil {
			return txErr
		}
		if booked {
			return ErrSpaceBooked
		}
		if txErr = service.store.CreateReservation(ctx, reservation); txErr != nil {
			return txErr
		}
		if len(input.SlotIDs) > 0 {
			if _, txErr = service.store.MarkSlotsReserved(ctx, input.SlotIDs); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeReservationCreated, map[string]any{
		"reservation_id":     reservation.ReservationID,
		"space_id":           reservation.SpaceID,
		"user_id":            reservation.UserID,
		"start":              reservation.Start,
		"end":                reservation.End,
		"expires_at":         reservation.ExpiresAt,
		"expires_in_minutes": input.ExpiryMinutes,
	})
	return reservation, nil
}

// ConfirmReservation marks a hold confirmed, usually when payment completes,
// and flips its reserved slots to booked.
func (service *Service) ConfirmReservation(ctx context.Context, reservationID string) (*Reservation, error) {
	var reservation *Reservation
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		reservation, txErr = service.store.GetReservation(ctx, reservationID)
		if txErr != nil {
			return txErr
		}
		if reservation.Status != StatusActive {
			return faults.Wrap(faults.KindState, "cannot confirm reservation with status "+string(reservation.Status), ErrNotActive)
		}
		reservation.Status = StatusConfirmed
		if txErr = service.store.SaveReservation(ctx, reservation); txErr != nil {
			return txErr
		}
		_, txErr = service.store.TransitionSlots(ctx, reservation.SpaceID, SlotReserved, SlotBooked, dateOf(reservation.Start), dateOf(reservation.End))
		return txErr
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeReservationConfirmed, map[string]any{
		"reservation_id": reservation.ReservationID,
		"space_id":       reservation.SpaceID,
		"user_id":        reservation.UserID,
	})
	return reservation, nil
}

// CancelReservation releases a hold, resetting its slots and removing cart
// items that reference it. Confirmed holds must go through booking
// cancellation instead.
func (service *Service) CancelReservation(ctx context.Context, reservationID string) (*Reservation, error) {
	var reservation *Reservation
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		reservation, txErr = service.store.GetReservation(ctx, reservationID)
		if txErr != nil {
			return txErr
		}
		if reservation.Status == StatusConfirmed {
			return ErrConfirmedReservation
		}
		reservation.Status = StatusCancelled
		if txErr = service.store.SaveReservation(ctx, reservation); txErr != nil {
			return txErr
		}
		if _, txErr = service.store.TransitionSlots(ctx, reservation.SpaceID, SlotReserved, SlotAvailable, dateOf(reservation.Start), dateOf(reservation.End)); txErr != nil {
			return txErr
		}
		return service.store.DeleteCartItemsByReservation(ctx, reservationID)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeReservationCancelled, map[string]any{
		"reservation_id": reservation.ReservationID,
		"space_id":       reservation.SpaceID,
		"user_id":        reservation.UserID,
	})
	return reservation, nil
}

// SweepExpired expires every stale hold regardless of space. The background
// sweeper calls this; CreateReservation keeps its own scoped sweep.
func (service *Service) SweepExpired(ctx context.Context) (int64, error) {
	now := service.nowFn()
	var expired int64
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		expired, txErr = service.store.ExpireAllStaleReservations(ctx, now)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		service.publish(ctx, events.TypeReservationExpired, map[string]any{
			"expired_count": expired,
		})
	}
	return expired, nil
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "reservation", payload))
}

func dateOf(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
