package gormstore

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

func newTestStore(test *testing.T) *Store {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	store := New(db)
	if err := store.Migrate(); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return store
}

func mustLedgerService(test *testing.T, store *Store, options ...ledger.Option) *ledger.Service {
	test.Helper()
	service, err := ledger.NewService(store, options...)
	if err != nil {
		test.Fatalf("ledger service: %v", err)
	}
	return service
}

func mustEscrowService(test *testing.T, store *Store, ledgerService *ledger.Service, options ...escrow.Option) *escrow.Service {
	test.Helper()
	service, err := escrow.NewService(store, ledgerService, options...)
	if err != nil {
		test.Fatalf("escrow service: %v", err)
	}
	return service
}

func mustBookingService(test *testing.T, store *Store, releaser booking.EscrowReleaser, options ...booking.Option) *booking.Service {
	test.Helper()
	service, err := booking.NewService(store, releaser, options...)
	if err != nil {
		test.Fatalf("booking service: %v", err)
	}
	return service
}

func mustCancellationService(test *testing.T, store *Store, refunder cancellation.Refunder, options ...cancellation.Option) *cancellation.Service {
	test.Helper()
	service, err := cancellation.NewService(store, refunder, options...)
	if err != nil {
		test.Fatalf("cancellation service: %v", err)
	}
	return service
}

func mustReservationService(test *testing.T, store *Store, options ...reservation.Option) *reservation.Service {
	test.Helper()
	service, err := reservation.NewService(store, options...)
	if err != nil {
		test.Fatalf("reservation service: %v", err)
	}
	return service
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
