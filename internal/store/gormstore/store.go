// Package gormstore persists every engine aggregate through GORM, against
// PostgreSQL in production and in-memory SQLite in tests.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hivedesk/hivedesk/pkg/faults"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	dialectPostgres       = "postgres"
)

type txContextKey struct{}

// Store implements the persistence contracts of every engine package.
type Store struct {
	db              *gorm.DB
	supportsRowLock bool
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		supportsRowLock: db.Dialector.Name() == dialectPostgres,
	}
}

// Migrate creates or updates every table the engine uses.
func (store *Store) Migrate() error {
	return store.db.AutoMigrate(
		&Wallet{},
		&WorkspaceWallet{},
		&Transaction{},
		&Reservation{},
		&CalendarSlot{},
		&Booking{},
		&CartItem{},
		&BookingCancellation{},
		&Deposit{},
		&WithdrawalRequest{},
	)
}

// WithTx executes fn inside a transaction carried through the context.
// Nested calls join the transaction already in flight, so composed
// operations commit or roll back as one.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn returns the transaction carried by the context, or the root handle.
func (store *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return store.db.WithContext(ctx)
}

// locked adds FOR UPDATE on dialects that support row locks. SQLite
// serializes writers on its own, so the clause is skipped there.
func (store *Store) locked(db *gorm.DB) *gorm.DB {
	if store.supportsRowLock {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

// mapError normalizes a query failure into the engine fault taxonomy,
// substituting the caller's not-found sentinel for gorm's.
func mapError(subject string, notFound error, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if isUniqueViolation(err) {
		return faults.Wrap(faults.KindConflict, subject+" already exists", err)
	}
	return faults.Wrap(faults.KindInternal, subject+" query failed", err)
}

func metadataJSON(metadata map[string]any) datatypes.JSON {
	if len(metadata) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func metadataMap(raw datatypes.JSON) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
