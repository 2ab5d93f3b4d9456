// Package store persists perishable items in SQLite and keeps each item's
// discounted price consistent with its base price and expiry date.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
	"github.com/praveshjainnn/BasketBuddy/internal/metrics"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
)

// Store is the durable item repository. It is safe for concurrent use; SQLite
// serializes writers.
type Store struct {
	db       *sql.DB
	now      func() time.Time
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the source of "now". Today's date is taken from it in
// the clock's own location.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for mutation logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a store backed by db. The schema must already be migrated.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		now:      time.Now,
		logger:   slog.Default(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Today returns the current calendar date according to the store's clock.
func (s *Store) Today() model.Date {
	return model.DateOf(s.now())
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Prices parsed from text can be Inf or NaN, which gte lets through.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

// validateStruct runs the validator and turns the first failure into a
// ValidationError naming the JSON field.
func (s *Store) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.ValidationError("Invalid input").WithError(err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.ValidationError(fmt.Sprintf("Missing required field: %s", fe.Field())).WithError(err)
	case "finite":
		return apperrors.AddValidationError(fe.Field(), "must be a finite number").WithError(err)
	case "gte":
		return apperrors.AddValidationError(fe.Field(), "must be >= "+fe.Param()).WithError(err)
	default:
		return apperrors.AddValidationError(fe.Field(), "failed "+fe.Tag()).WithError(err)
	}
}

// withTx runs fn in a transaction. Errors from fn that are already AppErrors
// pass through; anything else is reported as a PersistenceError. The
// transaction is rolled back on every path that does not commit.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStore(op, start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.PersistenceError("Failed to start transaction").WithError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if _, ok := apperrors.IsAppError(err); ok {
			return err
		}
		s.logger.Error("store operation failed", "op", op, "error", err)
		return apperrors.PersistenceError(fmt.Sprintf("Failed to %s", op)).WithError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("store commit failed", "op", op, "error", err)
		return apperrors.PersistenceError(fmt.Sprintf("Failed to %s", op)).WithError(err)
	}
	return nil
}

// query runs a read-only function and records it like a mutation.
func (s *Store) query(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStore(op, start, err) }()

	if err := fn(ctx); err != nil {
		if _, ok := apperrors.IsAppError(err); ok {
			return err
		}
		return apperrors.PersistenceError(fmt.Sprintf("Failed to %s", op)).WithError(err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	model.DateLayout,
}

// nullTime scans timestamps written by this package (RFC 3339 text), by
// SQLite's CURRENT_TIMESTAMP, or already decoded by the driver.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = nullTime{}
		return nil
	case time.Time:
		*n = nullTime{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*n = nullTime{Time: t.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
