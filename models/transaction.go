package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/codingric/moneyman/ledger/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// Signed applies the direction to an unsigned magnitude.
func (d Direction) Signed(magnitude float64) float64 {
	if d == Debit {
		return -magnitude
	}
	return magnitude
}

type Transaction struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title" gorm:"not null"`
	Amount    float64   `json:"amount" gorm:"not null"`
	SessionID string    `json:"session_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

type Summary struct {
	Amount float64 `json:"amount"`
}

// Store is the only component that touches the database. Every query is
// filtered by session id.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func storageError(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Create persists a new transaction and returns its id.
func (s *Store) Create(ctx context.Context, sessionID, title string, magnitude float64, d Direction) (string, error) {
	ctx, span := tracing.NewSpan(ctx, "models.create")
	defer span.End()

	switch {
	case title == "":
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	case math.IsNaN(magnitude) || math.IsInf(magnitude, 0):
		return "", fmt.Errorf("%w: amount must be a finite number", ErrValidation)
	case !d.Valid():
		return "", fmt.Errorf("%w: invalid type %q", ErrValidation, d)
	}

	t := Transaction{
		ID:        uuid.NewString(),
		Title:     title,
		Amount:    d.Signed(magnitude),
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
	}
	span.SetAttributes(
		attribute.String("transaction.id", t.ID),
		attribute.String("transaction.type", string(d)),
	)

	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return "", storageError(span, "create", err)
	}
	return t.ID, nil
}

// List returns the session's transactions in creation order.
func (s *Store) List(ctx context.Context, sessionID string) ([]Transaction, error) {
	ctx, span := tracing.NewSpan(ctx, "models.list")
	defer span.End()

	transactions := []Transaction{}
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Order("id asc").
		Find(&transactions).Error
	if err != nil {
		return nil, storageError(span, "list", err)
	}
	if transactions == nil {
		transactions = []Transaction{}
	}
	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	return transactions, nil
}

// Get returns nil without error when id is unknown or owned by another
// session. id must be a hyphenated UUID in either case.
func (s *Store) Get(ctx context.Context, sessionID, id string) (*Transaction, error) {
	ctx, span := tracing.NewSpan(ctx, "models.get")
	defer span.End()

	u, err := uuid.Parse(id)
	if err != nil || len(id) != 36 {
		return nil, fmt.Errorf("%w: invalid transaction id %q", ErrValidation, id)
	}

	// ids are stored in canonical lowercase form
	var t Transaction
	err = s.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", u.String(), sessionID).
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(span, "get", err)
	}
	return &t, nil
}

// Summarize sums the signed amounts of the session. An empty session
// yields zero.
func (s *Store) Summarize(ctx context.Context, sessionID string) (Summary, error) {
	ctx, span := tracing.NewSpan(ctx, "models.summarize")
	defer span.End()

	var amount float64
	err := s.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("session_id = ?", sessionID).
		Scan(&amount).Error
	if err != nil {
		return Summary{}, storageError(span, "summarize", err)
	}
	return Summary{Amount: amount}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Transaction{})
}

func (s *Store) Rollback(ctx context.Context) error {
	return s.db.WithContext(ctx).Migrator().DropTable(&Transaction{})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
