package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"

	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

type (
	// Kind tells income and expense apart on both categories and transactions.
	Kind string

	// Level is the severity of an insight.
	Level string

	User struct {
		ID               int64     `json:"id"`
		Email            string    `json:"email"`
		CredentialDigest string    `json:"-"`
		CreatedAt        time.Time `json:"created_at"`
	}

	Category struct {
		ID     int64  `json:"id"`
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
		Kind   Kind   `json:"kind"`
	}

	Transaction struct {
		ID         int64           `json:"id"`
		UserID     int64           `json:"user_id"`
		CategoryID int64           `json:"category_id"`
		Kind       Kind            `json:"kind"`
		Amount     decimal.Decimal `json:"amount"`
		Date       civil.Date      `json:"date"`
		Note       string          `json:"note,omitempty"`
	}

	Insight struct {
		Message string `json:"message"`
		Level   Level  `json:"level"`
	}

	// InsightRecord is an insight persisted in the snapshot collection.
	InsightRecord struct {
		ID        int64
		UserID    int64
		Insight   Insight
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than 0")
	ErrInvalidKind      = errors.New("kind must be income or expense")
	ErrInvalidDate      = errors.New("invalid date")
	ErrFutureDate       = errors.New("cannot add future transactions")
	ErrEmptyCategory    = errors.New("category is required")
	ErrEmptyCategoryRef = errors.New("category name is required")
	ErrCategoryMismatch = errors.New("category does not match transaction")
	ErrEmptyEmail       = errors.New("email is required")
	ErrEmptyPassword    = errors.New("password is required")
	ErrInvalidUser      = errors.New("user id is required")
	ErrInvalidLevel     = errors.New("level must be info or warning")
)

// ParseKind accepts "income" or "expense", case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (l Level) Valid() bool {
	return l == LevelInfo || l == LevelWarning
}

// NormalizeEmail trims and lower-cases an address so the unique index
// compares addresses the way users expect.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if u.CredentialDigest == "" {
		return ErrEmptyPassword
	}
	return nil
}

func (c Category) Validate() error {
	if c.UserID <= 0 {
		return ErrInvalidUser
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryRef
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Validate checks the fields the store is responsible for. Whether the date
// lies in the future and whether the category exists are caller concerns.
func (t Transaction) Validate() error {
	if t.UserID <= 0 {
		return ErrInvalidUser
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Date.IsValid() {
		return ErrInvalidDate
	}
	return nil
}

// IsIncome reports whether t adds to the balance.
func (t Transaction) IsIncome() bool {
	return t.Kind == KindIncome
}

func (i Insight) Validate() error {
	if strings.TrimSpace(i.Message) == "" {
		return errors.New("insight message is empty")
	}
	if !i.Level.Valid() {
		return ErrInvalidLevel
	}
	return nil
}
