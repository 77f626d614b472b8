package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type UserStore interface {
	InsertUser(ctx context.Context, u core.User) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
}

// CategorySeeder gives a new account its starting categories.
type CategorySeeder interface {
	SeedCategories(ctx context.Context, userID int64) ([]core.Category, error)
}

type AccountService struct {
	users     UserStore
	seeder    CategorySeeder
	publisher Publisher
}

func NewAccountService(users UserStore, seeder CategorySeeder, publisher Publisher) *AccountService {
	return &AccountService{users: users, seeder: seeder, publisher: publisher}
}

// Register creates a user and its default categories. A taken email fails
// with core.ErrEmailTaken. Category seeding is best effort: the account
// exists even when some defaults could not be stored.
func (s *AccountService) Register(ctx context.Context, email, password string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrConstraintViolation, core.ErrEmptyEmail)
	}
	if strings.TrimSpace(password) == "" {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrConstraintViolation, core.ErrEmptyPassword)
	}

	u, err := s.users.InsertUser(ctx, core.User{Email: email, CredentialDigest: Digest(password)})
	if err != nil {
		return core.User{}, fmt.Errorf("register %s: %w", email, err)
	}

	if s.seeder != nil {
		if _, err := s.seeder.SeedCategories(ctx, u.ID); err != nil {
			slog.WarnContext(ctx, "Default categories incomplete", "user_id", u.ID, "error", err)
		}
	}

	publish(ctx, s.publisher, amqp.EventUserRegistered, u.ID, 0)
	return u, nil
}

// Login resolves email and password to a user. Unknown emails and wrong
// passwords both yield core.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.users.UserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("login: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(u.CredentialDigest), []byte(Digest(password))) != 1 {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

func (s *AccountService) User(ctx context.Context, id int64) (core.User, error) {
	return s.users.UserByID(ctx, id)
}

// Digest is the stored form of a password. Plain SHA-256, no salt.
func Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
