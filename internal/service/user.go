// Package service contains the business logic layer of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces ownership, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values that the handler layer maps to HTTP status codes. Nothing
// here knows about HTTP, so the same code backs the API and cmd/recipectl.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/metrics"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

const (
	DefaultMinPasswordLength = 5
	MaxNameLength            = 255
)

// errInvalidCredentials is deliberately the same for an unknown email, a wrong
// password and an inactive account.
const errInvalidCredentials = "unable to authenticate with provided credentials"

// UserService owns account creation, credential checks and token issuance.
type UserService struct {
	users             repository.UserRepository
	passwords         *auth.PasswordService
	tokens            *auth.TokenService
	minPasswordLength int
	logger            *slog.Logger
}

// NewUserService wires the user service. tokens may be nil for callers that
// never issue tokens (cmd/recipectl).
func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	minPasswordLength int,
	logger *slog.Logger,
) *UserService {
	if minPasswordLength < 1 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &UserService{
		users:             users,
		passwords:         passwords,
		tokens:            tokens,
		minPasswordLength: minPasswordLength,
		logger:            logger,
	}
}

// NormalizeEmail trims and lower-cases an address. The whole address is
// lower-cased, not just the domain, so lookups never depend on the casing a
// client happened to send.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers an active, non-staff account.
func (s *UserService) CreateUser(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.create(ctx, email, password, name, false)
}

// CreateSuperuser registers an account with the staff and superuser flags set.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.create(ctx, email, password, name, true)
}

func (s *UserService) create(ctx context.Context, email, password, name string, super bool) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "users must have an email address")
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.AsValidation(err)
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	kind := "user"
	if super {
		kind = "superuser"
	}
	metrics.UsersCreatedTotal.WithLabelValues(kind).Inc()
	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("superuser", super),
	)
	return user, nil
}

// CheckPassword reports whether raw matches the user's stored hash.
func (s *UserService) CheckPassword(user *model.User, raw string) bool {
	return s.passwords.Verify(user.PasswordHash, raw) == nil
}

// Authenticate resolves email/password to an active user. Every failure is
// a validation error, never unauthorized: the token endpoint answers 400.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("", errInvalidCredentials)
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !user.IsActive || !s.CheckPassword(user, password) {
		return nil, apperror.ValidationFailed("", errInvalidCredentials)
	}
	return user, nil
}

// IssueToken authenticates the credentials and returns a signed token.
func (s *UserService) IssueToken(ctx context.Context, email, password string) (string, error) {
	if s.tokens == nil {
		return "", errors.New("issuing token: token service not configured")
	}

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			metrics.TokensIssuedTotal.WithLabelValues("rejected").Inc()
		}
		return "", err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("issued").Inc()
	s.logger.Debug("token issued", slog.String("userID", user.ID))
	return token, nil
}

// GetByID returns the user with the given id.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ProfileUpdate lists the fields of a "me" update. Nil leaves a field as is.
type ProfileUpdate struct {
	Email    *string
	Name     *string
	Password *string
}

// UpdateProfile applies u to the user's own record ("fetch then update").
func (s *UserService) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Email != nil {
		email := NormalizeEmail(*u.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "users must have an email address")
		}
		user.Email = email
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if u.Password != nil {
		hash, err := s.hashPassword(*u.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.AsValidation(err)
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update user",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", slog.String("id", user.ID))
	return user, nil
}

// SetPassword replaces the password of the account identified by email.
func (s *UserService) SetPassword(ctx context.Context, email, password string) error {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	_, err = s.UpdateProfile(ctx, user.ID, ProfileUpdate{Password: &password})
	return err
}

func (s *UserService) hashPassword(password string) (string, error) {
	if len(password) < s.minPasswordLength {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", s.minPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", auth.MaxPasswordBytes))
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	return nil
}
