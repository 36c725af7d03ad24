package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkpost/apiserver/internal/store"
	"github.com/inkpost/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
const PasswordCost = 10

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id types.UserID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateToken(ctx context.Context, id types.UserID, token string) error
}

// AuthService registers accounts and authenticates logins.
type AuthService struct {
	users  UserRepository
	tokens *TokenService
	logger *slog.Logger
}

func NewAuthService(users UserRepository, tokens *TokenService, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is the public view of a logged-in user plus the issued token.
type LoginResult struct {
	ID    types.UserID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Token string       `json:"token"`
}

// Register creates a new account. It does not issue a token; the caller logs
// in separately.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return types.User{}, newError(ErrValidation, "All fields are required")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, newError(ErrConflict, "User already exists with this email")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check user: %w", err)
	}

	if in.Password != in.ConfirmPassword {
		return types.User{}, newError(ErrValidation, "Password and confirm password do not match")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, newError(ErrConflict, "User already exists with this email")
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies credentials and issues a token. The token is also written to
// the user record; that write is best effort.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, newError(ErrValidation, "All fields are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, newError(ErrNotFound, "User not found")
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, newError(ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.tokens.Issue(types.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.users.UpdateToken(ctx, user.ID, token); err != nil {
		s.logger.WarnContext(ctx, "failed to record issued token",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
	}

	return LoginResult{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	}, nil
}

// Me returns the account behind an authenticated identity. A token whose
// user no longer exists is treated as unauthorized.
func (s *AuthService) Me(ctx context.Context, id types.UserID) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, newError(ErrUnauthorized, "Unauthorized")
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
