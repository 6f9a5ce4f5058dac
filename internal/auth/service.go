package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

type SignupRequest struct {
	Name     string     `json:"name" validate:"required,max=120"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=client provider"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by signup and login
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Service registers and authenticates users
type Service struct {
	store  store.Store
	tokens *Tokens
	now    func() time.Time
}

func NewService(s store.Store, tokens *Tokens) *Service {
	return &Service{store: s, tokens: tokens, now: time.Now}
}

// Signup creates an account; role defaults to client and admin is never
// self-assignable.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	role := req.Role
	if role == "" {
		role = model.RoleClient
	}
	if role != model.RoleClient && role != model.RoleProvider {
		return nil, apperr.ValidationFields(map[string]string{"role": "role must be one of [client provider]"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.Users().Create(ctx, u)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict("email already registered")
	}
	if err != nil {
		return nil, store.AppError(err, "user")
	}
	return s.session(u)
}

// Login checks credentials and issues a token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, store.AppError(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("account suspended")
	}
	return s.session(u)
}

// Me returns the authenticated user's profile
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().Find(ctx, userID)
		return err
	})
	if err != nil {
		return nil, store.AppError(err, "user")
	}
	return u, nil
}

// CheckActive rejects requests from accounts that were removed or
// suspended after their token was issued
func (s *Service) CheckActive(ctx context.Context, userID string) error {
	u, err := s.Me(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Unauthorized("account no longer exists")
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return apperr.Forbidden("account suspended")
	}
	return nil
}

func (s *Service) session(u *model.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err, "token generation failed")
	}
	return &Session{Token: token, User: u}, nil
}
