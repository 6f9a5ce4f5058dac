package auth

import (
	"context"
	"strings"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Promote changes the role of the user registered under email.
// Used by the admin CLI to bootstrap the first admin.
func (s *Service) Promote(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperr.ValidationFields(map[string]string{"role": "role must be one of [client provider admin]"})
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.ValidationFields(map[string]string{"email": "email is required"})
	}

	var u *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		u.Role = role
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		return nil, store.AppError(err, "user")
	}
	return u, nil
}

// SetActive suspends or reactivates an account
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (*model.User, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().Find(ctx, userID)
		if err != nil {
			return err
		}
		if u.Role == model.RoleAdmin && !active {
			return apperr.Forbidden("admins cannot be suspended")
		}
		u.IsActive = active
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		return nil, store.AppError(err, "user")
	}
	return u, nil
}

// ListUsers returns every account, newest first
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Users().List(ctx)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch users")
	}
	return out, nil
}
