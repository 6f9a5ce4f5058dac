// Package seed loads demo data for the mock server.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "password123"

// Accounts lists the seeded logins by role
type Accounts struct {
	Admin     model.User
	Client    model.User
	Providers []model.User
}

// Load writes demo users, tasks, bids, a service and bookings in one transaction
func Load(ctx context.Context, s store.Store, now time.Time) (*Accounts, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	mkUser := func(name, email string, role model.Role, age time.Duration) model.User {
		return model.User{
			ID:           uuid.New().String(),
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     true,
			CreatedAt:    now.Add(-age),
		}
	}

	acc := &Accounts{
		Admin:  mkUser("Admin", "admin@taskmarket.local", model.RoleAdmin, 72*time.Hour),
		Client: mkUser("Chioma Client", "client@taskmarket.local", model.RoleClient, 48*time.Hour),
		Providers: []model.User{
			mkUser("Pat Provider", "provider1@taskmarket.local", model.RoleProvider, 47*time.Hour),
			mkUser("Sam Provider", "provider2@taskmarket.local", model.RoleProvider, 46*time.Hour),
		},
	}

	err = s.InTx(ctx, func(tx store.Tx) error {
		for _, u := range append([]model.User{acc.Admin, acc.Client}, acc.Providers...) {
			u := u
			if err := tx.Users().Create(ctx, &u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}

		open := &model.Task{
			ID:          uuid.New().String(),
			ClientID:    acc.Client.ID,
			Title:       "Logo design for a bakery",
			Description: "Need a simple, warm logo in two colour variants.",
			Category:    "design",
			Budget:      model.Budget{Amount: 50000, Type: model.BudgetFixed},
			Status:      model.TaskOpen,
			CreatedAt:   now.Add(-24 * time.Hour),
			BidsCount:   len(acc.Providers),
			UpdatedAt:   now.Add(-2 * time.Hour),
		}
		if err := tx.Tasks().Create(ctx, open); err != nil {
			return err
		}
		for i, p := range acc.Providers {
			b := &model.Bid{
				ID:         uuid.New().String(),
				TaskID:     open.ID,
				ProviderID: p.ID,
				Amount:     int64(45000 + i*10000),
				Message:    "I can deliver within a week.",
				Status:     model.BidPending,
				CreatedAt:  now.Add(-time.Duration(3-i) * time.Hour),
			}
			if err := tx.Bids().Create(ctx, b); err != nil {
				return err
			}
		}

		assignedAt := now.Add(-6 * time.Hour)
		assigned := &model.Task{
			ID:                 uuid.New().String(),
			ClientID:           acc.Client.ID,
			Title:              "Fix a leaking kitchen tap",
			Category:           "home",
			Budget:             model.Budget{Amount: 15000, Type: model.BudgetHourly},
			Status:             model.TaskAssigned,
			AssignedProviderID: acc.Providers[0].ID,
			BidsCount:          1,
			CreatedAt:          now.Add(-30 * time.Hour),
			UpdatedAt:          assignedAt,
		}
		if err := tx.Tasks().Create(ctx, assigned); err != nil {
			return err
		}
		if err := tx.Bids().Create(ctx, &model.Bid{
			ID:          uuid.New().String(),
			TaskID:      assigned.ID,
			ProviderID:  acc.Providers[0].ID,
			Amount:      15000,
			Status:      model.BidAccepted,
			RespondedAt: &assignedAt,
			CreatedAt:   now.Add(-20 * time.Hour),
		}); err != nil {
			return err
		}

		svc := &model.Service{
			ID:          uuid.New().String(),
			ProviderID:  acc.Providers[1].ID,
			Title:       "Website copywriting",
			Description: "Landing page and about page copy.",
			Category:    "writing",
			Packages: []model.Package{
				{Name: "basic", Price: 20000, DeliveryDays: 3},
				{Name: "premium", Price: 60000, DeliveryDays: 7},
			},
			CreatedAt: now.Add(-40 * 24 * time.Hour),
			UpdatedAt: now.Add(-40 * 24 * time.Hour),
		}
		if err := tx.Services().Create(ctx, svc); err != nil {
			return err
		}
		for i, score := range []int{5, 4, 0} {
			created := now.Add(-time.Duration(10+i*15) * 24 * time.Hour)
			b := &model.Booking{
				ID:          uuid.New().String(),
				ServiceID:   svc.ID,
				ClientID:    acc.Client.ID,
				ProviderID:  svc.ProviderID,
				PackageName: "basic",
				Price:       20000,
				Status:      model.BookingCompleted,
				CompletedAt: &created,
				CreatedAt:   created,
			}
			if score > 0 {
				b.RatingScore = score
				b.RatedAt = &created
			}
			if err := tx.Bookings().Create(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
