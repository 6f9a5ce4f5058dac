package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/catalog"
	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/db"
	"github.com/sudo-init-do/taskmarket/internal/logger"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store/postgres"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:           "adminutil",
		Short:         "Operational commands for the taskmarket database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "config file path")
	root.AddCommand(newPromoteCommand(&configFile), newRecomputeCommand(&configFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newPromoteCommand(configFile *string) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change the role of a registered user",
		Example: "  adminutil promote --email user@example.com\n" +
			"  adminutil promote --email user@example.com --role provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configFile, func(ctx context.Context, st *postgres.Store, cfg *config.Config) error {
				svc := auth.NewService(st, auth.NewTokens(cfg.JWT.Secret, cfg.TokenTTL()))
				u, err := svc.Promote(ctx, email, model.Role(role))
				if err != nil {
					return err
				}
				fmt.Printf("User %s is now %s.\n", u.Email, u.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email of the user to promote")
	cmd.Flags().StringVarP(&role, "role", "r", string(model.RoleAdmin), "role to assign (client, provider, admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRecomputeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [service-id]",
		Short: "Recompute rating and popularity for one service or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configFile, func(ctx context.Context, st *postgres.Store, _ *config.Config) error {
				agg := catalog.NewAggregator(st)
				if len(args) == 1 {
					s, err := agg.Recompute(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Printf("Service %s: rating %.1f (%d), popularity %.2f\n",
						s.ServiceID, s.Rating.Average, s.Rating.Count, s.PopularityScore)
					return nil
				}
				n, err := agg.RecomputeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Recomputed %d services.\n", n)
				return nil
			})
		},
	}
}

func withStore(parent context.Context, configFile string, fn func(ctx context.Context, st *postgres.Store, cfg *config.Config) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if _, err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, postgres.New(pool), cfg)
}
