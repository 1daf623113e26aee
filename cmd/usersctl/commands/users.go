package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnshRaj112/newsdesk-backend/internal/config"
	"github.com/AnshRaj112/newsdesk-backend/internal/database"
	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Opener connects to the user directory. The returned func releases it.
type Opener func(ctx context.Context) (*services.UserAdmin, func(), error)

// MongoOpener opens the MongoDB user store named by the environment.
func MongoOpener() Opener {
	return func(ctx context.Context) (*services.UserAdmin, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, zap.NewNop())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		store := services.NewMongoUserStore(db, cfg.StoreTimeout)
		return services.NewUserAdmin(store, cfg.StoreTimeout), func() { _ = database.Disconnect(client) }, nil
	}
}

// NewCreateAdminCmd creates a user holding the admin role.
func NewCreateAdminCmd(open Opener) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := admin.Create(cmd.Context(), services.UserInput{
				Email:    strings.TrimSpace(email),
				Name:     strings.TrimSpace(name),
				Password: password,
				Roles:    []string{models.RoleAdmin},
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", u.Email, u.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	for _, f := range []string{"email", "name", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func NewGrantRoleCmd(open Opener) *cobra.Command {
	return newRoleCmd(open, "grant-role", "Add a role to a user", (*services.UserAdmin).GrantRole)
}

func NewRevokeRoleCmd(open Opener) *cobra.Command {
	return newRoleCmd(open, "revoke-role", "Remove a role from a user", (*services.UserAdmin).RevokeRole)
}

type roleChange func(a *services.UserAdmin, ctx context.Context, email, role string) (*models.User, error)

func newRoleCmd(open Opener, use, short string, change roleChange) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := change(admin, cmd.Context(), strings.TrimSpace(email), strings.TrimSpace(role))
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s roles: %s\n", u.Email, strings.Join(u.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the user (required)")
	cmd.Flags().StringVar(&role, "role", "", "role name, e.g. admin (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
