package main

import (
	"errors"
	"fmt"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/utils"
	"github.com/spf13/cobra"
)

func seedAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account, or promote and re-password an existing one",
		Long: `Create an admin account, or promote and re-password an existing one.

Examples:
  donorctl seed-admin --email ops@example.org --password 'S3curePassw0rd'
  donorctl seed-admin --email ops@example.org --password 'S3curePassw0rd' --name Ops`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = utils.SanitizeEmail(email)
			if !utils.ValidateEmail(email) {
				return fmt.Errorf("invalid email %q", email)
			}
			if !utils.ValidatePassword(password) {
				return errors.New("password must be at least 8 characters with upper case, lower case and a digit")
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			hash, err := utils.HashPassword(password, e.cfg.Security.BCryptCost)
			if err != nil {
				return err
			}

			accounts := e.repositories().Account
			ctx := cmd.Context()

			existing, err := accounts.GetByEmail(ctx, email)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				account := &domain.Account{
					Name:         name,
					Email:        email,
					PasswordHash: &hash,
					Role:         domain.RoleAdmin,
				}
				if err := accounts.Create(ctx, account); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", account.Email, account.ID)
				return nil
			case err != nil:
				return err
			}

			if err := accounts.UpdatePassword(ctx, existing.ID, hash); err != nil {
				return err
			}
			if err := accounts.SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", existing.Email, existing.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new account")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
