package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/service"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage tenant accounts",
	}

	cmd.AddCommand(newAccountCreateCmd())

	return cmd
}

func newAccountCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant account",
		Long:  "Create an account that can log into the management API and issue API keys.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountCreate(email, password, name)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required, min 8 chars)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func runAccountCreate(email, password, name string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	hash, err := service.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	acct := &model.Account{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
	}
	if err := st.CreateAccount(context.Background(), acct); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Printf("Account created: %s (%s)\n", email, acct.ID)
	return nil
}
