package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pitstopcrm/gateway/internal/keys"
	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to call the CRM data API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		account    string
		label      string
		read       []string
		write      []string
		del        []string
		perMinute  int
		perDay     int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key for an account. The raw key is shown once and cannot be retrieved again.",
		Example: `  gateway key create --account owner@shop.example --label "mobile app" --read clients,vehicles
  gateway key create --account owner@shop.example --read '*' --write '*' --delete '*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(account, label, read, write, del, perMinute, perDay)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Email of the owning account (required)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.Flags().StringSliceVar(&read, "read", nil, "Resources readable with this key ('*' for all)")
	cmd.Flags().StringSliceVar(&write, "write", nil, "Resources writable with this key")
	cmd.Flags().StringSliceVar(&del, "delete", nil, "Resources deletable with this key")
	cmd.Flags().IntVar(&perMinute, "per-minute", 60, "Per-minute request quota (0 = unlimited)")
	cmd.Flags().IntVar(&perDay, "per-day", 10000, "Per-day request quota (0 = unlimited)")
	cmd.MarkFlagRequired("account")

	return cmd
}

func runKeyCreate(email, label string, read, write, del []string, perMinute, perDay int) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	acct, err := st.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account %q not found", email)
	}

	raw, digest, preview, err := keys.Generate()
	if err != nil {
		return err
	}

	cred := &model.Credential{
		AccountID:          acct.ID,
		KeyHash:            digest,
		KeyPreview:         preview,
		Label:              label,
		Permissions:        model.PermissionSet{Read: read, Write: write, Delete: del},
		RateLimitPerMinute: perMinute,
		RateLimitPerDay:    perDay,
		IsActive:           true,
	}
	if err := st.CreateCredential(ctx, cred); err != nil {
		return fmt.Errorf("create credential: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", raw)
	fmt.Printf("  Account: %s\n", email)
	if label != "" {
		fmt.Printf("  Label:   %s\n", label)
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		account    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(account, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Email of the owning account (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("account")

	return cmd
}

func runKeyList(email string, jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	acct, err := st.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account %q not found", email)
	}

	creds, err := st.ListCredentialsByAccount(ctx, acct.ID)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(creds)
	}

	if len(creds) == 0 {
		fmt.Println("No API keys.")
		return nil
	}
	for _, c := range creds {
		status := "active"
		if !c.IsActive {
			status = "revoked"
		}
		fmt.Printf("  %s  ...%s  %-8s  %s\n", c.ID, c.KeyPreview, status, c.Label)
	}
	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(account, args[0])
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Email of the owning account (required)")
	cmd.MarkFlagRequired("account")

	return cmd
}

func runKeyRevoke(email, keyID string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	acct, err := st.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account %q not found", email)
	}

	if err := st.RevokeCredential(ctx, acct.ID, keyID); err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("key %q not found for account %q", keyID, email)
		}
		return fmt.Errorf("revoke key: %w", err)
	}

	fmt.Printf("Key %s revoked.\n", keyID)
	return nil
}
