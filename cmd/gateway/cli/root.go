package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dataDir holds the --data-dir persistent flag value.
var dataDir string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "API gateway for the Pitstop CRM public API",
		Long: `The Pitstop gateway authenticates, authorizes, rate-limits, and audits
requests to the CRM's public HTTP API. Admitted requests are forwarded to the
configured upstream; everything else is rejected with a typed JSON error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the gateway database (default: ~/.pitstop-gateway)")

	cobra.OnInitialize(initEnv)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newAccountCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initEnv() {
	viper.SetEnvPrefix("PITSTOP")
	viper.AutomaticEnv()
}

// resolveDataDir returns the data directory from the --data-dir flag, the
// PITSTOP_DATA_DIR env var, or ~/.pitstop-gateway as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("PITSTOP_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pitstop-gateway"
	}
	return filepath.Join(home, ".pitstop-gateway")
}
