package cli

import (
	"context"
	"fmt"

	"github.com/andy/tally/internal/app"
	"github.com/andy/tally/internal/config"
	"github.com/andy/tally/internal/logger"
	"github.com/spf13/cobra"
)

var (
	appInstance *app.App
	closeLog    func() error

	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Customer ledger: invoices, payments, and statements",
	Long: `Tally keeps a customer ledger of invoices and payments in an encrypted
database and produces account statements and receivables reports from it.

The encryption key is read from TALLY_DB_KEY or the system keyring.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return nil
		}
		return initApp(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	defer func() {
		if appInstance != nil {
			appInstance.Close()
		}
	}()
	return rootCmd.ExecuteContext(context.Background())
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

// initApp loads config, sets up logging and opens the ledger. Help and
// completion never reach it, so they work without a key.
func initApp(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	closeLog, err = logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	a, err := app.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	appInstance = a
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(customersCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(paymentsCmd)
	rootCmd.AddCommand(statementCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resetCmd)
}
