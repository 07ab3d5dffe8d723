package app

import (
	"context"
	"fmt"
	"os"

	"github.com/andy/tally/internal/config"
	"github.com/andy/tally/internal/crypto"
	"github.com/andy/tally/internal/db"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/repository"
	"github.com/andy/tally/internal/service"
	"golang.org/x/term"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB

	// Repositories
	CustomerRepo repository.CustomerRepository
	InvoiceRepo  repository.InvoiceRepository
	PaymentRepo  repository.PaymentRepository

	// Services
	InvoiceService   service.InvoiceService
	PaymentService   service.PaymentService
	StatementService service.StatementService
	ReportService    service.ReportService
}

// New loads the default config and builds the App
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig resolves the encryption key, opens and migrates the
// database, and wires repositories into services.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a, err := Wire(cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds repositories and services on an open database
func Wire(cfg *config.Config, database *db.DB) (*App, error) {
	policy, err := ledger.ParseMalformedPolicy(cfg.Ledger.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	customerRepo := repository.NewCustomerRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)
	paymentRepo := repository.NewPaymentRepo(database)

	return &App{
		Config:       cfg,
		DB:           database,
		CustomerRepo: customerRepo,
		InvoiceRepo:  invoiceRepo,
		PaymentRepo:  paymentRepo,

		InvoiceService:   service.NewInvoiceService(invoiceRepo, customerRepo, cfg.Invoice),
		PaymentService:   service.NewPaymentService(invoiceRepo, paymentRepo, customerRepo, cfg.Ledger.MaxApplyAttempts),
		StatementService: service.NewStatementService(customerRepo, invoiceRepo, paymentRepo, policy),
		ReportService:    service.NewReportService(customerRepo, invoiceRepo, paymentRepo),
	}, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// promptForPassword asks for a new database password on first run
func promptForPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no encryption key found and stdin is not a terminal; set %s", crypto.EnvKey)
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Your ledger will be encrypted with a password.")
	fmt.Fprintln(os.Stderr, "The password is kept in your system keyring.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, "Enter a password for database encryption: ")

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Fprintln(os.Stderr, "✓ Database encryption configured")
	return string(password), nil
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(config.DefaultConfigPath())
}
