package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/internal/notify"
	"pricewatch/internal/quotes"
	"pricewatch/internal/resilience"
	"pricewatch/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-23"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.RuleStore
	History  store.HistoryStore
	Provider quotes.Provider
	Notifier notify.Notifier
	Scope    string
}

// initStore builds the rule store from config.
func initStore(cfg *config.Config) (store.RuleStore, store.HistoryStore, error) {
	switch cfg.Storage.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing file store: %w", err)
		}
		return fs, fs, nil
	default:
		ss, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing sqlite store: %w", err)
		}
		return ss, ss, nil
	}
}

// initProvider builds the quote provider chain from config. The base provider
// is wrapped with a cache and a circuit breaker.
func initProvider(cfg *config.Config) quotes.Provider {
	var base quotes.Provider
	switch cfg.Quotes.Provider {
	case "coincap":
		base = quotes.NewCoinCapProvider()
	default:
		base = quotes.NewYahooProvider()
	}

	wrapped := quotes.NewBreakerProvider(base, resilience.DefaultCircuitBreakerConfig())
	if cfg.Quotes.CacheTTL > 0 {
		return quotes.NewCachedProvider(wrapped, cfg.Quotes.CacheTTL)
	}
	return wrapped
}

// initNotifier builds the notifier from config.
func initNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.NewNoOpNotifier()
	}
	return notify.NewMultiNotifier(&cfg.Notifications)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Scope:  cfg.Monitor.Scope,
	}

	ruleStore, historyStore, err := initStore(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, alert commands will be unavailable")
	} else {
		app.Store = ruleStore
		app.History = historyStore
		logger.Debug().Str("backend", cfg.Storage.Backend).Msg("Store initialized")
	}

	app.Provider = initProvider(cfg)
	app.Notifier = initNotifier(cfg)
	logger.Debug().Str("provider", app.Provider.Name()).Msg("Quote provider initialized")

	rootCmd := &cobra.Command{
		Use:   "pricewatch",
		Short: "Pricewatch - price alert monitoring CLI",
		Long: `Pricewatch watches stock and crypto prices and fires alerts when a
price crosses a target you set.

Alerts are checked on an interval, de-duplicated with a cooldown window,
and delivered via desktop, Telegram, email, or webhook notifications.

Use 'pricewatch help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pricewatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("scope", "", "alert scope (default: from config)")

	addAlertCommands(rootCmd, app)
	addWatchCommands(rootCmd, app)
	addCoreCommands(rootCmd, app)

	return rootCmd
}

// scopeFor resolves the effective scope for a command invocation.
func (app *App) scopeFor(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("scope"); s != "" {
		return s
	}
	if app.Scope != "" {
		return app.Scope
	}
	return "default"
}

// requireStore returns an error if the store failed to initialize.
func (app *App) requireStore() error {
	if app.Store == nil {
		return fmt.Errorf("alert storage is unavailable, check storage configuration")
	}
	return nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Pricewatch v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Monitor Configuration")
	output.Printf("  Scope:           %s\n", cfg.Monitor.Scope)
	output.Printf("  Interval:        %s\n", cfg.Monitor.Interval)
	output.Printf("  Cooldown Window: %s\n", cfg.Monitor.CooldownWindow)
	output.Printf("  Quote Timeout:   %s\n", cfg.Monitor.QuoteTimeout)
	output.Println()

	output.Bold("Storage Configuration")
	output.Printf("  Backend:         %s\n", cfg.Storage.Backend)
	output.Printf("  Path:            %s\n", cfg.Storage.Path)
	output.Println()

	output.Bold("Quote Provider")
	output.Printf("  Provider:        %s\n", cfg.Quotes.Provider)
	output.Printf("  Cache TTL:       %s\n", cfg.Quotes.CacheTTL)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Desktop:         %v\n", cfg.Notifications.Desktop.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:           %v\n", cfg.Notifications.Email.Enabled)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)

	return nil
}
