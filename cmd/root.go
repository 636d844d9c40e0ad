package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trackreg/internal/application/registry"
	"trackreg/internal/config"
	"trackreg/internal/infrastructure/sqlite"
	"trackreg/internal/log"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
	"trackreg/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	dbFlag    string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trackreg",
	Short: "Provenance registry for two-stage training runs",
	Long: `Trackreg replaces the hand-maintained run ledger with a durable registry
of doublet and triplet training runs. Every run is recorded with its
dataset, its result location, and the upstream doublet checkpoint a
triplet consumed, so lineage questions have one authoritative answer.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .trackreg/config.yaml, then ~/.config/trackreg/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "",
		"registry database file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"force debug logging on")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("database.path", defaults.Database.Path)
	viper.SetDefault("log.enabled", defaults.Log.Enabled)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.color", defaults.Output.Color)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.endpoint", defaults.Tracing.Endpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.insecure", defaults.Tracing.Insecure)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .trackreg/config.yaml (current directory, per-project overrides)
		// 2. ~/.config/trackreg/config.yaml (user config)
		if _, err := os.Stat(filepath.Join(".trackreg", "config.yaml")); err == nil {
			viper.SetConfigFile(filepath.Join(".trackreg", "config.yaml"))
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "trackreg"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user-level default.
		// The registry itself is global, so first run seeds the user config
		// rather than dropping a .trackreg directory in the working tree.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if home, homeErr := os.UserHomeDir(); homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "trackreg", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
				// If write fails, just continue with defaults (no config file)
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// withService opens the registry stack, runs fn, and tears it down again.
// Every data command funnels through here so logging, tracing, and the
// database share one lifecycle per invocation.
func withService(cmd *cobra.Command, jsonOut bool, fn func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error) error {
	closeLog := initLogging()
	defer closeLog()

	if err := config.Validate(cfg); err != nil {
		return err
	}

	provider, err := newTracingProvider()
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	ctx := context.Background()
	defer func() {
		if shutdownErr := provider.Shutdown(ctx); shutdownErr != nil {
			log.ErrorErr(log.CatTrace, "failed to flush traces", shutdownErr)
		}
	}()

	db, err := sqlite.NewDB(databasePath())
	if err != nil {
		return fmt.Errorf("opening registry database: %w", err)
	}
	defer db.Close()

	svc := registry.NewService(
		db.RunRepository(),
		db.ImportRepository(),
		domain.NewResolver(os.Getenv),
		registry.WithTracer(provider.Tracer()),
	)

	presentation.ConfigureColor(colorMode())
	out := presentation.NewFormatter(cmd.OutOrStdout(), jsonOut)

	return fn(ctx, svc, out)
}

// initLogging turns on file logging when configured, or when forced by
// --debug / TRACKREG_DEBUG. Returns a close func (no-op when logging
// stays off).
func initLogging() func() {
	enabled := cfg.Log.Enabled || debugFlag || os.Getenv("TRACKREG_DEBUG") != ""
	if !enabled {
		return func() {}
	}

	path := cfg.Log.File
	if path == "" {
		path = config.DefaultLogFilePath()
	}
	if path == "" {
		return func() {}
	}
	path = expandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create log directory for %s: %v\n", path, err)
		return func() {}
	}
	closer, err := log.Init(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", path, err)
		return func() {}
	}
	log.SetEnabled(true)
	log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	return closer
}

// newTracingProvider converts the tracing config section into a provider,
// deriving the default trace file when the file exporter has no endpoint.
func newTracingProvider() (*tracing.Provider, error) {
	endpoint := cfg.Tracing.Endpoint
	if endpoint == "" && (cfg.Tracing.Exporter == "" || cfg.Tracing.Exporter == "file") {
		endpoint = config.DefaultTracesFilePath()
	}
	return tracing.NewProvider(tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Exporter:   cfg.Tracing.Exporter,
		Endpoint:   expandHome(endpoint),
		SampleRate: cfg.Tracing.SampleRate,
		Insecure:   cfg.Tracing.Insecure,
	})
}

// databasePath resolves the registry database location.
// Priority: --db flag, TRACKREG_DB env, config, then the home default.
func databasePath() string {
	if dbFlag != "" {
		return expandHome(dbFlag)
	}
	if env := os.Getenv("TRACKREG_DB"); env != "" {
		return expandHome(env)
	}
	if cfg.Database.Path != "" {
		return expandHome(cfg.Database.Path)
	}
	return config.DefaultDatabasePath()
}

// colorMode resolves the output.color setting, defaulting to auto.
func colorMode() string {
	if cfg.Output.Color == "" {
		return "auto"
	}
	return cfg.Output.Color
}

// jsonOutput reports whether a read command should emit JSON, either from
// its own --json flag or the configured default format.
func jsonOutput(jsonFlag bool) bool {
	return jsonFlag || cfg.Output.Format == "json"
}

// expandHome resolves a leading ~/ against the user home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Exit codes, one per error kind, stable for scripting.
const (
	exitOK                     = 0
	exitError                  = 1
	exitMalformedPath          = 2
	exitDuplicateResultPath    = 3
	exitDuplicateID            = 4
	exitNotFound               = 5
	exitImmutableField         = 6
	exitStageMismatch          = 7
	exitAlreadyLinked          = 8
	exitReferencedByDependents = 9
	exitCycleDetected          = 10
)

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var notFound *domain.RunNotFoundError
	var mismatch *domain.StageMismatchError
	switch {
	case errors.Is(err, domain.ErrMalformedPath):
		return exitMalformedPath
	case errors.Is(err, domain.ErrDuplicateResultPath):
		return exitDuplicateResultPath
	case errors.Is(err, domain.ErrDuplicateID):
		return exitDuplicateID
	case errors.As(err, &notFound):
		return exitNotFound
	case errors.Is(err, domain.ErrImmutableField):
		return exitImmutableField
	case errors.As(err, &mismatch):
		return exitStageMismatch
	case errors.Is(err, domain.ErrAlreadyLinked):
		return exitAlreadyLinked
	case errors.Is(err, domain.ErrReferencedByDependents):
		return exitReferencedByDependents
	case errors.Is(err, domain.ErrCycleDetected):
		return exitCycleDetected
	default:
		return exitError
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
