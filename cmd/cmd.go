package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	ephemeral  bool
)

var rootCmd = &cobra.Command{
	Use:          "herasat",
	Short:        "Herasat records store",
	Long:         `Security-office records of people, cases, incidents and attachments, kept in an embedded SQLite database mirrored to one persistence slot.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := internal.DefaultConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}
	return cfg, nil
}

// openApp loads the config, sets up logging and opens the database handle.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		cfg.Storage.Slot = internal.SlotKindMemory
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(ctx, cfg, app.Options{Logger: logger.LoggerWrapper()})
}

// withApp opens the handle, runs fn and flushes on the way out.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	return errors.Join(runErr, a.Close(ctx))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", ".", "directory holding config.yml")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the database in memory only")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(statsCmd)
}
