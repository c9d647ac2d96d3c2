package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examseed/internal/config"
	"examseed/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseURL    string
	timeout    time.Duration
	randomSeed int64
	fromCache  bool
	quiet      bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "examseed",
	Short: "Seed and simulate an exam-management service",
	Long: `examseed populates an exam-management REST service with a synthetic
Region -> Centre -> School -> Student hierarchy and a catalogue of exams, then
simulates the exam lifecycle by submitting applications and publishing results.

Every creation is classified as created, rejected, duplicate or transport
failure. Duplicates are skipped, so re-running a level is safe.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		logger, err = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
		}, verbose)
		if err != nil {
			return err
		}
		logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("path", configPath),
			zap.String("base_url", cfg.Service.BaseURL),
			zap.String("cache", cfg.Cache.Driver+":"+cfg.Cache.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyFlagOverrides copies explicitly set global flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		c.Service.BaseURL = baseURL
	}
	if flags.Changed("timeout") {
		c.Service.Timeout = timeout.String()
	}
	if flags.Changed("seed") {
		c.RandomSeed = randomSeed
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Service base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "seed", 0, "Random seed for generated data (0 picks one)")
	rootCmd.PersistentFlags().BoolVar(&fromCache, "from-cache", false, "Read parent collections from the cache instead of the service")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(sandboxCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
