package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aws2spaces/internal/app"
	"aws2spaces/internal/config"
	"aws2spaces/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "aws2spaces",
	Short: "Migrate a bucket from AWS S3 to DigitalOcean Spaces (or any S3-compatible store)",
	Long:  `A concurrent, streaming bulk-migration tool that copies every object from a source bucket to a destination bucket, optionally rewriting key prefixes, with per-object retry and exact success/failure accounting.`,
	RunE:  runMigration,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")

	// Source flags
	rootCmd.Flags().String("src-provider", "aws", "Source provider (aws/s3compat)")
	rootCmd.Flags().String("src-endpoint", "", "Source endpoint (s3compat only)")
	rootCmd.Flags().String("src-region", "", "Source region")
	rootCmd.Flags().String("src-access-key", "", "Source access key")
	rootCmd.Flags().String("src-secret-key", "", "Source secret key")
	rootCmd.Flags().Bool("src-secure", false, "Use HTTPS for source")
	rootCmd.Flags().String("src-bucket", "", "Source bucket name (required)")

	// Destination flags
	rootCmd.Flags().String("dst-provider", "s3compat", "Destination provider (aws/s3compat)")
	rootCmd.Flags().String("dst-endpoint", "", "Destination endpoint, e.g. nyc3.digitaloceanspaces.com")
	rootCmd.Flags().String("dst-region", "", "Destination region")
	rootCmd.Flags().String("dst-access-key", "", "Destination access key")
	rootCmd.Flags().String("dst-secret-key", "", "Destination secret key")
	rootCmd.Flags().Bool("dst-secure", true, "Use HTTPS for destination")
	rootCmd.Flags().String("dst-bucket", "", "Destination bucket name (required)")

	// Migration flags
	rootCmd.Flags().String("prefix", "", "Object prefix filter")
	rootCmd.Flags().Int("page-size", 1000, "Listing page size")
	rootCmd.Flags().Int("concurrency", 16, "Number of concurrent workers")
	rootCmd.Flags().Int("retries", 3, "Maximum attempts per object")
	rootCmd.Flags().Bool("dry-run", false, "List objects without migrating")
	rootCmd.Flags().String("succeeded-log", "./transferred.log", "Succeeded-objects log file")
	rootCmd.Flags().String("failed-log", "./failed.log", "Failed-objects log file")
	rootCmd.Flags().String("journal-db", "", "Outcome journal database file (empty disables)")
	rootCmd.Flags().String("metrics-addr", "", "Prometheus metrics listen address (empty disables)")
	rootCmd.Flags().String("rename-mode", "identity", "Key rename mode (identity/prefix-rewrite)")
	rootCmd.Flags().String("rename-from", "", "Substring to replace (prefix-rewrite)")
	rootCmd.Flags().String("rename-to", "", "Replacement substring (prefix-rewrite)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug/info/warn/error)")
}

func runMigration(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	// Create application
	migrator, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	// Run migration
	summary, err := migrator.Run(ctx)

	// Close migrator resources after migration completes or is cancelled
	if closeErr := migrator.Close(); closeErr != nil {
		log.Error("Error closing migrator", zap.Error(closeErr))
	}

	if err != nil {
		return err
	}

	fmt.Printf("Done: %d enumerated, %d transferred, %d failed (%d bytes in %s)\n",
		summary.Enumerated, summary.Succeeded, summary.Failed, summary.Bytes, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
