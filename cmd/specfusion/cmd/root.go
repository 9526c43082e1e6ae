// Package cmd provides the CLI commands for SpecFusion.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/specfusion/specfusion/internal/config"
	"github.com/specfusion/specfusion/internal/logging"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/tokenizer"
	"github.com/specfusion/specfusion/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the specfusion CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specfusion",
		Short: "中文 API 文档搜索与同步引擎",
		Long: `SpecFusion serves and syncs Chinese/English developer documentation:
full-text search over SQLite FTS5 with a Chinese-aware tokenizer, plus
source adapters for the major open platforms (企业微信, 飞书, 钉钉, ...).

Run 'specfusion serve' to start the query server, or 'specfusion sync'
to ingest documentation sources.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("specfusion version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newListSourcesCmd())
	cmd.AddCommand(newAddOpenAPICmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI. Errors are printed once here; cobra's own
// echoing is silenced.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func setupLogging(*cobra.Command, []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
	}
	_, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig resolves process configuration and primes the tokenizer
// dictionary shared by serve and sync.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := tokenizer.Init(cfg.ResolveUserDict()); err != nil {
		slog.Warn("user dictionary load failed",
			"event_name", "userdict_load_failed", "error", err)
	}
	return cfg, nil
}

// openStore opens the database, creating the data directory if needed.
func openStore(cfg *config.Config) (*store.Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create data directory %s: %w", dir, err)
		}
	}
	return store.Open(cfg.DBPath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print detailed version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
