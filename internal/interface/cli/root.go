package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/engine"
)

var (
	logsDir     string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ccreplay",
	Short: "Claude Code conversation browser",
	Long: `ccreplay - search, browse, replay and resume your Claude Code sessions

Reads the JSONL logs Claude Code keeps under ~/.claude/projects/ and
reconstructs full conversations from them on the fly. The logs are the
database: there is no import step, only an optional snapshot cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&logsDir, "logs-dir", "", "Log directory to read (default: ~/.claude/projects)")
}

// loadConfig reads the config files and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logsDir != "" {
		cfg.LogsDir = logsDir
	}
	return cfg, nil
}

// openEngine builds the engine all commands share. Sessions are
// reconstructed lazily on first query.
func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg), nil
}
