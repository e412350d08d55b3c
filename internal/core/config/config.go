package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const DefaultResumePrompt = `Resuming session from {{last_updated}}.{{#different_directory}} Session launched from {{project_path}}, but you were last working in: {{last_cwd}}{{/different_directory}}

IMPORTANT: This session has been inactive for {{time_since}}. Before proceeding: check git status, look around to understand what changed, and be careful not to overwrite any work in progress.`

const (
	// DefaultWorkers is the reconstruction pool size.
	DefaultWorkers = 2
	// DefaultMaxResults caps search output.
	DefaultMaxResults = 50
)

type Config struct {
	LogsDir              string   // archive root; empty means the standard location
	CacheDir             string   // session snapshot cache
	Workers              int      // parallel reconstruction workers
	MaxResults           int      // search result cap
	ResumePromptTemplate string
	ExportTemplate       string   // custom export template (optional)
	TerminalCommand      string   // custom command to spawn terminal (optional)
	ClaudeFlags          []string // additional flags to pass to claude --resume
}

type tomlConfig struct {
	LogsDir     string   `toml:"logs_dir"`
	CacheDir    string   `toml:"cache_dir"`
	Workers     int      `toml:"workers"`
	MaxResults  int      `toml:"max_results"`
	ClaudeFlags []string `toml:"claude_flags"`
}

// Load reads config from ~/.config/ccreplay/. Missing files mean
// defaults; a config problem never blocks startup.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaults(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "ccreplay")), nil
}

// LoadFrom reads config from an explicit directory.
func LoadFrom(configDir string) *Config {
	cfg := defaults()
	if configDir == "" {
		return cfg
	}

	tomlPath := filepath.Join(configDir, "config.toml")
	promptPath := filepath.Join(configDir, "resume_prompt.txt")
	exportPath := filepath.Join(configDir, "export_template.txt")
	terminalPath := filepath.Join(configDir, "terminal_command.txt")

	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err == nil {
			if tc.LogsDir != "" {
				cfg.LogsDir = expandPath(tc.LogsDir)
			}
			if tc.CacheDir != "" {
				cfg.CacheDir = expandPath(tc.CacheDir)
			}
			if tc.Workers > 0 {
				cfg.Workers = tc.Workers
			}
			if tc.MaxResults > 0 {
				cfg.MaxResults = tc.MaxResults
			}
			cfg.ClaudeFlags = tc.ClaudeFlags
		}
	}

	if data, err := os.ReadFile(promptPath); err == nil {
		cfg.ResumePromptTemplate = string(data)
	}
	if data, err := os.ReadFile(exportPath); err == nil {
		cfg.ExportTemplate = string(data)
	}
	if data, err := os.ReadFile(terminalPath); err == nil {
		cfg.TerminalCommand = strings.TrimSpace(string(data))
	}

	return cfg
}

func defaults() *Config {
	cfg := &Config{
		Workers:              DefaultWorkers,
		MaxResults:           DefaultMaxResults,
		ResumePromptTemplate: DefaultResumePrompt,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.CacheDir = filepath.Join(home, ".ccreplay", "cache")
	}
	return cfg
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
