package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level claudetrail configuration.
type Config struct {
	ClaudeHome string           `mapstructure:"claude_home"`
	Output     Output           `mapstructure:"output"`
	Parser     ParserOptions    `mapstructure:"parser"`
	Workspace  WorkspaceOptions `mapstructure:"workspace"`
	Agent      Agent            `mapstructure:"agent"`
	Index      Index            `mapstructure:"index"`
}

// Output defines output preferences. A zero width means detect from the
// terminal.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// ParserOptions defines transcript parsing behavior.
type ParserOptions struct {
	// MixedSessionPolicy is one of accept, warn, or reject.
	MixedSessionPolicy string `mapstructure:"mixed_session_policy"`
	// MaxLineBytes caps a single transcript line; zero uses the built-in limit.
	MaxLineBytes int `mapstructure:"max_line_bytes"`
}

// WorkspaceOptions defines snapshot behavior for conversation runs.
type WorkspaceOptions struct {
	// Patterns overrides the glob set of files captured in snapshots.
	Patterns []string `mapstructure:"patterns"`
	// SettleDelayMS is how long to wait after an agent run before the
	// closing snapshot, giving the transcript time to flush.
	SettleDelayMS int `mapstructure:"settle_delay_ms"`
}

// Agent defines how the claude CLI is invoked.
type Agent struct {
	Binary          string `mapstructure:"binary"`
	Model           string `mapstructure:"model"`
	AllowedTools    string `mapstructure:"allowed_tools"`
	DisallowedTools string `mapstructure:"disallowed_tools"`
	SkipPermissions bool   `mapstructure:"skip_permissions"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// Index defines the SQLite session index location and ingest parallelism.
type Index struct {
	// DB is the database path; empty means <config dir>/claudetrail.db.
	DB string `mapstructure:"db"`
	// Parallelism caps concurrent transcript parses; zero means GOMAXPROCS.
	Parallelism int `mapstructure:"parallelism"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("claude_home", DefaultClaudeHome)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("parser.mixed_session_policy", DefaultParser.MixedSessionPolicy)
	v.SetDefault("parser.max_line_bytes", DefaultParser.MaxLineBytes)
	v.SetDefault("workspace.patterns", DefaultWorkspace.Patterns)
	v.SetDefault("workspace.settle_delay_ms", DefaultWorkspace.SettleDelayMS)
	v.SetDefault("agent.binary", DefaultAgent.Binary)
	v.SetDefault("agent.model", DefaultAgent.Model)
	v.SetDefault("agent.allowed_tools", DefaultAgent.AllowedTools)
	v.SetDefault("agent.disallowed_tools", DefaultAgent.DisallowedTools)
	v.SetDefault("agent.skip_permissions", DefaultAgent.SkipPermissions)
	v.SetDefault("agent.timeout_seconds", DefaultAgent.TimeoutSeconds)
	v.SetDefault("index.db", DefaultIndex.DB)
	v.SetDefault("index.parallelism", DefaultIndex.Parallelism)

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		configDir := expandPath(DefaultConfigDir)
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Only return error for problems other than file not found.
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Expand paths.
	cfg.ClaudeHome = expandPath(cfg.ClaudeHome)
	if cfg.Index.DB == "" {
		cfg.Index.DB = DBPath()
	} else {
		cfg.Index.DB = expandPath(cfg.Index.DB)
	}

	return &cfg, nil
}

// DBPath returns the default path of the SQLite session index.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
