// Package config provides configuration loading and defaults for claudetrail.
package config

// DefaultClaudeHome is the default location of Claude Code's data directory.
const DefaultClaudeHome = "~/.claude"

// DefaultConfigDir is the default location for claudetrail configuration.
const DefaultConfigDir = "~/.config/claudetrail"

// DefaultDBName is the filename for the SQLite session index.
const DefaultDBName = "claudetrail.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 0,
}

// DefaultParser holds the default transcript parsing options.
var DefaultParser = ParserOptions{
	MixedSessionPolicy: "accept",
	MaxLineBytes:       0,
}

// DefaultWorkspace holds the default workspace snapshot options.
var DefaultWorkspace = WorkspaceOptions{
	Patterns:      nil,
	SettleDelayMS: 500,
}

// DefaultAgent holds the default agent invocation options. An empty tool
// list defers to the runner's built-in allowlist.
var DefaultAgent = Agent{
	Binary:         "claude",
	TimeoutSeconds: 600,
}

// DefaultIndex holds the default session index options.
var DefaultIndex = Index{
	DB:          "",
	Parallelism: 0,
}
