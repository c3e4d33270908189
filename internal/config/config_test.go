package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	// An explicit path that does not exist still yields pure defaults.
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".claude"), cfg.ClaudeHome)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, 0, cfg.Output.Width)
	assert.Equal(t, "accept", cfg.Parser.MixedSessionPolicy)
	assert.Equal(t, 0, cfg.Parser.MaxLineBytes)
	assert.Empty(t, cfg.Workspace.Patterns)
	assert.Equal(t, 500, cfg.Workspace.SettleDelayMS)
	assert.Equal(t, "claude", cfg.Agent.Binary)
	assert.Empty(t, cfg.Agent.Model)
	assert.False(t, cfg.Agent.SkipPermissions)
	assert.Equal(t, 600, cfg.Agent.TimeoutSeconds)
	assert.Equal(t, DBPath(), cfg.Index.DB)
	assert.Equal(t, 0, cfg.Index.Parallelism)
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
claude_home: /srv/claude
output:
  color: false
  width: 120
parser:
  mixed_session_policy: reject
  max_line_bytes: 1048576
workspace:
  patterns: ["*.go", "*.proto"]
  settle_delay_ms: 250
agent:
  binary: /usr/local/bin/claude
  model: sonnet
  skip_permissions: true
  timeout_seconds: 90
index:
  db: /var/lib/claudetrail/index.db
  parallelism: 8
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/claude", cfg.ClaudeHome)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 120, cfg.Output.Width)
	assert.Equal(t, "reject", cfg.Parser.MixedSessionPolicy)
	assert.Equal(t, 1048576, cfg.Parser.MaxLineBytes)
	assert.Equal(t, []string{"*.go", "*.proto"}, cfg.Workspace.Patterns)
	assert.Equal(t, 250, cfg.Workspace.SettleDelayMS)
	assert.Equal(t, "/usr/local/bin/claude", cfg.Agent.Binary)
	assert.Equal(t, "sonnet", cfg.Agent.Model)
	assert.True(t, cfg.Agent.SkipPermissions)
	assert.Equal(t, 90, cfg.Agent.TimeoutSeconds)
	assert.Equal(t, "/var/lib/claudetrail/index.db", cfg.Index.DB)
	assert.Equal(t, 8, cfg.Index.Parallelism)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("claude_home: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "relative", expandPath("relative"))
}

func TestDBPathLivesInConfigDir(t *testing.T) {
	assert.True(t, strings.HasPrefix(DBPath(), ConfigDir()))
	assert.Equal(t, DefaultDBName, filepath.Base(DBPath()))
}
