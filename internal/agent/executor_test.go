package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgsDefaults(t *testing.T) {
	r := &CLIRunner{Binary: "claude"}

	args := r.buildArgs(Prompt{Text: "fix the bug"})

	want := []string{
		"--output-format", "json",
		"--allowedTools", DefaultAllowedTools,
		"-p", "fix the bug",
	}
	assert.Equal(t, want, args)
}

func TestBuildArgsResumeWinsOverContinue(t *testing.T) {
	r := &CLIRunner{Binary: "claude", Model: "sonnet"}

	args := r.buildArgs(Prompt{Text: "go on", ResumeSessionID: "sess-9", ContinueSession: true})

	want := []string{
		"--output-format", "json",
		"--model", "sonnet",
		"--resume", "sess-9",
		"--allowedTools", DefaultAllowedTools,
		"-p", "go on",
	}
	assert.Equal(t, want, args)
	assert.NotContains(t, args, "--continue")
}

func TestBuildArgsContinueWithoutResume(t *testing.T) {
	r := &CLIRunner{Binary: "claude"}

	args := r.buildArgs(Prompt{Text: "go on", ContinueSession: true})

	assert.Contains(t, args, "--continue")
	assert.NotContains(t, args, "--resume")
}

func TestBuildArgsSkipPermissions(t *testing.T) {
	r := &CLIRunner{Binary: "claude", SkipPermissions: true, AllowedTools: "Read"}

	args := r.buildArgs(Prompt{Text: "x"})

	assert.Contains(t, args, "--dangerously-skip-permissions")
	assert.NotContains(t, args, "--allowedTools")
}

func TestBuildArgsExplicitToolLists(t *testing.T) {
	r := &CLIRunner{Binary: "claude", AllowedTools: "Read,Edit", DisallowedTools: "Bash(rm -rf)"}

	args := r.buildArgs(Prompt{Text: "x"})

	want := []string{
		"--output-format", "json",
		"--allowedTools", "Read,Edit",
		"--disallowedTools", "Bash(rm -rf)",
		"-p", "x",
	}
	assert.Equal(t, want, args)
}

func TestBuildArgsPromptComesLast(t *testing.T) {
	r := &CLIRunner{Binary: "claude", Model: "sonnet", SkipPermissions: true}

	args := r.buildArgs(Prompt{Text: "the prompt", ResumeSessionID: "s"})

	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, "-p", args[len(args)-2])
	assert.Equal(t, "the prompt", args[len(args)-1])
}

func TestNewCLIRunnerNotFound(t *testing.T) {
	_, err := NewCLIRunner(t.TempDir(), "claudetrail-no-such-binary")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

// writeScript drops an executable shell script standing in for the claude
// binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRunParsesReply(t *testing.T) {
	script := writeScript(t, `echo '{"result":"done","session_id":"sess-7","cost_usd":0.0125}'`)
	r := &CLIRunner{Binary: script, Dir: t.TempDir()}

	got, err := r.Run(context.Background(), Prompt{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "done", got.Response)
	assert.Equal(t, "sess-7", got.SessionID)
	assert.InDelta(t, 0.0125, got.CostUSD, 1e-9)
	assert.Equal(t, "unknown", got.Model)
	assert.GreaterOrEqual(t, got.DurationMS, int64(0))
	assert.False(t, got.Timestamp.IsZero())
}

func TestRunReportsModelWhenPresent(t *testing.T) {
	script := writeScript(t, `echo '{"result":"ok","session_id":"s","cost_usd":0,"model":"sonnet"}'`)
	r := &CLIRunner{Binary: script, Dir: t.TempDir()}

	got, err := r.Run(context.Background(), Prompt{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "sonnet", got.Model)
}

func TestRunSurfacesStderrOnFailure(t *testing.T) {
	script := writeScript(t, "echo 'invalid api key' >&2\nexit 1")
	r := &CLIRunner{Binary: script, Dir: t.TempDir()}

	_, err := r.Run(context.Background(), Prompt{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestRunRejectsMalformedReply(t *testing.T) {
	script := writeScript(t, `echo 'plain text, not json'`)
	r := &CLIRunner{Binary: script, Dir: t.TempDir()}

	_, err := r.Run(context.Background(), Prompt{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse agent reply")
}

func TestRunHonorsContextCancellation(t *testing.T) {
	script := writeScript(t, "sleep 10")
	r := &CLIRunner{Binary: script, Dir: t.TempDir()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Prompt{Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
