// Package agent invokes the claude CLI and turns each invocation into an
// immutable record of what changed in the workspace.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultAllowedTools is the standard Claude Code tool set granted when no
// explicit allow or deny list is configured.
const DefaultAllowedTools = "Task,Bash,Glob,Grep,LS,Read,Edit,MultiEdit,Write,NotebookRead,NotebookEdit,WebFetch,TodoRead,TodoWrite,WebSearch"

// ErrAgentNotFound means the agent binary is not on PATH.
var ErrAgentNotFound = errors.New("claude CLI not found in PATH")

// Prompt is one instruction for the agent. ResumeSessionID pins the exact
// session to resume and always wins over the ambiguous ContinueSession flag.
type Prompt struct {
	Text            string `json:"text"`
	ContinueSession bool   `json:"continue_session"`
	ResumeSessionID string `json:"resume_session_id,omitempty"`
}

// Execution is the agent's reply to one prompt. DurationMS is wall clock
// measured around the invocation, not the agent's self-reported timing.
type Execution struct {
	Response   string    `json:"response"`
	SessionID  string    `json:"session_id"`
	CostUSD    float64   `json:"cost"`
	DurationMS int64     `json:"duration_ms"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
}

// Runner executes prompts. CLIRunner is the production implementation;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, prompt Prompt) (Execution, error)
}

// CLIRunner shells out to the claude binary. The working directory matters:
// Claude Code tracks sessions per directory.
type CLIRunner struct {
	Binary          string
	Dir             string
	Model           string
	AllowedTools    string
	DisallowedTools string
	SkipPermissions bool
}

// NewCLIRunner resolves the agent binary (default "claude") on PATH and
// binds it to the given working directory.
func NewCLIRunner(dir, binary string) (*CLIRunner, error) {
	if binary == "" {
		binary = "claude"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, binary)
	}
	return &CLIRunner{Binary: path, Dir: dir}, nil
}

// Run invokes the binary with --output-format json and decodes its reply.
// Cancellation and deadlines propagate through ctx to the child process.
func (r *CLIRunner) Run(ctx context.Context, prompt Prompt) (Execution, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.Binary, r.buildArgs(prompt)...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Execution{}, fmt.Errorf("agent: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Execution{}, fmt.Errorf("agent failed: %s", msg)
	}

	var reply cliReply
	if err := json.Unmarshal(stdout.Bytes(), &reply); err != nil {
		return Execution{}, fmt.Errorf("parse agent reply: %w", err)
	}

	model := reply.Model
	if model == "" {
		model = "unknown"
	}
	return Execution{
		Response:   reply.Result,
		SessionID:  reply.SessionID,
		CostUSD:    reply.CostUSD,
		DurationMS: time.Since(start).Milliseconds(),
		Model:      model,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// buildArgs assembles the CLI invocation. Order matters: -p and the prompt
// text must come last.
func (r *CLIRunner) buildArgs(prompt Prompt) []string {
	args := []string{"--output-format", "json"}

	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}

	if prompt.ResumeSessionID != "" {
		args = append(args, "--resume", prompt.ResumeSessionID)
	} else if prompt.ContinueSession {
		args = append(args, "--continue")
	}

	switch {
	case r.SkipPermissions:
		args = append(args, "--dangerously-skip-permissions")
	case r.AllowedTools != "" || r.DisallowedTools != "":
		if r.AllowedTools != "" {
			args = append(args, "--allowedTools", r.AllowedTools)
		}
		if r.DisallowedTools != "" {
			args = append(args, "--disallowedTools", r.DisallowedTools)
		}
	default:
		args = append(args, "--allowedTools", DefaultAllowedTools)
	}

	return append(args, "-p", prompt.Text)
}

// cliReply is the JSON claude prints with --output-format json.
type cliReply struct {
	Result    string  `json:"result"`
	SessionID string  `json:"session_id"`
	CostUSD   float64 `json:"cost_usd"`
	Model     string  `json:"model"`
}
