package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

// Sentinel values used on a conversation's first turn, before any transcript
// exists for the workspace. They survive JSON round-trips as ordinary
// strings.
const (
	NoSessionFile            = "NO_SESSION_FILE"
	PreConversationSessionID = "PRE_CONVERSATION_SESSION_ID"
)

var (
	// ErrNoProjectDir means Claude Code has no project directory for the
	// workspace yet.
	ErrNoProjectDir = errors.New("no claude project directory for workspace")

	// ErrNoSessionFile means the project directory exists but holds no
	// transcripts.
	ErrNoSessionFile = errors.New("no session files for workspace")
)

// DefaultPatterns are the base-name patterns a workspace tracks when no
// explicit set is configured.
var DefaultPatterns = []string{
	"*.go", "*.py", "*.rs", "*.js", "*.ts", "*.jsx", "*.tsx",
	"*.json", "*.toml", "*.yaml", "*.yml", "*.md",
	"Dockerfile", ".gitignore",
}

// Snapshot is a point-in-time capture of the tracked files in a workspace
// plus the Claude session active at that moment. Snapshots are embedded in
// recorded transitions, so every field serializes to JSON.
type Snapshot struct {
	// Files maps slash-separated paths relative to the workspace root to
	// file contents.
	Files map[string]string `json:"files"`

	// SessionFile is the transcript observed at capture time, or the
	// NoSessionFile sentinel.
	SessionFile string `json:"session_file"`

	// SessionID identifies the session, or holds the
	// PreConversationSessionID sentinel on a first turn.
	SessionID string `json:"session_id"`

	Timestamp time.Time `json:"timestamp"`

	// Session is the parsed transcript when it was resolvable.
	Session *transcript.Session `json:"session,omitempty"`
}

// Config adjusts what a Workspace tracks and where it looks for transcripts.
// Zero fields fall back to defaults.
type Config struct {
	// Patterns are base-name match patterns; DefaultPatterns when empty.
	Patterns []string

	// ClaudeHome overrides the transcript root, default ~/.claude.
	ClaudeHome string

	// Parser parses resolved session files.
	Parser transcript.Parser
}

// Workspace observes one directory tree. It never mutates the tree; all
// methods are read-only captures.
type Workspace struct {
	root       string
	claudeHome string
	patterns   []string
	parser     transcript.Parser
}

// New opens a workspace at root with default options.
func New(root string) (*Workspace, error) {
	return NewWithConfig(root, Config{})
}

// NewWithConfig opens a workspace at root. The root must exist and be a
// directory; it is normalized to an absolute path so project-path encoding
// is stable regardless of the caller's working directory.
func NewWithConfig(root string, cfg Config) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s: not a directory", root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	home := cfg.ClaudeHome
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve claude home: %w", err)
		}
		home = filepath.Join(userHome, ".claude")
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	return &Workspace{
		root:       abs,
		claudeHome: home,
		patterns:   patterns,
		parser:     cfg.Parser,
	}, nil
}

// Root returns the absolute workspace path.
func (w *Workspace) Root() string { return w.root }

// Name returns the workspace's project name.
func (w *Workspace) Name() string { return ProjectName(w.root) }

// SnapshotFiles captures the tracked files without touching session state.
// Unreadable files and subtrees are skipped rather than failing the capture.
func (w *Workspace) SnapshotFiles() (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !w.tracked(d.Name()) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", w.root, err)
	}
	return files, nil
}

func (w *Workspace) tracked(name string) bool {
	for _, pattern := range w.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// projectDir is where Claude Code keeps this workspace's transcripts.
func (w *Workspace) projectDir() string {
	return filepath.Join(w.claudeHome, "projects", EncodeProjectPath(w.root))
}

// ActiveSessionFile resolves the transcript Claude Code is currently writing
// for this workspace: the most recently modified *.jsonl in the workspace's
// project directory.
func (w *Workspace) ActiveSessionFile() (string, error) {
	projectDir := w.projectDir()
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoProjectDir, projectDir)
		}
		return "", fmt.Errorf("read %s: %w", projectDir, err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(projectDir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSessionFile, projectDir)
	}
	return newest, nil
}

// Snapshot captures the tracked files plus whichever session is active. The
// session id comes from the parsed transcript; an unparseable transcript
// leaves Session nil without failing the capture.
func (w *Workspace) Snapshot() (Snapshot, error) {
	files, err := w.SnapshotFiles()
	if err != nil {
		return Snapshot{}, err
	}
	sessionFile, err := w.ActiveSessionFile()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Files:       files,
		SessionFile: sessionFile,
		Timestamp:   time.Now().UTC(),
	}
	if s, err := w.parser.ParseFile(sessionFile); err == nil {
		snap.Session = s
		snap.SessionID = s.SessionID
	}
	return snap, nil
}

// SnapshotWithSession captures the tracked files pinned to a known session
// id, parsing the transcript named after it. Claude Code names transcripts
// <session id>.jsonl; when that file is absent the newest transcript is
// checked instead, and accepted only if its session id matches.
func (w *Workspace) SnapshotWithSession(id string) (Snapshot, error) {
	files, err := w.SnapshotFiles()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Files:     files,
		SessionID: id,
		Timestamp: time.Now().UTC(),
	}

	path := filepath.Join(w.projectDir(), id+".jsonl")
	if s, err := w.parser.ParseFile(path); err == nil {
		snap.SessionFile = path
		snap.Session = s
		return snap, nil
	}

	if active, err := w.ActiveSessionFile(); err == nil {
		snap.SessionFile = active
		if s, err := w.parser.ParseFile(active); err == nil && s.SessionID == id {
			snap.Session = s
		}
		return snap, nil
	}

	snap.SessionFile = NoSessionFile
	return snap, nil
}
