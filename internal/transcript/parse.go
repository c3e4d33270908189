package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultMaxLineBytes is the largest transcript line the parser accepts.
// Tool results routinely carry whole files, so lines run far past bufio's
// default limit.
const DefaultMaxLineBytes = 10 * 1024 * 1024

// Sentinel parse errors. Callers branch with errors.Is.
var (
	// ErrEmptyTranscript is returned for a transcript with no records at all.
	ErrEmptyTranscript = errors.New("transcript has no records")

	// ErrMissingField is wrapped with the field name when a user or
	// assistant record lacks a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrMixedSessionIDs is returned under the reject policy when a record's
	// sessionId differs from the first record's.
	ErrMixedSessionIDs = errors.New("mixed session ids")
)

// MixedSessionPolicy controls how the parser treats records whose sessionId
// differs from the first record's. Transcripts are observed in the wild with
// mixed ids (resumed or hand-edited files), so the default accepts them.
type MixedSessionPolicy string

const (
	// MixedAccept keeps the first session id and ignores later ones.
	MixedAccept MixedSessionPolicy = "accept"
	// MixedWarn keeps the first session id and records a session warning.
	MixedWarn MixedSessionPolicy = "warn"
	// MixedReject fails the parse on the first differing session id.
	MixedReject MixedSessionPolicy = "reject"
)

// Parser parses JSONL transcripts. The zero value uses the accept policy and
// the default line limit.
type Parser struct {
	MixedSessionPolicy MixedSessionPolicy
	MaxLineBytes       int
}

// Load parses the transcript at path with default options.
func Load(path string) (*Session, error) {
	var p Parser
	return p.ParseFile(path)
}

// ParseFile parses the transcript at path. A missing file surfaces as an
// error wrapping fs.ErrNotExist.
func (p *Parser) ParseFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	s, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse reads line-delimited JSON records from r and builds a Session.
// The session id comes from the first record that carries one; user and
// assistant records become Messages in file order; summary records are
// collected separately; records of any other type are counted and skipped.
func (p *Parser) Parse(r io.Reader) (*Session, error) {
	maxLine := p.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	sess := &Session{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry rawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}

		switch entry.Type {
		case "user", "assistant":
			msg, err := entry.toMessage()
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := p.checkSessionID(sess, &msg, lineNo); err != nil {
				return nil, err
			}
			sess.Messages = append(sess.Messages, msg)
		case "summary":
			sess.Summaries = append(sess.Summaries, SummaryRecord{
				Summary:  entry.Summary,
				LeafUUID: entry.LeafUUID,
			})
		default:
			sess.SkippedRecords++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	if len(sess.Messages) == 0 && len(sess.Summaries) == 0 && sess.SkippedRecords == 0 {
		return nil, ErrEmptyTranscript
	}
	return sess, nil
}

// checkSessionID applies the mixed-session policy. The first record's id
// wins; later records never change it.
func (p *Parser) checkSessionID(sess *Session, msg *Message, lineNo int) error {
	if msg.SessionID == sess.SessionID {
		return nil
	}
	if sess.SessionID == "" {
		sess.SessionID = msg.SessionID
		return nil
	}
	switch p.MixedSessionPolicy {
	case MixedReject:
		return fmt.Errorf("line %d: %w: %q after %q", lineNo, ErrMixedSessionIDs, msg.SessionID, sess.SessionID)
	case MixedWarn:
		sess.Warnings = append(sess.Warnings,
			fmt.Sprintf("line %d: session id %q differs from %q", lineNo, msg.SessionID, sess.SessionID))
	}
	return nil
}

// rawEntry mirrors the top-level shape of one transcript line.
type rawEntry struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	ParentUUID  string          `json:"parentUuid"`
	Timestamp   string          `json:"timestamp"`
	SessionID   string          `json:"sessionId"`
	CWD         string          `json:"cwd"`
	UserType    string          `json:"userType"`
	IsSidechain bool            `json:"isSidechain"`
	IsMeta      bool            `json:"isMeta"`
	CostUSD     float64         `json:"costUSD"`
	DurationMS  int64           `json:"durationMs"`
	Message     json.RawMessage `json:"message"`
	Summary     string          `json:"summary"`
	LeafUUID    string          `json:"leafUuid"`
}

// rawPayload mirrors the nested message object of a user or assistant record.
type rawPayload struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      *TokenUsage     `json:"usage"`
}

// toMessage validates a user or assistant record and converts it.
func (e *rawEntry) toMessage() (Message, error) {
	switch {
	case e.UUID == "":
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "uuid")
	case e.Timestamp == "":
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "timestamp")
	case e.SessionID == "":
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "sessionId")
	case len(e.Message) == 0:
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "message")
	}

	var payload rawPayload
	if err := json.Unmarshal(e.Message, &payload); err != nil {
		return Message{}, fmt.Errorf("invalid message JSON: %w", err)
	}
	if payload.Role == "" {
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "message.role")
	}
	if len(payload.Content) == 0 {
		return Message{}, fmt.Errorf("%w %q", ErrMissingField, "message.content")
	}

	blocks, err := decodeBlocks(payload.Content)
	if err != nil {
		return Message{}, fmt.Errorf("invalid content JSON: %w", err)
	}

	ts := ParseTimestamp(e.Timestamp)
	if ts.IsZero() {
		return Message{}, fmt.Errorf("invalid timestamp %q", e.Timestamp)
	}

	return Message{
		UUID:        e.UUID,
		ParentUUID:  e.ParentUUID,
		Timestamp:   ts,
		Role:        payload.Role,
		RecordType:  e.Type,
		SessionID:   e.SessionID,
		CWD:         e.CWD,
		UserType:    e.UserType,
		IsSidechain: e.IsSidechain,
		IsMeta:      e.IsMeta,
		Content:     blocks,
		Model:       payload.Model,
		StopReason:  payload.StopReason,
		Usage:       payload.Usage,
		CostUSD:     e.CostUSD,
		DurationMS:  e.DurationMS,
	}, nil
}

// ParseTimestamp parses an ISO 8601 timestamp string. It tries RFC3339Nano,
// RFC3339, and a plain datetime format without timezone. Returns the zero
// time if the string is empty or cannot be parsed by any supported format.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			t, err = time.Parse("2006-01-02T15:04:05", s)
			if err != nil {
				return time.Time{}
			}
		}
	}
	return t
}
