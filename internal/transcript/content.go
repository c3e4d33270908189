// Package transcript parses Claude Code's JSONL session transcripts into a
// typed model of messages, content blocks, and tool executions.
package transcript

import (
	"encoding/json"
	"strings"
)

// Content block type discriminators.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one unit of message content. Type selects which fields are
// meaningful. Blocks with an unrecognized type keep their original bytes in
// Raw so new block kinds never break parsing.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Signature string          `json:"signature,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Known reports whether the block type is one this package models.
func (b *ContentBlock) Known() bool {
	switch b.Type {
	case BlockText, BlockThinking, BlockToolUse, BlockToolResult:
		return true
	}
	return false
}

// UnmarshalJSON decodes a block, preserving the raw bytes of any block whose
// type is not recognized.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type plain ContentBlock
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = ContentBlock(p)
	if !b.Known() {
		b.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// MarshalJSON writes unrecognized blocks back out verbatim so round-tripping
// a session (for example inside a recorded transition) loses nothing.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	type plain ContentBlock
	return json.Marshal(plain(b))
}

// ResultText extracts the textual content of a tool_result block. The
// content field is either a bare string or an array of nested blocks.
func (b *ContentBlock) ResultText() string {
	if b.Type != BlockToolResult {
		return ""
	}
	return flattenContent(b.Content)
}

// decodeBlocks decodes a message's content field, which is either a bare
// string (shorthand for a single text block) or an array of blocks.
func decodeBlocks(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []ContentBlock{{Type: BlockText, Text: s}}, nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// flattenContent returns the concatenated text of a string-or-block-array
// JSON value. Non-text nested blocks contribute nothing.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == BlockText && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
