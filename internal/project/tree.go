// Package project models the generated file tree and materializes it
// into the packaged project archive.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// NodeType distinguishes files from directories in the tree.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

// Node is one entry of the generated file tree. Paths are relative,
// rooted at "./". Directory nodes carry no content.
type Node struct {
	Type    NodeType `json:"type"`
	Path    string   `json:"path"`
	Content Content  `json:"content"`
}

// Tree is the wire format the generator stage emits.
type Tree struct {
	Structure []Node `json:"structure"`
}

// ContentKind tags the content variant of a file node.
type ContentKind int

const (
	ContentAbsent ContentKind = iota
	ContentText
	ContentStructured
)

// Content is a tagged variant over the three shapes generator output
// uses for node content: plain text, a structured JSON value (kept raw
// to preserve key order), or nothing at all.
type Content struct {
	kind ContentKind
	text string
	raw  json.RawMessage
}

// TextContent builds a text content value.
func TextContent(s string) Content {
	return Content{kind: ContentText, text: s}
}

// StructuredContent builds a structured content value from raw JSON.
func StructuredContent(raw json.RawMessage) Content {
	return Content{kind: ContentStructured, raw: raw}
}

// Kind returns the variant tag.
func (c Content) Kind() ContentKind {
	return c.kind
}

// Absent reports whether the node carries no content.
func (c Content) Absent() bool {
	return c.kind == ContentAbsent
}

// FileBytes renders the content for writing to disk. Structured values
// are pretty-printed with two-space indentation.
func (c Content) FileBytes() ([]byte, error) {
	switch c.kind {
	case ContentText:
		return []byte(c.text), nil
	case ContentStructured:
		var buf bytes.Buffer
		if err := json.Indent(&buf, c.raw, "", "  "); err != nil {
			return nil, fmt.Errorf("failed to render structured content: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("node has no content")
	}
}

// UnmarshalJSON maps null to absent, strings to text, and any other JSON
// value to the structured variant.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{kind: ContentText, text: s}
		return nil
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	*c = Content{kind: ContentStructured, raw: raw}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case ContentText:
		return json.Marshal(c.text)
	case ContentStructured:
		return c.raw, nil
	default:
		return []byte("null"), nil
	}
}

// CleanPath normalizes a node path and rejects anything that would
// escape the project root.
func CleanPath(p string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(p, "./"))
	if cleaned == "." {
		return "", fmt.Errorf("empty node path: %q", p)
	}
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("node path escapes project root: %q", p)
	}
	return cleaned, nil
}

// Validate checks tree-level invariants: directory nodes carry no
// content, paths stay under the root, and no path appears twice.
func (t *Tree) Validate() error {
	seen := make(map[string]struct{}, len(t.Structure))
	for _, node := range t.Structure {
		cleaned, err := CleanPath(node.Path)
		if err != nil {
			return err
		}
		if node.Type == NodeDirectory && !node.Content.Absent() {
			return fmt.Errorf("directory node %q carries content", node.Path)
		}
		if _, dup := seen[cleaned]; dup {
			return fmt.Errorf("duplicate node path: %q", node.Path)
		}
		seen[cleaned] = struct{}{}
	}
	return nil
}
