// Package extract parses generator output into a project file tree. The
// model output format is not guaranteed: the JSON may arrive inside a
// tagged fence, a bare fence, or surrounded by prose, so extraction walks
// an ordered list of candidates instead of guessing field values.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"ideaforge/internal/project"
)

// Error reports that no candidate in the raw text parsed as a file tree.
// Raw is kept for diagnostics; extraction never silently returns an
// empty structure.
type Error struct {
	Raw string
}

func (e *Error) Error() string {
	return fmt.Sprintf("no parseable project structure found in model output (%d bytes)", len(e.Raw))
}

// FileTree parses raw generator output into the file-tree wire format
// {"structure": [...]}. Candidates are tried in order: a ```json fence,
// any bare fence, then the largest {...} span; the first strict parse
// wins.
func FileTree(raw string) (*project.Tree, error) {
	for _, candidate := range candidates(raw) {
		var tree project.Tree
		dec := json.NewDecoder(strings.NewReader(candidate))
		if err := dec.Decode(&tree); err != nil {
			continue
		}
		if len(tree.Structure) == 0 {
			continue
		}
		return &tree, nil
	}
	return nil, &Error{Raw: raw}
}

func candidates(raw string) []string {
	var out []string
	if c := fencedBlock(raw, "```json"); c != "" {
		out = append(out, c)
	}
	if c := fencedBlock(raw, "```"); c != "" {
		out = append(out, c)
	}
	if c := braceSpan(raw); c != "" {
		out = append(out, c)
	}
	return out
}

// fencedBlock returns the body of the first fence opened by marker.
// Content on the opening line is kept; only a bare fence's language tag
// is skipped, so single-line output like "```json {...} ```" survives.
func fencedBlock(raw, marker string) string {
	start := strings.Index(raw, marker)
	if start < 0 {
		return ""
	}
	body := raw[start+len(marker):]
	if nl := strings.Index(body, "\n"); nl >= 0 && isLanguageTag(body[:nl]) {
		body = body[nl+1:]
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// isLanguageTag reports whether the opening-line remainder is a fence
// language tag rather than content.
func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) > 16 {
		return false
	}
	for _, r := range line {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// braceSpan returns the largest {...} span in the text.
func braceSpan(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
