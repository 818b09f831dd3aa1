package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/project"
)

const validTree = `{"structure": [
  {"type": "directory", "path": "./src", "content": null},
  {"type": "file", "path": "./src/app.mjs", "content": "export const app = 1;"}
]}`

func TestFileTreeFramings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"bare json", validTree},
		{"tagged fence", "Here is your project:\n```json\n" + validTree + "\n```\nEnjoy!"},
		{"bare fence", "```\n" + validTree + "\n```"},
		{"surrounded by prose", "Sure! The structure below covers everything.\n" + validTree + "\nLet me know."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree, err := FileTree(tt.raw)
			require.NoError(t, err)
			require.Len(t, tree.Structure, 2)
			assert.Equal(t, project.NodeDirectory, tree.Structure[0].Type)
			assert.Equal(t, "./src/app.mjs", tree.Structure[1].Path)
		})
	}
}

func TestFileTreeSingleLineFence(t *testing.T) {
	t.Parallel()

	compact := `{"structure":[{"type":"file","path":"./a.js","content":"x"}]}`
	tests := []struct {
		name string
		raw  string
	}{
		{"tagged fence one line", "```json " + compact + " ```"},
		{"content on opening line", "```json " + compact + "\n```"},
		{"bare fence one line", "``` " + compact + " ```"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree, err := FileTree(tt.raw)
			require.NoError(t, err)
			require.Len(t, tree.Structure, 1)
			assert.Equal(t, "./a.js", tree.Structure[0].Path)
		})
	}
}

func TestFileTreePrefersTaggedFence(t *testing.T) {
	t.Parallel()

	// Prose before the fence contains braces that would confuse a naive
	// brace scan.
	raw := "The shape is {\"structure\": []} roughly.\n```json\n" + validTree + "\n```"
	tree, err := FileTree(raw)
	require.NoError(t, err)
	assert.Len(t, tree.Structure, 2)
}

func TestFileTreeStructuredContent(t *testing.T) {
	t.Parallel()

	raw := `{"structure": [
	  {"type": "file", "path": "./package.json", "content": {"name": "api", "version": "1.0.0"}}
	]}`
	tree, err := FileTree(raw)
	require.NoError(t, err)
	require.Len(t, tree.Structure, 1)
	assert.Equal(t, project.ContentStructured, tree.Structure[0].Content.Kind())
}

func TestFileTreeFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"no json at all", "I could not generate a project for that idea."},
		{"empty structure", `{"structure": []}`},
		{"wrong shape", `{"files": ["a.js"]}`},
		{"truncated output", `{"structure": [{"type": "file", "path": "./a.js", "con`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FileTree(tt.raw)
			require.Error(t, err)

			var extractErr *Error
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, tt.raw, extractErr.Raw)
		})
	}
}
