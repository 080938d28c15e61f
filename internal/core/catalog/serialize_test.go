package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Shape(t *testing.T) {
	c := &Catalog{
		Root:    "repos",
		Entries: []string{"a.py", "b.txt", "sub"},
		Dirs: []*Node{
			{Name: "sub", Entries: []string{"c.py", "deep"}, Dirs: []*Node{
				{Name: "deep", Entries: []string{}},
			}},
		},
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.Render()), &got))

	want := map[string]any{
		"repos": []any{"a.py", "b.txt", "sub"},
		"sub": map[string]any{
			"sub":  []any{"c.py", "deep"},
			"deep": map[string]any{"deep": []any{}},
		},
	}
	assert.Equal(t, want, got)
}

func TestRender_EmptyCatalog(t *testing.T) {
	c := &Catalog{Root: "/tmp/x"}
	assert.JSONEq(t, `{"/tmp/x": []}`, c.Render())
}

func TestRenderParse_RoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"go.mod",
		"pkg/pkg/inner.go",
		"pkg/util.go",
		"web/src/app.ts",
		"web/src/components/button.tsx",
		"web/empty/",
		`quote"name.txt`,
	)

	c, err := Build(root, WithLogger(discardLogger()))
	require.NoError(t, err)

	parsed, err := Parse(c.Render())
	require.NoError(t, err)

	assert.True(t, Equivalent(c, parsed))
	// 走査順もそのまま保たれる
	assert.Equal(t, c.Render(), parsed.Render())
}

func TestParse_NameCollisions(t *testing.T) {
	c := &Catalog{
		Root:    "repo",
		Entries: []string{"repo"},
		Dirs: []*Node{
			{Name: "repo", Entries: []string{"repo"}, Dirs: []*Node{
				{Name: "repo", Entries: []string{"x.go"}},
			}},
		},
	}

	parsed, err := Parse(c.Render())
	require.NoError(t, err)
	assert.True(t, Equivalent(c, parsed))

	n, ok := parsed.Find("repo/repo")
	require.True(t, ok)
	assert.Equal(t, []string{"x.go"}, n.Entries)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "空文字列", text: ""},
		{name: "配列", text: `["a"]`},
		{name: "ルートがリストではない", text: `{"root": {"x": []}}`},
		{name: "ディレクトリがオブジェクトではない", text: `{"root": [], "sub": "c.py"}`},
		{name: "途中で終わる", text: `{"root": ["a"], "sub": {"sub": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEquivalent(t *testing.T) {
	a := &Catalog{Root: "r", Entries: []string{"x", "y", "d"}, Dirs: []*Node{{Name: "d", Entries: []string{"1", "2"}}}}
	b := &Catalog{Root: "r", Entries: []string{"d", "y", "x"}, Dirs: []*Node{{Name: "d", Entries: []string{"2", "1"}}}}
	c := &Catalog{Root: "r", Entries: []string{"d", "y", "x"}, Dirs: []*Node{{Name: "d", Entries: []string{"2"}}}}

	assert.True(t, Equivalent(a, b))
	assert.False(t, Equivalent(a, c))
	assert.False(t, Equivalent(a, nil))
	assert.True(t, Equivalent(nil, nil))
}

func TestEquivalent_DuplicateNodeNames(t *testing.T) {
	// 不正なUTF-8名は置換文字に揃うため、同名のノードが並びうる
	a := &Catalog{Root: "r", Entries: []string{"a�", "a�"}, Dirs: []*Node{
		{Name: "a�", Entries: []string{"x.py"}},
		{Name: "a�", Entries: []string{"y.py"}},
	}}
	b := &Catalog{Root: "r", Entries: []string{"a�", "a�"}, Dirs: []*Node{
		{Name: "a�", Entries: []string{"y.py"}},
		{Name: "a�", Entries: []string{"x.py"}},
	}}
	c := &Catalog{Root: "r", Entries: []string{"a�", "a�"}, Dirs: []*Node{
		{Name: "a�", Entries: []string{"y.py"}},
		{Name: "a�", Entries: []string{"y.py"}},
	}}

	assert.True(t, Equivalent(a, b))
	assert.False(t, Equivalent(a, c))
	assert.False(t, Equivalent(c, a))
}
