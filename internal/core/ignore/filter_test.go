package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("# comment\n*.log\n\nsecret/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("docs/generated\n"), 0o644))

	f, err := Load(root)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: ".gitignore のパターンに一致する", path: "app.log", want: true},
		{name: "ディレクトリパターンに一致する", path: "secret/key.txt", want: true},
		{name: ".scoutignore のパターンに一致する", path: "docs/generated/index.html", want: true},
		{name: "デフォルトパターンに一致する", path: "web/node_modules/react/index.js", want: true},
		{name: "通常のソースは除外しない", path: "src/main.py", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(tt.path))
		})
	}
}

func TestLoad_NoIgnoreFiles(t *testing.T) {
	f, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.True(t, f.Match(".git"))
	assert.False(t, f.Match("main.go"))
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	assert.False(t, f.Match("anything"))
	assert.False(t, FromLines().Match("anything"))
}
