package selector

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jinford/repo-scout/internal/core/ignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestSelectFiles_Scenario(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.txt", "sub/c.py")

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "sub/c.py"}, got)
}

func TestSelectFiles_DefaultPredicate(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "main.py", "main.go")

	got, err := SelectFiles(root, nil, WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, got)
}

func TestSelectFiles_PreOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/x.py", "a/b/y.py", "c.py", "d/z.py")

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	// os.ReadDir はファイル名順で返す
	assert.Equal(t, []string{"a/b/y.py", "a/x.py", "c.py", "d/z.py"}, got)
}

func TestSelectFiles_NoMatches(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "README.md", "src/main.go")

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectFiles_SuffixIsLiteral(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.pyc", "c.PY", "dpy", "e.py.bak")

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, got)
}

func TestSelectFiles_DirectoriesAreNotMatched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg.py"), 0o755))
	writeFiles(t, root, "pkg.py/mod.py")

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg.py/mod.py"}, got)
}

func TestSelectFiles_InvalidRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "file.py")

	tests := []struct {
		name string
		root string
	}{
		{name: "存在しないディレクトリ", root: filepath.Join(root, "missing")},
		{name: "ファイル", root: filepath.Join(root, "file.py")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectFiles(tt.root, nil, WithLogger(discardLogger()))
			assert.ErrorIs(t, err, ErrInvalidRoot)
			assert.Nil(t, got)
		})
	}
}

func TestSelectFiles_SkipsUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFiles(t, root, "a.py", "locked/b.py", "z.py")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "z.py"}, got)
}

func TestSelectFiles_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeFiles(t, root, "pkg/a.py")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "pkg", "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "pkg", "a.py"), filepath.Join(root, "alias.py")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "broken.py")))

	got, err := SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.py"}, got)

	got, err = SelectFiles(root, HasSuffix(".py"), WithLogger(discardLogger()), WithFollowSymlinks(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"alias.py", "pkg/a.py"}, got)
}

func TestSelectFiles_WithIgnore(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "app.py", ".venv/lib/site.py", "tests/test_app.py")

	got, err := SelectFiles(root, HasSuffix(".py"),
		WithLogger(discardLogger()),
		WithIgnore(ignore.FromLines(".venv", "tests/")),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, got)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		path string
		want bool
	}{
		{name: "接尾辞が一致する", pred: HasSuffix(".go", ".py"), path: "cmd/main.go", want: true},
		{name: "接尾辞が一致しない", pred: HasSuffix(".go"), path: "main.rs", want: false},
		{name: "空の接尾辞は無視する", pred: HasSuffix(""), path: "main.rs", want: false},
		{name: "言語判定: Go", pred: HasLanguage("go"), path: "internal/app.go", want: true},
		{name: "言語判定: Python", pred: HasLanguage("Python"), path: "app.py", want: true},
		{name: "言語判定: ファイル名", pred: HasLanguage("Dockerfile"), path: "build/Dockerfile", want: true},
		{name: "言語判定: 不一致", pred: HasLanguage("Go"), path: "app.py", want: false},
		{name: "言語判定: 不明な拡張子", pred: HasLanguage("Go"), path: "data.unknownext", want: false},
		{name: "Any はいずれかを満たす", pred: Any(HasSuffix(".md"), HasLanguage("Go")), path: "README.md", want: true},
		{name: "Any は nil を無視する", pred: Any(nil, HasSuffix(".md")), path: "x.go", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.path))
		})
	}
}
