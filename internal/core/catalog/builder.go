package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jinford/repo-scout/internal/core/ignore"
)

// DefaultMaxDepth は走査する最大のディレクトリ階層
const DefaultMaxDepth = 64

var (
	// ErrNotFound はルートパスが存在しない場合のエラー
	ErrNotFound = errors.New("root path not found")

	// ErrPermission はルートパスを読み取れない場合のエラー
	ErrPermission = errors.New("root path not readable")

	// ErrNotDirectory はルートパスがディレクトリではない場合のエラー
	ErrNotDirectory = errors.New("root path is not a directory")
)

type builder struct {
	logger         *slog.Logger
	maxDepth       int
	followSymlinks bool
	filter         *ignore.Filter

	visited map[string]struct{}
}

// Option は Build の動作を変更する
type Option func(*builder)

// WithLogger は走査中の警告を出力するロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithMaxDepth は走査する最大階層を設定する (0以下はデフォルト)
func WithMaxDepth(depth int) Option {
	return func(b *builder) {
		b.maxDepth = depth
	}
}

// WithFollowSymlinks はディレクトリへのシンボリックリンクを辿るかを設定する
func WithFollowSymlinks(follow bool) Option {
	return func(b *builder) {
		b.followSymlinks = follow
	}
}

// WithIgnore は除外フィルタを設定する。一致したエントリはカタログに含めない
func WithIgnore(filter *ignore.Filter) Option {
	return func(b *builder) {
		b.filter = filter
	}
}

// Build は root 配下を前順で走査してカタログを構築する
// ファイル内容は読まず、名前だけを記録する
func Build(root string, opts ...Option) (*Catalog, error) {
	b := &builder{
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		visited:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxDepth
	}

	if err := checkRoot(root); err != nil {
		return nil, err
	}

	if real, err := filepath.EvalSymlinks(root); err == nil {
		b.visited[real] = struct{}{}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, classify(root, err)
	}

	c := &Catalog{Root: root}
	c.Entries, c.Dirs = b.scan(root, "", entries, 1)

	return c, nil
}

// checkRoot はルートパスを検証し、分類済みのエラーを返す
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return classify(root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return nil
}

func classify(root string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, root)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, root)
	default:
		return fmt.Errorf("failed to read root %s: %w", root, err)
	}
}

// scan は1ディレクトリ分のエントリを記録し、サブディレクトリへ再帰する
func (b *builder) scan(dir, rel string, entries []os.DirEntry, depth int) ([]string, []*Node) {
	names := make([]string, 0, len(entries))
	var nodes []*Node

	for _, entry := range entries {
		name := strings.ToValidUTF8(entry.Name(), "�")
		childRel := path.Join(rel, name)
		if b.filter.Match(childRel) {
			continue
		}
		names = append(names, name)

		full := filepath.Join(dir, entry.Name())
		if !b.isDir(full, entry) {
			continue
		}

		if node, ok := b.descend(full, childRel, name, depth); ok {
			nodes = append(nodes, node)
		}
	}

	return names, nodes
}

func (b *builder) descend(full, rel, name string, depth int) (*Node, bool) {
	if depth > b.maxDepth {
		b.logger.Warn("max depth reached, not descending", "path", rel, "maxDepth", b.maxDepth)
		return nil, false
	}

	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		b.logger.Warn("failed to resolve directory, skipping", "path", rel, "error", err)
		return nil, false
	}
	if _, seen := b.visited[real]; seen {
		b.logger.Debug("directory already visited, skipping", "path", rel, "realPath", real)
		return nil, false
	}
	b.visited[real] = struct{}{}

	node := &Node{Name: name, Entries: []string{}}

	entries, err := os.ReadDir(full)
	if err != nil {
		// 読めないディレクトリは空として記録し、走査は続ける
		b.logger.Warn("failed to read directory", "path", rel, "error", err)
		if len(entries) == 0 {
			return node, true
		}
	}

	node.Entries, node.Dirs = b.scan(full, rel, entries, depth+1)
	return node, true
}

// isDir はエントリを再帰対象のディレクトリとして扱うかを判定する
func (b *builder) isDir(full string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 || !b.followSymlinks {
		return false
	}
	info, err := os.Stat(full)
	if err != nil {
		b.logger.Warn("failed to stat symlink", "path", full, "error", err)
		return false
	}
	return info.IsDir()
}
