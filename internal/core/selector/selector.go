package selector

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/jinford/repo-scout/internal/core/ignore"
)

// DefaultSuffix は述語を省略したときに選択する拡張子
const DefaultSuffix = ".py"

// ErrInvalidRoot はルートパスがディレクトリではない場合のエラー
var ErrInvalidRoot = errors.New("invalid root directory")

type walker struct {
	logger         *slog.Logger
	followSymlinks bool
	filter         *ignore.Filter

	pred    Predicate
	visited map[string]struct{}
	matches []string
}

// Option は SelectFiles の動作を変更する
type Option func(*walker)

// WithLogger はスキップしたエントリを記録するロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(w *walker) {
		w.logger = logger
	}
}

// WithFollowSymlinks はシンボリックリンクを辿るかを設定する
func WithFollowSymlinks(follow bool) Option {
	return func(w *walker) {
		w.followSymlinks = follow
	}
}

// WithIgnore は除外フィルタを設定する
func WithIgnore(filter *ignore.Filter) Option {
	return func(w *walker) {
		w.filter = filter
	}
}

// SelectFiles は root 配下の通常ファイルのうち pred を満たすものを前順で返す
// 戻り値は root からのスラッシュ区切り相対パスで、重複しない
// pred が nil の場合は DefaultSuffix で選択する
// 読み取れないエントリはログに記録してスキップし、部分的な結果を返す
func SelectFiles(root string, pred Predicate, opts ...Option) ([]string, error) {
	if pred == nil {
		pred = HasSuffix(DefaultSuffix)
	}
	w := &walker{
		logger:  slog.Default(),
		pred:    pred,
		visited: make(map[string]struct{}),
		matches: []string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	if real, err := filepath.EvalSymlinks(root); err == nil {
		w.visited[real] = struct{}{}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	w.walk(root, "", entries)

	return w.matches, nil
}

func (w *walker) walk(dir, rel string, entries []os.DirEntry) {
	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name())
		if w.filter.Match(childRel) {
			continue
		}
		full := filepath.Join(dir, entry.Name())

		info, err := w.stat(full, entry)
		if err != nil {
			w.logger.Warn("failed to stat entry, skipping", "path", childRel, "error", err)
			continue
		}

		switch {
		case info.IsDir():
			w.descend(full, childRel)
		case info.Mode().IsRegular():
			if w.pred(childRel) {
				w.matches = append(w.matches, childRel)
			}
		}
	}
}

func (w *walker) descend(full, rel string) {
	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		w.logger.Warn("failed to resolve directory, skipping", "path", rel, "error", err)
		return
	}
	if _, seen := w.visited[real]; seen {
		w.logger.Debug("directory already visited, skipping", "path", rel)
		return
	}
	w.visited[real] = struct{}{}

	entries, err := os.ReadDir(full)
	if err != nil {
		w.logger.Warn("failed to read directory", "path", rel, "error", err)
	}
	w.walk(full, rel, entries)
}

// stat はエントリの情報を返す。シンボリックリンクは辿る設定の時だけ解決する
func (w *walker) stat(full string, entry os.DirEntry) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 && w.followSymlinks {
		return os.Stat(full)
	}
	return entry.Info()
}
