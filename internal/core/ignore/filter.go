package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName はプロジェクト固有の除外パターンファイル名
const FileName = ".scoutignore"

// Filter は .gitignore と .scoutignore のパターンマッチングを提供します
type Filter struct {
	patterns *gitignore.GitIgnore
}

// Load は新しい Filter を作成します
// root 配下の .gitignore と .scoutignore を読み込み、デフォルトの除外パターンを追加します
func Load(root string) (*Filter, error) {
	var patterns []string

	for _, name := range []string{".gitignore", FileName} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		lines, err := readIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}

	patterns = append(patterns, DefaultPatterns()...)

	return FromLines(patterns...), nil
}

// FromLines は与えられたパターンだけで Filter を作成します
func FromLines(lines ...string) *Filter {
	if len(lines) == 0 {
		return &Filter{}
	}
	return &Filter{patterns: gitignore.CompileIgnoreLines(lines...)}
}

// Match はルートからの相対パス (スラッシュ区切り) が除外対象かどうかを判定します
// nil の Filter は何も除外しません
func (f *Filter) Match(relPath string) bool {
	if f == nil || f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(relPath)
}

// readIgnoreFile は ignore ファイルを読み込んでパターンのスライスを返します
func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.FieldsFunc(string(content), func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		// 空行とコメント行をスキップ
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	return patterns, nil
}

// DefaultPatterns はデフォルトの除外パターンを返します
func DefaultPatterns() []string {
	return []string{
		// VCS
		".git",
		".hg",
		".svn",

		// 依存関係・ビルド成果物
		"node_modules",
		"vendor",
		"dist",
		"build",
		"target",
		".venv",
		"venv",

		// IDE/エディタ関連
		".vscode",
		".idea",
		".DS_Store",

		// キャッシュ
		".cache",
		"__pycache__",
		"*.pyc",
		".pytest_cache",
		".mypy_cache",
	}
}
