package catalog

import "path"

// Catalog はディレクトリツリーを名前だけで表した階層カタログ
// ルートは走査時に与えたパス文字列そのものをキーとして持つ
type Catalog struct {
	// Root は走査ルート (キーとしてそのまま使う)
	Root string

	// Entries はルート直下のエントリ名 (ファイルとサブディレクトリ)
	Entries []string

	// Dirs はルート直下のサブディレクトリ (走査順)
	Dirs []*Node
}

// Node はルート以外のディレクトリ1つを表す
type Node struct {
	// Name はディレクトリのベース名 (区切り文字を含まない)
	Name string

	// Entries は直下のエントリ名 (ファイルとサブディレクトリ、列挙順)
	Entries []string

	// Dirs は直下のサブディレクトリ (走査順)
	Dirs []*Node
}

// Stats はカタログの集計値
type Stats struct {
	Directories int // ルートを除くディレクトリ数
	Entries     int // 全ディレクトリのエントリ数の合計
	Depth       int // ルートのみなら1、サブディレクトリ1階層ごとに+1
}

// Walk はルート以外の全ノードを前順で訪問する
// relPath はルートからのスラッシュ区切り相対パス、depth はルート直下が1
func (c *Catalog) Walk(fn func(relPath string, depth int, n *Node)) {
	var visit func(parent string, depth int, nodes []*Node)
	visit = func(parent string, depth int, nodes []*Node) {
		for _, n := range nodes {
			rel := path.Join(parent, n.Name)
			fn(rel, depth, n)
			visit(rel, depth+1, n.Dirs)
		}
	}
	visit("", 1, c.Dirs)
}

// Stats はカタログの集計値を返す
func (c *Catalog) Stats() Stats {
	s := Stats{Entries: len(c.Entries), Depth: 1}
	c.Walk(func(_ string, depth int, n *Node) {
		s.Directories++
		s.Entries += len(n.Entries)
		if depth+1 > s.Depth {
			s.Depth = depth + 1
		}
	})
	return s
}

// Find はルートからの相対パスに対応するノードを返す
func (c *Catalog) Find(relPath string) (*Node, bool) {
	var found *Node
	c.Walk(func(rel string, _ int, n *Node) {
		if found == nil && rel == relPath {
			found = n
		}
	})
	return found, found != nil
}
