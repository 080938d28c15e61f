package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// collisionSuffix は親と同名のサブディレクトリのキーに付ける接尾辞
// 実際のエントリ名は区切り文字を含まないため衝突しない
const collisionSuffix = "/"

// ErrMalformed はカタログのテキスト表現を解析できない場合のエラー
var ErrMalformed = errors.New("malformed catalog")

// Render はカタログを正規化されたインデント付き JSON に変換する
//
//	{"<root>": [...], "<dir>": {"<dir>": [...], "<subdir>": {...}}}
//
// 各ディレクトリはオブジェクトで、自身のベース名をキーにエントリ一覧を持ち、
// サブディレクトリごとに入れ子のオブジェクトを持つ
func (c *Catalog) Render() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, c.Root)
	writeList(&buf, c.Entries)
	for _, d := range c.Dirs {
		buf.WriteByte(',')
		writeKey(&buf, keyFor(c.Root, d.Name))
		writeNode(&buf, d)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		// 自前で組み立てた JSON なので到達しない
		return buf.String()
	}
	return out.String()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	buf.WriteByte('{')
	writeKey(buf, n.Name)
	writeList(buf, n.Entries)
	for _, d := range n.Dirs {
		buf.WriteByte(',')
		writeKey(buf, keyFor(n.Name, d.Name))
		writeNode(buf, d)
	}
	buf.WriteByte('}')
}

func keyFor(parent, child string) string {
	if parent == child {
		return child + collisionSuffix
	}
	return child
}

func writeKey(buf *bytes.Buffer, key string) {
	writeString(buf, key)
	buf.WriteByte(':')
}

func writeList(buf *bytes.Buffer, items []string) {
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, item)
	}
	buf.WriteByte(']')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Parse は Render の出力からカタログを復元する
// 最初のキーをルートとして扱う
func Parse(text string) (*Catalog, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	root, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	entries, err := readList(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", ErrMalformed, root, err)
	}

	c := &Catalog{Root: root, Entries: entries}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		node, err := readNode(dec, trimKey(key))
		if err != nil {
			return nil, err
		}
		c.Dirs = append(c.Dirs, node)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return c, nil
}

func readNode(dec *json.Decoder, name string) (*Node, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	n := &Node{Name: name, Entries: []string{}}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key == name {
			if n.Entries, err = readList(dec); err != nil {
				return nil, fmt.Errorf("%w: directory %q: %v", ErrMalformed, name, err)
			}
			continue
		}
		child, err := readNode(dec, trimKey(key))
		if err != nil {
			return nil, err
		}
		n.Dirs = append(n.Dirs, child)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return n, nil
}

func trimKey(key string) string {
	return strings.TrimSuffix(key, collisionSuffix)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected key, got %v", ErrMalformed, tok)
	}
	return key, nil
}

func readList(dec *json.Decoder) ([]string, error) {
	items := []string{}
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected end of input", ErrMalformed)
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformed, want, tok)
	}
	return nil
}

// Equivalent は2つのカタログが名前と入れ子構造において等しいかを判定する
// エントリの並び順は比較しない
func Equivalent(a, b *Catalog) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Root == b.Root && sameNames(a.Entries, b.Entries) && sameNodes(a.Dirs, b.Dirs)
}

// sameNodes は同名のノードが複数あっても取りこぼさないよう、正規形の多重集合として比較する
func sameNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	return slices.Equal(canonicalNodes(a), canonicalNodes(b))
}

// canonicalNodes は各ノードを並び順に依存しない文字列に変換し、整列して返す
func canonicalNodes(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, canonicalNode(n))
	}
	slices.Sort(out)
	return out
}

func canonicalNode(n *Node) string {
	entries := slices.Clone(n.Entries)
	slices.Sort(entries)
	b, _ := json.Marshal(struct {
		Name    string   `json:"n"`
		Entries []string `json:"e"`
		Dirs    []string `json:"d"`
	}{n.Name, entries, canonicalNodes(n.Dirs)})
	return string(b)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
