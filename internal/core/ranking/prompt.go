package ranking

import (
	"strings"
	"unicode"
)

const (
	preamble = "You are given the description of a source-code repository and the list of its files.\n" +
		"Rank the files by how important they are for understanding what the repository does.\n"

	noDescription = "(no description available)"

	closing = "Answer with a bullet list of full file names exactly as written above, " +
		"most important first, one file per line. Do not add any other text."
)

// BuildPrompt は順位付け用のプロンプトを組み立てる
func BuildPrompt(description string, files []string) string {
	var sb strings.Builder

	sb.WriteString(preamble)
	sb.WriteString("\n### Repository description:\n")
	if d := strings.TrimSpace(description); d != "" {
		sb.WriteString(d)
	} else {
		sb.WriteString(noDescription)
	}
	sb.WriteString("\n\n### Files:\n")
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n")
	sb.WriteString(closing)
	sb.WriteString("\n### Ranking:\n")

	return sb.String()
}

// ParseRanking はモデルの自由記述出力を行単位の順位に変換する
// 各行から先頭の箇条書き記号を1つだけ取り除き、空行は捨てる。名前の検証はしない
func ParseRanking(output string) Ranking {
	ranked := Ranking{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(stripMarker(line))
		if line == "" {
			continue
		}
		ranked = append(ranked, line)
	}
	return ranked
}

// stripMarker は "- ", "* ", "• ", "1. ", "1) " のような箇条書き記号を取り除く
func stripMarker(line string) string {
	for _, m := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, m) {
			return line[len(m):]
		}
	}
	if line == "-" || line == "*" || line == "•" {
		return ""
	}

	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		rest := line[i+1:]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return rest
		}
	}
	return line
}
