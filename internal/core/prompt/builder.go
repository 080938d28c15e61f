package prompt

import (
	"strings"

	"github.com/jinford/repo-scout/internal/core/catalog"
)

const (
	listingInstruction = "This is a filesystem for a github repository. Can you list the main source files?"
	listingHeader      = "### Filesystem:"

	explainInstruction = "Explain in plain language what the following code does. " +
		"Describe its purpose, its main steps and anything surprising. Do not rewrite the code."
	explainHeader = "### Code:"

	closingMarker = "### Your answer:"
)

// BuildListingPrompt はカタログを埋め込んだ主要ファイル抽出用のプロンプトを返す
// 切り詰めは行わない。長さの制限は呼び出し側で Budget を使って確認する
func BuildListingPrompt(c *catalog.Catalog) string {
	var sb strings.Builder
	sb.WriteString(listingInstruction)
	sb.WriteString("\n")
	sb.WriteString(listingHeader)
	sb.WriteString("\n")
	sb.WriteString(c.Render())
	sb.WriteString("\n")
	sb.WriteString(closingMarker)
	return sb.String()
}

// BuildExplainPrompt はファイル内容を埋め込んだコード説明用のプロンプトを返す
func BuildExplainPrompt(source string) string {
	fence := fenceFor(source)

	var sb strings.Builder
	sb.WriteString(explainInstruction)
	sb.WriteString("\n")
	sb.WriteString(explainHeader)
	sb.WriteString("\n")
	sb.WriteString(fence)
	sb.WriteString("\n")
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence)
	sb.WriteString("\n")
	sb.WriteString(closingMarker)
	return sb.String()
}

// fenceFor はソース中のどのバッククォート列よりも長いコードフェンスを返す
func fenceFor(source string) string {
	longest, run := 0, 0
	for _, r := range source {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
