package scout

import "github.com/jinford/repo-scout/internal/core/selector"

// RankParams は順位付けのパラメータ
type RankParams struct {
	Root string

	// Predicate が nil の場合は .py ファイルを対象にする
	Predicate selector.Predicate

	// Description が空で Repository が指定されている場合、説明文を取得して使う
	Description string
	Repository  string

	// MaxOutputTokens が0以下の場合は ServiceConfig.RankMaxTokens を使う
	MaxOutputTokens int
}

// RankResult は順位付けの結果
type RankResult struct {
	RequestID   string   `json:"requestId"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
	Ranking     []string `json:"ranking"`
	Ranked      bool     `json:"ranked"`
	Reason      string   `json:"reason,omitempty"`
}

// GenerationResult はテキスト生成の結果
type GenerationResult struct {
	RequestID    string `json:"requestId"`
	Prompt       string `json:"-"`
	PromptTokens int    `json:"promptTokens,omitempty"`
	Text         string `json:"text"`
	Model        string `json:"model,omitempty"`
	TokensUsed   int    `json:"tokensUsed,omitempty"`
	Available    bool   `json:"available"`
}
