package prompt

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding はトークン数の計測に使うエンコーディング
const DefaultEncoding = "cl100k_base"

// ErrPromptTooLarge はプロンプトが入力上限を超えた場合のエラー
var ErrPromptTooLarge = errors.New("prompt exceeds token limit")

// Budget は生成サービスの入力上限に対するトークン数の検査を提供する
type Budget struct {
	encoding *tiktoken.Tiktoken
	limit    int
}

// NewBudget は新しい Budget を作成する
// limit が0以下の場合は上限なしとして扱う
func NewBudget(limit int) (*Budget, error) {
	encoding, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &Budget{
		encoding: encoding,
		limit:    limit,
	}, nil
}

// Limit は入力上限のトークン数を返す
func (b *Budget) Limit() int {
	return b.limit
}

// Count はテキストのトークン数を返す
func (b *Budget) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.encoding.Encode(text, nil, nil))
}

// Fit はプロンプトが上限内に収まるかを検査し、トークン数を返す
func (b *Budget) Fit(prompt string) (int, error) {
	n := b.Count(prompt)
	if b.limit > 0 && n > b.limit {
		return n, fmt.Errorf("%w: %d tokens, limit %d", ErrPromptTooLarge, n, b.limit)
	}
	return n, nil
}
