package collaborator

import "context"

// Generator はテキスト生成サービスとのやり取りを抽象化する共通インターフェース
// ホスト型API・ローカル推論パイプラインのいずれもこのインターフェースで扱う
type Generator interface {
	// Generate はプロンプトに基づいてテキストを生成する
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request はテキスト生成へのリクエストパラメータ
type Request struct {
	// Prompt は送信するプロンプト
	Prompt string

	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数 (0以下は実装側のデフォルト)
	MaxTokens int
}

// Response はテキスト生成のレスポンス
type Response struct {
	// Content は生成されたテキスト
	Content string

	// TokensUsed は使用されたトークン数 (不明な場合は0)
	TokensUsed int

	// Model は実際に使用されたモデル名
	Model string
}

// GeneratorFunc は関数を Generator として扱うためのアダプタ
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

// Generate は f(ctx, req) を呼び出す
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
