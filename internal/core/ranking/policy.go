package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
)

const (
	// DefaultTemperature は順位付けに使う生成温度
	// 多少の揺らぎは許容しつつ、創作的な出力は抑える
	DefaultTemperature = 0.3

	// DefaultMaxOutputTokens は maxOutputTokens 未指定時の上限
	DefaultMaxOutputTokens = 512

	// DefaultTimeout は生成呼び出し1回あたりのタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrRankingUnavailable は生成サービスが利用できず順位付けできない場合のエラー
var ErrRankingUnavailable = errors.New("ranking unavailable")

// Ranking は重要度の高い順に並んだファイル名
// 入力の並べ替えである保証はなく、欠落・重複・未知の名前を含みうる
type Ranking []string

// Validation はモデル出力を入力ファイル一覧と突き合わせる方法
type Validation int

const (
	// PassThrough はモデル出力をそのまま採用する
	PassThrough Validation = iota

	// KeepKnown は入力に存在しない名前と重複を取り除く
	KeepKnown

	// AppendMissing は KeepKnown に加え、順位付けされなかった入力を入力順で末尾に追加する
	AppendMissing
)

// Policy は説明文とファイル一覧から重要度順を推定する
type Policy struct {
	generator   collaborator.Generator
	temperature float64
	timeout     time.Duration
	validation  Validation
	logger      *slog.Logger
}

// Option は Policy の設定を変更する
type Option func(*Policy)

// WithTemperature は生成温度を設定する
func WithTemperature(t float64) Option {
	return func(p *Policy) {
		p.temperature = t
	}
}

// WithTimeout は生成呼び出しのタイムアウトを設定する
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) {
		p.timeout = d
	}
}

// WithValidation はモデル出力の検証方法を設定する
func WithValidation(v Validation) Option {
	return func(p *Policy) {
		p.validation = v
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// NewPolicy は新しい Policy を作成する
func NewPolicy(generator collaborator.Generator, opts ...Option) *Policy {
	p := &Policy{
		generator:   generator,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		validation:  PassThrough,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Rank はファイル一覧を重要度の高い順に並べた結果を返す
// 生成サービスが失敗した場合は ErrRankingUnavailable を返す。呼び出し側は Degrade で未順位の一覧に戻せる
func (p *Policy) Rank(ctx context.Context, description string, files []string, maxOutputTokens int) (Ranking, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", ErrRankingUnavailable)
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(description, files)
	p.logger.Debug("requesting importance ranking",
		"files", len(files),
		"promptBytes", len(prompt),
		"maxOutputTokens", maxOutputTokens,
	)

	resp, err := p.generator.Generate(ctx, collaborator.Request{
		Prompt:      prompt,
		Temperature: p.temperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRankingUnavailable, err)
	}

	ranked := ParseRanking(resp.Content)
	switch p.validation {
	case KeepKnown:
		ranked = keepKnown(ranked, files)
	case AppendMissing:
		ranked = appendMissing(keepKnown(ranked, files), files)
	}

	p.logger.Info("importance ranking completed",
		"files", len(files),
		"ranked", len(ranked),
		"model", resp.Model,
	)

	return ranked, nil
}

// Degrade は順位付けに失敗した場合に未順位のファイル一覧を返す
// 成功時は ranked をそのまま返す。2つ目の戻り値は順位付けが有効だったかどうか
func Degrade(ranked Ranking, files []string, err error) (Ranking, bool) {
	if err != nil {
		out := make(Ranking, len(files))
		copy(out, files)
		return out, false
	}
	return ranked, true
}

func keepKnown(ranked Ranking, files []string) Ranking {
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ranked))
	out := make(Ranking, 0, len(ranked))
	for _, name := range ranked {
		if _, ok := known[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func appendMissing(ranked Ranking, files []string) Ranking {
	seen := make(map[string]struct{}, len(ranked))
	for _, name := range ranked {
		seen[name] = struct{}{}
	}
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		ranked = append(ranked, f)
	}
	return ranked
}
