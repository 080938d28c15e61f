package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Client は OpenAI Chat Completions API を使用したテキスト生成クライアント
type Client struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	baseBackoff time.Duration
}

// Option は Client の設定を変更する
type Option func(*clientConfig)

type clientConfig struct {
	model       string
	timeout     time.Duration
	baseURL     string
	baseBackoff time.Duration
}

// WithModel はモデル名を設定する
func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout はAPIコールのタイムアウトを設定する
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithBaseURL はAPIのベースURLを設定する (互換APIやテスト用)
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithBackoff はリトライ間隔の基底時間を設定する
func WithBackoff(d time.Duration) Option {
	return func(c *clientConfig) {
		c.baseBackoff = d
	}
}

// NewClient はAPIキーを指定して Client を作成する
// APIキーはプロセス全体の環境変数からではなく、呼び出し側の設定から受け取る
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: completion API key not set", collaborator.ErrAuth)
	}

	cfg := clientConfig{
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		baseBackoff: BaseBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// リトライはこのクライアントで制御する
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.model,
		timeout:     cfg.timeout,
		baseBackoff: cfg.baseBackoff,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Generate は OpenAI API を使用してテキストを生成する
func (c *Client) Generate(ctx context.Context, req collaborator.Request) (collaborator.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return collaborator.Response{}, fmt.Errorf("%w: %w", collaborator.ErrInference, ctx.Err())
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Prompt),
			},
			Temperature: openai.Float(req.Temperature),
		}

		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return collaborator.Response{}, classifyError(err)
		}

		if len(completion.Choices) == 0 {
			return collaborator.Response{}, fmt.Errorf("%w: no completion choices returned", collaborator.ErrInference)
		}

		return collaborator.Response{
			Content:    completion.Choices[0].Message.Content,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      string(completion.Model),
		}, nil
	}

	return collaborator.Response{}, fmt.Errorf("%w: %w: %v", collaborator.ErrInference, ErrMaxRetriesExceeded, lastErr)
}

func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: OpenAI API rejected the key: %v", collaborator.ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w: %v", collaborator.ErrInference, collaborator.ErrModelNotFound, err)
		}
	}
	return fmt.Errorf("%w: OpenAI API call failed: %w", collaborator.ErrInference, err)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// インターフェース実装の確認
var _ collaborator.Generator = (*Client)(nil)
