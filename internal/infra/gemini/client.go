package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
	"google.golang.org/genai"
)

const (
	// DefaultModel はデフォルトで使用するGeminiモデル
	DefaultModel = "gemini-2.0-flash"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// Client は Gemini API を使用したテキスト生成クライアント
type Client struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

// Option は Client の設定を変更する
type Option func(*clientConfig)

type clientConfig struct {
	model   string
	timeout time.Duration
	baseURL string
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

// WithBaseURL はAPIのベースURLを設定する (テスト用)
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// NewClient はAPIキーを指定して Client を作成する
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: completion API key not set", collaborator.ErrAuth)
	}

	cfg := clientConfig{
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{cli: cli, model: cfg.model, timeout: cfg.timeout}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Generate は Gemini API を使用してテキストを生成する
func (c *Client) Generate(ctx context.Context, req collaborator.Request) (collaborator.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.cli.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return collaborator.Response{}, classifyError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return collaborator.Response{}, fmt.Errorf("%w: no candidates returned", collaborator.ErrInference)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	out := collaborator.Response{
		Content: sb.String(),
		Model:   c.model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: Gemini API rejected the key: %v", collaborator.ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w: %v", collaborator.ErrInference, collaborator.ErrModelNotFound, err)
		}
	}
	return fmt.Errorf("%w: Gemini API call failed: %w", collaborator.ErrInference, err)
}

// インターフェース実装の確認
var _ collaborator.Generator = (*Client)(nil)
