package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
)

const (
	// DefaultBaseURL はローカル推論サーバのデフォルトURL
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel はデフォルトで使用するモデル
	DefaultModel = "stable-code:3b-code"

	// DefaultTimeout は生成1回あたりのタイムアウト
	// ローカル推論は遅いため、ホスト型APIより長めにとる
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxTokens は MaxTokens 未指定時の生成トークン数
	DefaultMaxTokens = 100
)

// Client はローカルで動作する推論パイプライン (Ollama 互換 /api/generate) のクライアント
// モデルの取得・ロードはサーバ側の責務で、ここでは前提条件として扱う
type Client struct {
	baseURL    string
	model      string
	modelToken string
	http       *http.Client
}

// Option は Client の設定を変更する
type Option func(*Client)

// WithBaseURL は推論サーバのURLを設定する
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = normalizeBaseURL(baseURL)
		}
	}
}

// WithModel はモデル名を設定する
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithModelToken はモデル配布元・推論サーバへのアクセストークンを設定する
func WithModelToken(token string) Option {
	return func(c *Client) {
		c.modelToken = token
	}
}

// WithHTTPClient はHTTPクライアントを設定する
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient は新しい Client を作成する
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Generate はローカル推論サーバでテキストを生成する
func (c *Client) Generate(ctx context.Context, req collaborator.Request) (collaborator.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.modelToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.modelToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("%w: local model server unreachable: %w", collaborator.ErrInference, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("%w: failed to read response: %w", collaborator.ErrInference, err)
	}

	var payload generateResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(payload.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return collaborator.Response{}, statusError(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return collaborator.Response{}, fmt.Errorf("%w: malformed response: %w", collaborator.ErrInference, decodeErr)
	}
	if payload.Error != "" {
		return collaborator.Response{}, fmt.Errorf("%w: %s", collaborator.ErrInference, payload.Error)
	}

	model := payload.Model
	if model == "" {
		model = c.model
	}
	return collaborator.Response{
		Content:    payload.Response,
		TokensUsed: payload.PromptEvalCount + payload.EvalCount,
		Model:      model,
	}, nil
}

func statusError(status int, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: local model server rejected the token: %s", collaborator.ErrAuth, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s", collaborator.ErrInference, collaborator.ErrModelNotFound, msg)
	default:
		return fmt.Errorf("%w: local model server returned %d: %s", collaborator.ErrInference, status, msg)
	}
}

func normalizeBaseURL(host string) string {
	host = strings.TrimSpace(host)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// インターフェース実装の確認
var _ collaborator.Generator = (*Client)(nil)
