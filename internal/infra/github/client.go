package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
	giturls "github.com/whilp/git-urls"
)

const (
	// DefaultAPIURL は GitHub REST API のURL
	DefaultAPIURL = "https://api.github.com"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// Client は GitHub REST API からリポジトリのメタデータを取得する
type Client struct {
	apiURL string
	token  string
	http   *http.Client
}

// Option は Client の設定を変更する
type Option func(*Client)

// WithAPIURL はAPIのURLを設定する (GitHub Enterprise やテスト用)
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		if apiURL != "" {
			c.apiURL = strings.TrimRight(apiURL, "/")
		}
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

// NewClient は認証情報を指定して Client を作成する
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		apiURL: DefaultAPIURL,
		token:  token,
		http:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type repositoryResponse struct {
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
}

// Description はリポジトリの説明文を返す
// repoIdentifier は Git URL または "owner/repo" 形式
func (c *Client) Description(ctx context.Context, repoIdentifier string) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("%w: source control credential not set", collaborator.ErrAuth)
	}

	owner, repo, err := ParseRepository(repoIdentifier)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call GitHub API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read GitHub API response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: GitHub API returned %d: %s", collaborator.ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s/%s", collaborator.ErrMetadataNotFound, owner, repo)
	default:
		return "", fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload repositoryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode GitHub API response: %w", err)
	}
	if payload.Description == nil {
		return "", nil
	}
	return *payload.Description, nil
}

// ParseRepository はリポジトリ識別子から owner と repo を取り出す
// 例: git@github.com:user/repo.git -> user, repo
// 例: https://github.com/user/repo -> user, repo
// 例: user/repo -> user, repo
func ParseRepository(identifier string) (string, string, error) {
	identifier = strings.TrimSpace(identifier)
	path := identifier
	if !isShortForm(identifier) {
		u, err := giturls.Parse(identifier)
		if err != nil {
			return "", "", fmt.Errorf("failed to parse repository identifier %q: %w", identifier, err)
		}
		path = u.Path
	}

	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("repository identifier %q does not name owner/repo", identifier)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

func isShortForm(identifier string) bool {
	return !strings.Contains(identifier, ":") && strings.Count(identifier, "/") == 1
}

// インターフェース実装の確認
var _ collaborator.MetadataProvider = (*Client)(nil)
