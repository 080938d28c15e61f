package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/jinford/repo-scout/internal/core/collaborator"
	giturls "github.com/whilp/git-urls"
)

// tokenUsername は HTTPS のトークン認証で使うユーザー名
// GitHub/GitLab ともにパスワード欄のトークンだけを検証する
const tokenUsername = "x-access-token"

// Client は Git リポジトリ操作を提供する
type Client struct {
	token       string
	sshKeyPath  string
	sshPassword string
	progress    io.Writer
	logger      *slog.Logger
}

// Option は Client の設定を変更する
type Option func(*Client)

// WithToken は HTTPS クローンで使うアクセストークンを設定する
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithSSHKey は SSH クローンで使う秘密鍵を設定する
func WithSSHKey(keyPath, password string) Option {
	return func(c *Client) {
		c.sshKeyPath = keyPath
		c.sshPassword = password
	}
}

// WithProgress はクローンの進捗出力先を設定する
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しい Client を作成する
func NewClient(opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CommitInfo はコミット情報を表す
type CommitInfo struct {
	Hash    string
	Date    time.Time
	Message string
	Author  string
}

// DirectoryName はGit URLをディレクトリ名に変換する
// 例: git@github.com:user/repo.git -> github.com/user/repo
func (c *Client) DirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(hostname, filepath.FromSlash(path)), nil
}

// Clone は destDir の内容をすべて削除したうえで Git リポジトリをクローンする
// 失敗した場合も destDir は削除済みの状態で返るため、再実行は常に空の状態から始まる
func (c *Client) Clone(ctx context.Context, url, destDir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", &collaborator.CloneError{URL: url, Err: errors.New("repository URL is empty")}
	}
	if err := resetDir(destDir); err != nil {
		return "", &collaborator.CloneError{URL: url, Err: err}
	}

	auth, err := c.authFor(url)
	if err != nil {
		return "", &collaborator.CloneError{URL: url, Err: err}
	}

	c.logger.Info("cloning repository", "url", url, "dest", destDir)

	_, err = git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:      url,
		Auth:     auth,
		Progress: c.progress,
	})
	if err != nil {
		if rmErr := os.RemoveAll(destDir); rmErr != nil {
			c.logger.Warn("failed to clean up after clone failure", "dest", destDir, "error", rmErr)
		}
		return "", &collaborator.CloneError{URL: url, Err: err}
	}

	return destDir, nil
}

// HeadCommit はクローン済みリポジトリの HEAD のコミット情報を取得する
func (c *Client) HeadCommit(ctx context.Context, repoPath string) (*CommitInfo, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	return &CommitInfo{
		Hash:    commit.Hash.String(),
		Date:    commit.Author.When,
		Message: strings.TrimSpace(commit.Message),
		Author:  commit.Author.Name,
	}, nil
}

// resetDir はディレクトリを削除して空の状態で作り直す
func resetDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("destination directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("refusing to clear filesystem root %s", abs)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear destination: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	return nil
}

// authFor は URL のスキームに応じた認証方法を返す
func (c *Client) authFor(url string) (transport.AuthMethod, error) {
	u, err := giturls.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse git URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		if c.token == "" {
			return nil, nil
		}
		return &githttp.BasicAuth{Username: tokenUsername, Password: c.token}, nil
	case "ssh", "git+ssh":
		return c.sshAuth()
	default:
		return nil, nil
	}
}

func (c *Client) sshAuth() (transport.AuthMethod, error) {
	if c.sshKeyPath == "" {
		return nil, nil
	}

	if _, err := os.Stat(c.sshKeyPath); os.IsNotExist(err) {
		return nil, nil
	}

	auth, err := ssh.NewPublicKeysFromFile("git", c.sshKeyPath, c.sshPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	return auth, nil
}

// インターフェース実装の確認
var _ collaborator.RepositoryCloner = (*Client)(nil)
