package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/jinford/repo-scout/internal/app/scout"
	"github.com/jinford/repo-scout/internal/core/collaborator"
	"github.com/jinford/repo-scout/internal/core/prompt"
	"github.com/jinford/repo-scout/internal/core/ranking"
	"github.com/jinford/repo-scout/internal/infra/gemini"
	"github.com/jinford/repo-scout/internal/infra/git"
	"github.com/jinford/repo-scout/internal/infra/github"
	"github.com/jinford/repo-scout/internal/infra/local"
	"github.com/jinford/repo-scout/internal/infra/openai"
	"github.com/jinford/repo-scout/pkg/config"
)

// Container はアプリケーションの依存関係を保持する
type Container struct {
	Config  *config.Config
	Git     *git.Client
	Service *scout.Service

	logger *slog.Logger
}

// Options は Container の組み立て方を調整する
type Options struct {
	UseIgnore      bool
	FollowSymlinks bool
	Progress       io.Writer // クローンの進捗出力先（nil なら出力しない）
}

// New は設定とロガーからコンテナを生成する
// 生成サービスやトークン計測の初期化に失敗しても、カタログ・ファイル選択は使えるよう続行する
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts Options) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// RepositoryCloner (Git)
	gitClient := git.NewClient(
		git.WithToken(cfg.Credentials.SourceControlCredential),
		git.WithSSHKey(cfg.Git.SSHKeyPath, cfg.Git.SSHPassword),
		git.WithProgress(opts.Progress),
		git.WithLogger(logger),
	)

	// MetadataProvider (GitHub)
	metadata := github.NewClient(cfg.Credentials.SourceControlCredential, github.WithAPIURL(cfg.GitHub.APIURL))

	// Generator
	var generator collaborator.Generator
	gen, err := NewGenerator(ctx, cfg)
	if err != nil {
		logger.Warn("text generator unavailable", "provider", cfg.LLM.Provider, "error", err)
	} else {
		generator = gen
	}

	// ImportancePolicy
	validation, err := ParseValidation(cfg.Ranking.Validation)
	if err != nil {
		return nil, err
	}
	policy := ranking.NewPolicy(generator,
		ranking.WithTemperature(cfg.Ranking.Temperature),
		ranking.WithTimeout(cfg.CallTimeout),
		ranking.WithValidation(validation),
		ranking.WithLogger(logger),
	)

	serviceCfg := scout.ServiceConfig{
		Cloner:              gitClient,
		Metadata:            metadata,
		Generator:           generator,
		Policy:              policy,
		CallTimeout:         cfg.CallTimeout,
		CloneTimeout:        cfg.Git.CloneTimeout,
		GenerateMaxTokens:   cfg.LLM.MaxTokens,
		GenerateTemperature: cfg.LLM.Temperature,
		RankMaxTokens:       cfg.Ranking.MaxTokens,
		UseIgnore:           opts.UseIgnore,
		FollowSymlinks:      opts.FollowSymlinks,
		Logger:              logger,
	}

	// トークン上限 (tiktoken)
	if cfg.Prompt.TokenLimit > 0 {
		budget, err := prompt.NewBudget(cfg.Prompt.TokenLimit)
		if err != nil {
			logger.Warn("token counting unavailable, prompt size is not checked", "error", err)
		} else {
			serviceCfg.Budget = budget
		}
	}

	return &Container{
		Config:  cfg,
		Git:     gitClient,
		Service: scout.NewService(serviceCfg),
		logger:  logger,
	}, nil
}

// NewGenerator は設定されたプロバイダのテキスト生成クライアントを作成する
func NewGenerator(ctx context.Context, cfg *config.Config) (collaborator.Generator, error) {
	switch cfg.LLM.Provider {
	case "openai":
		client, err := openai.NewClient(cfg.Credentials.CompletionAPIKey,
			openai.WithModel(cfg.LLM.Model),
			openai.WithTimeout(cfg.CallTimeout),
			openai.WithBaseURL(cfg.LLM.BaseURL),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Credentials.CompletionAPIKey,
			gemini.WithModel(cfg.LLM.Model),
			gemini.WithTimeout(cfg.CallTimeout),
			gemini.WithBaseURL(cfg.LLM.BaseURL),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "local":
		return local.NewClient(
			local.WithBaseURL(cfg.LLM.LocalURL),
			local.WithModel(cfg.LLM.Model),
			local.WithModelToken(cfg.Credentials.ModelToken),
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}

// ParseValidation は設定値を ranking.Validation に変換する
func ParseValidation(name string) (ranking.Validation, error) {
	switch name {
	case "", "passthrough":
		return ranking.PassThrough, nil
	case "known":
		return ranking.KeepKnown, nil
	case "append":
		return ranking.AppendMissing, nil
	default:
		return ranking.PassThrough, fmt.Errorf("unknown ranking validation: %s", name)
	}
}

// CloneDestination は URL に対応するクローン先ディレクトリを返す
// 例: https://github.com/user/repo.git -> <GIT_CLONE_DIR>/github.com/user/repo
func (c *Container) CloneDestination(url string) (string, error) {
	name, err := c.Git.DirectoryName(url)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Config.Git.CloneDir, name), nil
}

// Logger はロガーを返す
func (c *Container) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
