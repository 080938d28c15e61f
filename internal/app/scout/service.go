package scout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/repo-scout/internal/core/catalog"
	"github.com/jinford/repo-scout/internal/core/collaborator"
	"github.com/jinford/repo-scout/internal/core/ignore"
	"github.com/jinford/repo-scout/internal/core/prompt"
	"github.com/jinford/repo-scout/internal/core/ranking"
	"github.com/jinford/repo-scout/internal/core/selector"
)

const (
	// DefaultCallTimeout は外部呼び出し1回あたりのデフォルトタイムアウト
	DefaultCallTimeout = 60 * time.Second

	// DefaultCloneTimeout はクローン1回あたりのデフォルトタイムアウト
	DefaultCloneTimeout = 10 * time.Minute

	// DefaultGenerateMaxTokens は説明生成の最大出力トークン数
	DefaultGenerateMaxTokens = 512

	// unavailablePrefix は生成に失敗したときに結果へ入れる文言の接頭辞
	unavailablePrefix = "The model is unavailable: "
)

// ErrOutsideRoot は指定したファイルがリポジトリのルート外を指す場合のエラー
var ErrOutsideRoot = errors.New("path escapes repository root")

// PromptBudget は生成前にプロンプトのトークン数を検査する
type PromptBudget interface {
	Fit(prompt string) (int, error)
}

// ServiceConfig は Service の依存関係と設定
type ServiceConfig struct {
	Cloner    collaborator.RepositoryCloner
	Metadata  collaborator.MetadataProvider
	Generator collaborator.Generator
	Policy    *ranking.Policy
	Budget    PromptBudget // nil の場合は検査しない

	CallTimeout         time.Duration
	CloneTimeout        time.Duration
	GenerateMaxTokens   int
	GenerateTemperature float64
	RankMaxTokens       int

	// UseIgnore が true の場合、.gitignore / .scoutignore とデフォルトの除外パターンを適用する
	UseIgnore      bool
	FollowSymlinks bool

	Logger *slog.Logger
}

// Service はリポジトリの取得からプロンプト生成・順位付けまでの流れをまとめる
// 各呼び出しはカタログ・選択結果・プロンプトを毎回作り直し、何もキャッシュしない
type Service struct {
	cloner    collaborator.RepositoryCloner
	metadata  collaborator.MetadataProvider
	generator collaborator.Generator
	policy    *ranking.Policy
	budget    PromptBudget

	callTimeout         time.Duration
	cloneTimeout        time.Duration
	generateMaxTokens   int
	generateTemperature float64
	rankMaxTokens       int
	useIgnore           bool
	followSymlinks      bool

	logger *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		cloner:              cfg.Cloner,
		metadata:            cfg.Metadata,
		generator:           cfg.Generator,
		policy:              cfg.Policy,
		budget:              cfg.Budget,
		callTimeout:         cfg.CallTimeout,
		cloneTimeout:        cfg.CloneTimeout,
		generateMaxTokens:   cfg.GenerateMaxTokens,
		generateTemperature: cfg.GenerateTemperature,
		rankMaxTokens:       cfg.RankMaxTokens,
		useIgnore:           cfg.UseIgnore,
		followSymlinks:      cfg.FollowSymlinks,
		logger:              cfg.Logger,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.callTimeout <= 0 {
		s.callTimeout = DefaultCallTimeout
	}
	if s.cloneTimeout <= 0 {
		s.cloneTimeout = DefaultCloneTimeout
	}
	if s.generateMaxTokens <= 0 {
		s.generateMaxTokens = DefaultGenerateMaxTokens
	}
	if s.policy == nil {
		s.policy = ranking.NewPolicy(cfg.Generator, ranking.WithLogger(s.logger), ranking.WithTimeout(s.callTimeout))
	}

	return s
}

// Clone は url のリポジトリを dest に取得し、クローン先のパスを返す
func (s *Service) Clone(ctx context.Context, url, dest string) (string, error) {
	if s.cloner == nil {
		return "", &collaborator.CloneError{URL: url, Err: errors.New("no repository cloner configured")}
	}

	logger := s.requestLogger("clone")
	ctx, cancel := context.WithTimeout(ctx, s.cloneTimeout)
	defer cancel()

	start := time.Now()
	path, err := s.cloner.Clone(ctx, url, dest)
	if err != nil {
		logger.Error("clone failed", "url", url, "error", err)
		return "", err
	}

	logger.Info("clone completed", "url", url, "path", path, "elapsed", time.Since(start))
	return path, nil
}

// Catalog は root 配下のカタログを構築する
func (s *Service) Catalog(root string) (*catalog.Catalog, error) {
	return s.buildCatalog(s.logger, root)
}

func (s *Service) buildCatalog(logger *slog.Logger, root string) (*catalog.Catalog, error) {
	opts := []catalog.Option{
		catalog.WithLogger(logger),
		catalog.WithFollowSymlinks(s.followSymlinks),
	}
	if s.useIgnore {
		filter, err := ignore.Load(root)
		if err != nil {
			logger.Warn("failed to load ignore patterns, scanning without them", "root", root, "error", err)
		} else {
			opts = append(opts, catalog.WithIgnore(filter))
		}
	}

	c, err := catalog.Build(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	stats := c.Stats()
	logger.Info("catalog built",
		"root", root,
		"directories", stats.Directories,
		"entries", stats.Entries,
		"depth", stats.Depth,
	)
	return c, nil
}

// Select は root 配下で pred を満たすファイルを前順で返す
func (s *Service) Select(root string, pred selector.Predicate) ([]string, error) {
	return s.selectFiles(s.logger, root, pred)
}

func (s *Service) selectFiles(logger *slog.Logger, root string, pred selector.Predicate) ([]string, error) {
	opts := []selector.Option{
		selector.WithLogger(logger),
		selector.WithFollowSymlinks(s.followSymlinks),
	}
	if s.useIgnore {
		filter, err := ignore.Load(root)
		if err != nil {
			logger.Warn("failed to load ignore patterns, selecting without them", "root", root, "error", err)
		} else {
			opts = append(opts, selector.WithIgnore(filter))
		}
	}

	files, err := selector.SelectFiles(root, pred, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	logger.Info("files selected", "root", root, "count", len(files))
	return files, nil
}

// Rank は root 配下の対象ファイルを重要度順に並べる
// 順位付けに失敗した場合は未順位の一覧を Ranked=false で返し、エラーにはしない
func (s *Service) Rank(ctx context.Context, params RankParams) (*RankResult, error) {
	requestID := uuid.NewString()
	logger := s.logger.With("requestID", requestID, "operation", "rank")

	files, err := s.selectFiles(logger, params.Root, params.Predicate)
	if err != nil {
		return nil, err
	}

	description := params.Description
	if description == "" && params.Repository != "" {
		description = s.describeRepository(ctx, logger, params.Repository)
	}

	maxTokens := params.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = s.rankMaxTokens
	}

	var ranked ranking.Ranking
	rankErr := s.fitBudget(logger, ranking.BuildPrompt(description, files))
	if rankErr == nil {
		ranked, rankErr = s.policy.Rank(ctx, description, files, maxTokens)
	}
	order, ok := ranking.Degrade(ranked, files, rankErr)

	result := &RankResult{
		RequestID:   requestID,
		Description: description,
		Files:       files,
		Ranking:     order,
		Ranked:      ok,
	}
	if rankErr != nil {
		result.Reason = rankErr.Error()
		logger.Warn("ranking unavailable, returning files unranked", "error", rankErr)
		s.logModelHint(logger, rankErr)
	}

	return result, nil
}

// fitBudget は順位付けプロンプトがトークン上限に収まるかを検査する
func (s *Service) fitBudget(logger *slog.Logger, text string) error {
	if s.budget == nil {
		return nil
	}
	n, err := s.budget.Fit(text)
	if err != nil {
		return err
	}
	logger.Debug("ranking prompt fits budget", "tokens", n)
	return nil
}

// describeRepository はリポジトリの説明文を取得する。失敗した場合は空文字列を返す
func (s *Service) describeRepository(ctx context.Context, logger *slog.Logger, repository string) string {
	if s.metadata == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	description, err := s.metadata.Description(ctx, repository)
	if err != nil {
		logger.Warn("failed to fetch repository description", "repository", repository, "error", err)
		return ""
	}
	return description
}

// DescribeListing はカタログからプロンプトを作り、主要なソースファイルの一覧を生成させる
func (s *Service) DescribeListing(ctx context.Context, root string) (*GenerationResult, error) {
	requestID := uuid.NewString()
	logger := s.logger.With("requestID", requestID, "operation", "describe")

	c, err := s.buildCatalog(logger, root)
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, logger, requestID, prompt.BuildListingPrompt(c))
}

// Explain は root 配下のファイルを読み込み、コードの説明を生成させる
// relPath は root からの相対パス (スラッシュ区切り)
func (s *Service) Explain(ctx context.Context, root, relPath string) (*GenerationResult, error) {
	requestID := uuid.NewString()
	logger := s.logger.With("requestID", requestID, "operation", "explain")

	full, err := resolveInRoot(root, relPath)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	logger.Info("explaining file", "path", relPath, "bytes", len(source))

	return s.generate(ctx, logger, requestID, prompt.BuildExplainPrompt(string(source)))
}

// Run は url のリポジトリを dest に取得し、ファイル一覧の説明を生成する
func (s *Service) Run(ctx context.Context, url, dest string) (*GenerationResult, error) {
	path, err := s.Clone(ctx, url, dest)
	if err != nil {
		return nil, err
	}
	return s.DescribeListing(ctx, path)
}

// generate はトークン上限を検査したうえで生成サービスを呼び出す
// 生成に失敗した場合は中断せず、結果の本文を "The model is unavailable: <理由>" に置き換える
func (s *Service) generate(ctx context.Context, logger *slog.Logger, requestID, text string) (*GenerationResult, error) {
	result := &GenerationResult{
		RequestID: requestID,
		Prompt:    text,
	}

	if s.budget != nil {
		n, err := s.budget.Fit(text)
		result.PromptTokens = n
		if err != nil {
			return nil, err
		}
	}

	if s.generator == nil {
		result.Text = unavailablePrefix + "no text generator configured"
		logger.Warn("no text generator configured")
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.generator.Generate(ctx, collaborator.Request{
		Prompt:      text,
		Temperature: s.generateTemperature,
		MaxTokens:   s.generateMaxTokens,
	})
	if err != nil {
		result.Text = unavailablePrefix + err.Error()
		logger.Warn("text generation failed", "error", err)
		s.logModelHint(logger, err)
		return result, nil
	}

	result.Text = resp.Content
	result.Model = resp.Model
	result.TokensUsed = resp.TokensUsed
	result.Available = true

	logger.Info("text generation completed",
		"model", resp.Model,
		"promptTokens", result.PromptTokens,
		"tokensUsed", resp.TokensUsed,
		"elapsed", time.Since(start),
	)
	return result, nil
}

// logModelHint は失敗の原因に応じて利用者向けのヒントを記録する
func (s *Service) logModelHint(logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, collaborator.ErrModelNotFound):
		logger.Info("the configured model was not found; check LLM_MODEL or pull the model on the inference server")
	case errors.Is(err, collaborator.ErrAuth):
		logger.Info("the completion service rejected the credential; check COMPLETION_API_KEY or MODEL_TOKEN")
	}
}

func (s *Service) requestLogger(operation string) *slog.Logger {
	return s.logger.With("requestID", uuid.NewString(), "operation", operation)
}

// resolveInRoot は relPath を root 配下の絶対パスに解決する
func resolveInRoot(root, relPath string) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, relPath)
	}

	full := filepath.Join(root, filepath.FromSlash(relPath))
	if !within(root, full) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, relPath)
	}

	// シンボリックリンクを解決した実体もルート配下になければならない
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	realFull, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", relPath, err)
	}
	if !within(realRoot, realFull) {
		return "", fmt.Errorf("%w: %s -> %s", ErrOutsideRoot, relPath, realFull)
	}
	return realFull, nil
}

// within は path が root 自身かその配下にあるかを判定する
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
