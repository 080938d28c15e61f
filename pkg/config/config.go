package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// 認証情報（各コラボレータのコンストラクタへ明示的に渡す）
	Credentials Credentials

	// テキスト生成設定
	LLM LLMConfig

	// 重要度順位付け設定
	Ranking RankingConfig

	// プロンプト設定
	Prompt PromptConfig

	// Git設定
	Git GitConfig

	// GitHub設定（リポジトリ説明文の取得用）
	GitHub GitHubConfig

	// ログ設定
	Log LogConfig

	// 外部呼び出し1回あたりのタイムアウト
	CallTimeout time.Duration
}

// Credentials は外部サービスの認証情報
type Credentials struct {
	SourceControlCredential string // Git ホスティングのアクセストークン
	CompletionAPIKey        string // ホスト型テキスト生成APIのキー
	ModelToken              string // ローカル推論サーバ・モデル配布元のトークン
}

// LLMConfig はテキスト生成の設定
type LLMConfig struct {
	Provider    string // "openai", "gemini" or "local"
	Model       string // 省略時はプロバイダごとのデフォルト
	LocalURL    string // ローカル推論サーバのURL
	BaseURL     string // ホスト型APIのベースURL（互換APIを使う場合）
	MaxTokens   int    // 説明生成の最大トークン数
	Temperature float64
}

// RankingConfig は重要度順位付けの設定
type RankingConfig struct {
	Temperature float64
	MaxTokens   int
	Validation  string // "passthrough", "known" or "append"
}

// PromptConfig はプロンプトの設定
type PromptConfig struct {
	TokenLimit int // 入力上限のトークン数（0以下は無制限）
}

// GitConfig はGit操作設定
type GitConfig struct {
	CloneDir     string
	SSHKeyPath   string
	SSHPassword  string        // SSH秘密鍵のパスワード（パスフレーズ）
	CloneTimeout time.Duration // クローン1回あたりのタイムアウト
}

// GitHubConfig は GitHub API 設定
type GitHubConfig struct {
	APIURL string
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string // "debug", "info", "warn" or "error"
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Credentials: Credentials{
			SourceControlCredential: getEnv("SCM_TOKEN", getEnv("GITHUB_TOKEN", "")),
			CompletionAPIKey:        getEnv("COMPLETION_API_KEY", ""),
			ModelToken:              getEnv("MODEL_TOKEN", ""),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:       getEnv("LLM_MODEL", ""),
			LocalURL:    getEnv("LOCAL_LLM_URL", "http://localhost:11434"),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			MaxTokens:   getEnvAsInt("GENERATE_MAX_TOKENS", 512),
			Temperature: getEnvAsFloat("GENERATE_TEMPERATURE", 0.2),
		},
		Ranking: RankingConfig{
			Temperature: getEnvAsFloat("RANK_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("RANK_MAX_TOKENS", 512),
			Validation:  strings.ToLower(getEnv("RANK_VALIDATION", "passthrough")),
		},
		Prompt: PromptConfig{
			TokenLimit: getEnvAsInt("PROMPT_TOKEN_LIMIT", 8000),
		},
		Git: GitConfig{
			CloneDir:     getEnv("GIT_CLONE_DIR", "repos"),
			SSHKeyPath:   getEnv("GIT_SSH_KEY_PATH", ""),
			SSHPassword:  getEnv("GIT_SSH_PASSWORD", ""),
			CloneTimeout: getEnvAsDuration("CLONE_TIMEOUT", 10*time.Minute),
		},
		GitHub: GitHubConfig{
			APIURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		CallTimeout: getEnvAsDuration("CALL_TIMEOUT", 60*time.Second),
	}

	// プロバイダ固有のキー名もフォールバックとして受け付ける
	if cfg.Credentials.CompletionAPIKey == "" {
		switch cfg.LLM.Provider {
		case "gemini":
			cfg.Credentials.CompletionAPIKey = getEnv("GEMINI_API_KEY", "")
		default:
			cfg.Credentials.CompletionAPIKey = getEnv("OPENAI_API_KEY", "")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini", "local":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q: must be openai, gemini or local", c.LLM.Provider)
	}
	switch c.Ranking.Validation {
	case "passthrough", "known", "append":
	default:
		return fmt.Errorf("unknown RANK_VALIDATION %q: must be passthrough, known or append", c.Ranking.Validation)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
