package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/repo-scout/internal/platform/container"
	"github.com/jinford/repo-scout/internal/platform/logger"
	"github.com/jinford/repo-scout/pkg/config"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Container *container.Container
}

// NewAppContext は設定ファイルを読み込み、依存関係を組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	// 設定の読み込み
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// ロガーの初期化（標準出力は結果の出力に使うため、ログは標準エラー出力へ）
	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	opts := container.Options{
		UseIgnore:      cmd.Bool("ignore"),
		FollowSymlinks: cmd.Bool("follow-symlinks"),
	}
	if cmd.Bool("progress") {
		opts.Progress = errOutput(cmd)
	}

	// コンテナの初期化
	cont, err := container.New(ctx, appLogger, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Container: cont,
	}, nil
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}

// output はコマンド結果の出力先を返す
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// errOutput は進捗など結果以外の出力先を返す
func errOutput(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// commonFlags は全コマンド共通のフラグに extra を加えて返す
func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "結果をJSONで出力",
		},
	}
	return append(flags, extra...)
}

// cloneFlags はクローンを伴うコマンドのフラグを返す
func cloneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "url",
			Usage:    "GitリポジトリURL",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "dest",
			Usage: "クローン先ディレクトリ（省略時は GIT_CLONE_DIR/<host>/<owner>/<repo>）",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "クローンの進捗を標準エラー出力へ表示",
		},
	}
}

// scanFlags はディレクトリ走査を伴うコマンドのフラグを返す
func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "ignore",
			Usage: ".gitignore / .scoutignore とデフォルトの除外パターンを適用",
		},
		&cli.BoolFlag{
			Name:  "follow-symlinks",
			Usage: "ディレクトリへのシンボリックリンクを辿る",
		},
	}
}
