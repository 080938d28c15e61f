package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/repo-scout/internal/core/catalog"
	"github.com/jinford/repo-scout/internal/core/selector"
)

// CloneAction はリポジトリをクローンするコマンドのアクション
func CloneAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	dest, err := cloneDestination(appCtx, cmd)
	if err != nil {
		return err
	}

	slog.Info("クローンを開始", "url", url, "dest", dest)

	path, err := appCtx.Container.Service.Clone(ctx, url, dest)
	if err != nil {
		return fmt.Errorf("クローンに失敗: %w", err)
	}

	if commit, err := appCtx.Container.Git.HeadCommit(ctx, path); err == nil {
		slog.Info("クローンが完了しました", "path", path, "commit", commit.Hash, "author", commit.Author)
	}

	if cmd.Bool("json") {
		return writeJSON(cmd, map[string]string{"url": url, "path": path})
	}
	fmt.Fprintln(output(cmd), path)
	return nil
}

// CatalogAction はディレクトリ構成のカタログを表示するコマンドのアクション
func CatalogAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.String("path")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	c, err := appCtx.Container.Service.Catalog(root)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(cmd, catalogOutput{
			Root:  c.Root,
			Stats: statsOutput(c.Stats()),
			Tree:  json.RawMessage(c.Render()),
		})
	}
	fmt.Fprintln(output(cmd), c.Render())
	return nil
}

// SelectAction は条件に一致するファイルを表示するコマンドのアクション
func SelectAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.String("path")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	files, err := appCtx.Container.Service.Select(root, predicateFrom(cmd))
	if err != nil {
		return err
	}

	entries := make([]fileOutput, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileOutput{Path: f, Language: selector.DetectLanguage(f)})
	}

	if cmd.Bool("json") {
		return writeJSON(cmd, entries)
	}
	w := output(cmd)
	for _, e := range entries {
		if e.Language == "" {
			fmt.Fprintln(w, e.Path)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Path, e.Language)
	}
	return nil
}

// RunAction はクローンからファイル一覧の説明までを続けて実行するコマンドのアクション
func RunAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	dest, err := cloneDestination(appCtx, cmd)
	if err != nil {
		return err
	}

	slog.Info("リポジトリの説明を開始", "url", url, "dest", dest)

	result, err := appCtx.Container.Service.Run(ctx, url, dest)
	if err != nil {
		slog.Error("リポジトリの説明に失敗しました", "error", err)
		return err
	}

	return writeGeneration(cmd, result)
}

// cloneDestination は --dest フラグ、なければ URL から求めたクローン先を返す
func cloneDestination(appCtx *AppContext, cmd *cli.Command) (string, error) {
	if dest := cmd.String("dest"); dest != "" {
		return dest, nil
	}
	dest, err := appCtx.Container.CloneDestination(cmd.String("url"))
	if err != nil {
		return "", fmt.Errorf("クローン先の決定に失敗: %w", err)
	}
	return dest, nil
}

// predicateFrom は --ext と --lang からファイル選択条件を作る
// どちらも指定されていない場合は nil (既定の .py 選択) を返す
func predicateFrom(cmd *cli.Command) selector.Predicate {
	var preds []selector.Predicate
	if exts := cmd.StringSlice("ext"); len(exts) > 0 {
		preds = append(preds, selector.HasSuffix(exts...))
	}
	if langs := cmd.StringSlice("lang"); len(langs) > 0 {
		preds = append(preds, selector.HasLanguage(langs...))
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return selector.Any(preds...)
	}
}

func statsOutput(s catalog.Stats) catalogStats {
	return catalogStats{Directories: s.Directories, Entries: s.Entries, Depth: s.Depth}
}
