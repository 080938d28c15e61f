package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/repo-scout/internal/app/scout"
)

// RankAction はファイルを重要度順に並べるコマンドのアクション
func RankAction(ctx context.Context, cmd *cli.Command) error {
	params := scout.RankParams{
		Root:            cmd.String("path"),
		Predicate:       predicateFrom(cmd),
		Description:     cmd.String("description"),
		Repository:      cmd.String("repo"),
		MaxOutputTokens: cmd.Int("max-tokens"),
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	slog.Info("順位付けを開始", "path", params.Root, "repo", params.Repository)

	result, err := appCtx.Container.Service.Rank(ctx, params)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(cmd, result)
	}

	w := output(cmd)
	if !result.Ranked {
		fmt.Fprintf(w, "# 順位付けできなかったため未順位の一覧を表示します: %s\n", result.Reason)
	}
	for i, name := range result.Ranking {
		fmt.Fprintf(w, "%d. %s\n", i+1, name)
	}
	return nil
}

// DescribeAction はカタログから主要なソースファイルを挙げさせるコマンドのアクション
func DescribeAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.String("path")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	result, err := appCtx.Container.Service.DescribeListing(ctx, root)
	if err != nil {
		return err
	}

	return writeGeneration(cmd, result)
}

// ExplainAction はファイルの内容を説明させるコマンドのアクション
func ExplainAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.String("path")
	file := cmd.String("file")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}

	result, err := appCtx.Container.Service.Explain(ctx, root, file)
	if err != nil {
		return err
	}

	return writeGeneration(cmd, result)
}

// writeGeneration は生成結果を出力する
func writeGeneration(cmd *cli.Command, result *scout.GenerationResult) error {
	if cmd.Bool("json") {
		return writeJSON(cmd, result)
	}
	fmt.Fprintln(output(cmd), strings.TrimRight(result.Text, "\n"))
	return nil
}
