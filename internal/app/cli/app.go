package cli

import (
	"github.com/urfave/cli/v3"
)

// NewCommand は repo-scout のルートコマンドを返す
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "repo-scout",
		Usage: "リポジトリのファイル構成を取り込み、言語モデルで主要ファイルの説明・順位付けを行う",
		Commands: []*cli.Command{
			{
				Name:  "clone",
				Usage: "リポジトリをクローン（クローン先は毎回空にしてから取得）",
				Flags:  commonFlags(cloneFlags()...),
				Action: CloneAction,
			},
			{
				Name:  "catalog",
				Usage: "ディレクトリ構成のカタログを表示",
				Flags: commonFlags(append(scanFlags(),
					&cli.StringFlag{
						Name:     "path",
						Usage:    "走査するディレクトリ",
						Required: true,
					},
				)...),
				Action: CatalogAction,
			},
			{
				Name:   "select",
				Usage:  "条件に一致するファイルを一覧表示",
				Flags:  commonFlags(append(scanFlags(), selectionFlags()...)...),
				Action: SelectAction,
			},
			{
				Name:  "rank",
				Usage: "ファイルを重要度の高い順に並べる",
				Flags: commonFlags(append(append(scanFlags(), selectionFlags()...),
					&cli.StringFlag{
						Name:  "repo",
						Usage: "説明文を取得するリポジトリ（URL または owner/repo）",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "リポジトリの説明文（指定時は取得しない）",
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "順位付けの最大出力トークン数（省略時は RANK_MAX_TOKENS）",
					},
				)...),
				Action: RankAction,
			},
			{
				Name:  "describe",
				Usage: "カタログをもとに主要なソースファイルを挙げさせる",
				Flags: commonFlags(append(scanFlags(),
					&cli.StringFlag{
						Name:     "path",
						Usage:    "走査するディレクトリ",
						Required: true,
					},
				)...),
				Action: DescribeAction,
			},
			{
				Name:  "explain",
				Usage: "ファイルの内容を説明させる",
				Flags: commonFlags(
					&cli.StringFlag{
						Name:     "path",
						Usage:    "リポジトリのルートディレクトリ",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "ルートからの相対パス",
						Required: true,
					},
				),
				Action: ExplainAction,
			},
			{
				Name:  "run",
				Usage: "クローン・カタログ構築・主要ファイルの説明を続けて実行",
				Flags:  commonFlags(append(scanFlags(), cloneFlags()...)...),
				Action: RunAction,
			},
		},
	}
}

// selectionFlags はファイル選択条件のフラグを返す
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Usage:    "走査するディレクトリ",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "ext",
			Usage: "選択する拡張子（複数指定可、省略時は .py）",
		},
		&cli.StringSliceFlag{
			Name:  "lang",
			Usage: "選択する言語名（例: Go, Python）",
		},
	}
}
