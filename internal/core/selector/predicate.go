package selector

import (
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Predicate はルートからの相対パスを受け取り、選択対象かどうかを返す
type Predicate func(relPath string) bool

// HasSuffix はパスがいずれかの接尾辞で終わるファイルを選択する
// 大文字小文字は区別する
func HasSuffix(suffixes ...string) Predicate {
	return func(relPath string) bool {
		for _, s := range suffixes {
			if s != "" && strings.HasSuffix(relPath, s) {
				return true
			}
		}
		return false
	}
}

// HasLanguage はファイル名から判定した言語がいずれかに一致するファイルを選択する
// 判定は名前のみで行い、ファイル内容は読まない
func HasLanguage(languages ...string) Predicate {
	return func(relPath string) bool {
		lang := DetectLanguage(relPath)
		if lang == "" {
			return false
		}
		for _, l := range languages {
			if strings.EqualFold(l, lang) {
				return true
			}
		}
		return false
	}
}

// Any はいずれかの述語を満たすファイルを選択する
func Any(preds ...Predicate) Predicate {
	return func(relPath string) bool {
		for _, p := range preds {
			if p != nil && p(relPath) {
				return true
			}
		}
		return false
	}
}

// DetectLanguage はファイル名からプログラミング言語を推定する。不明な場合は空文字列
func DetectLanguage(relPath string) string {
	name := path.Base(relPath)
	if lang, ok := enry.GetLanguageByFilename(name); ok {
		return lang
	}
	// 拡張子が複数言語に該当する場合は最初の候補を採用する
	lang, _ := enry.GetLanguageByExtension(name)
	return lang
}
