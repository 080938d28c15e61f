package collaborator

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth は認証情報が未設定または無効な場合のエラー
	ErrAuth = errors.New("missing or invalid credential")

	// ErrInference はテキスト生成サービスの呼び出し失敗または不正なレスポンス
	ErrInference = errors.New("inference failed")

	// ErrModelNotFound は指定したモデルが推論サービス側に存在しない場合のエラー
	ErrModelNotFound = errors.New("model not found")

	// ErrMetadataNotFound はリポジトリのメタデータが見つからない場合のエラー
	ErrMetadataNotFound = errors.New("repository metadata not found")
)

// CloneError はリポジトリのクローン失敗を表す
type CloneError struct {
	URL string
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("failed to clone %s: %v", e.URL, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}
