package collaborator

import "context"

// RepositoryCloner はソース管理システムからリポジトリを取得する
type RepositoryCloner interface {
	// Clone は destDir の内容を破棄したうえで url をクローンし、クローン先を返す
	Clone(ctx context.Context, url, destDir string) (string, error)
}

// MetadataProvider はリポジトリのメタデータ (説明文) を提供する
type MetadataProvider interface {
	// Description はリポジトリの説明文を返す。説明が無い場合は空文字列
	Description(ctx context.Context, repoIdentifier string) (string, error)
}
