// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookRepository は書籍データの永続化インターフェース。
// 書籍は全ユーザー共有であり、参照されるたびにアップサートで最新化される。
type BookRepository interface {
	// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// FindByIDs は指定IDの書籍をまとめて取得し、IDをキーとするマップで返す。
	// 見つからないIDはマップに含まれない。
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Book, error)

	// Upsert は書籍を作成または更新する（title/author/cover_urlを最新化する）。
	// cover_urlが変わった場合は取得済みカバー画像を破棄し、バッチに再取得させる。
	Upsert(ctx context.Context, book model.BookSummary) error

	// Search はタイトルまたは著者の部分一致で書籍を検索する。
	Search(ctx context.Context, query string, limit int) ([]*model.Book, error)

	// ListNeedingCoverFetch はcover_urlを持つがカバー画像が未取得の書籍を返す。
	// カバーバッチの走査対象。
	ListNeedingCoverFetch(ctx context.Context, limit int) ([]*model.Book, error)

	// UpdateCoverData は書籍のカバー画像データとMIMEタイプを更新する。
	UpdateCoverData(ctx context.Context, bookID string, data []byte, mimeType string) error
}

// RatingRepository は評価データの永続化インターフェース。
// (user_id, book_id)で一意であり、再評価はアップサートで上書きされる。
type RatingRepository interface {
	// FindByUserAndBook はユーザーIDと書籍IDで評価を取得する。見つからない場合はnilを返す。
	FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.Rating, error)

	// Upsert は評価をUNIQUE(user_id, book_id)制約でアップサートする。
	// 永続化後の行（既存行のID・created_atを保持）を返す。
	Upsert(ctx context.Context, rating *model.Rating) (*model.Rating, error)

	// UpdateScore は既存評価の数値スコアのみを更新する。
	// 比較解決後のスコア再計算（投影の更新）に使用する。
	// 評価が存在しない場合は何もしない。
	UpdateScore(ctx context.Context, userID, bookID string, score float64) error

	// ListRecentBookIDs は指定書籍を除くユーザーの直近評価の書籍IDを
	// 評価日時の降順で返す。比較プロンプトの候補選択に使用する。
	ListRecentBookIDs(ctx context.Context, userID, excludeBookID string, limit int) ([]string, error)

	// DeleteByUserID はユーザーの全評価を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// StatusRepository は読書状態の永続化インターフェース。
type StatusRepository interface {
	// FindByUserAndBook はユーザーIDと書籍IDで読書状態を取得する。未設定の場合はnilを返す。
	FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ReadingStatus, error)

	// Upsert は読書状態をUNIQUE(user_id, book_id)制約で冪等にアップサートする。
	Upsert(ctx context.Context, userID, bookID string, status model.ReadingStatus) error

	// Delete は読書状態を解除する。未設定でもエラーにならない。
	Delete(ctx context.Context, userID, bookID string) error

	// DeleteByUserID はユーザーの全読書状態を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ComparisonRepository はペア比較の永続化インターフェース。
// テーブルは追記専用であり、同じペアの再比較も新しい行として保持される
// （繰り返しは確信の強化シグナルとしてすべて調整に加算される）。
type ComparisonRepository interface {
	// ListInvolving は指定書籍が左右どちらかに現れるユーザーの全比較を返す。
	ListInvolving(ctx context.Context, userID, bookID string) ([]*model.Comparison, error)

	// Insert は比較結果を1行追記する。
	Insert(ctx context.Context, comparison *model.Comparison) error

	// DeleteByUserID はユーザーの全比較を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ActivityRepository はアクティビティの永続化インターフェース。
type ActivityRepository interface {
	// Insert はアクティビティを1行追記する。
	Insert(ctx context.Context, activity *model.Activity) error

	// ListRecent はアクティビティをユーザー・書籍・評価・読書状態と結合し、
	// created_at降順でカーソルベースページネーションで返す。
	// cursorがゼロ値の場合は先頭から取得する。
	ListRecent(ctx context.Context, cursor time.Time, limit int) ([]model.FeedItem, error)

	// DeleteByUserID はユーザーの全アクティビティを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
