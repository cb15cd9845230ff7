// Package model はドメインモデルを定義する。
package model

import "time"

// Book は書籍を表す。全ユーザーで共有され、外部カタログ由来の安定IDをキーとする。
// 評価や比較から参照されるたびにtitle/author/cover_urlがアップサートで最新化される。
type Book struct {
	ID        string
	Title     string
	Author    string
	CoverURL  string
	CoverData []byte // カバーバッチが取得した画像データ（未取得はnil）
	CoverMime string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookSummary は外部から渡される書籍の最小情報を表す。
// 評価・比較の保存時にbooksテーブルへのアップサートに使用する。
type BookSummary struct {
	ID       string
	Title    string
	Author   string
	CoverURL string
}
