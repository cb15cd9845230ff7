// Package model はドメインモデルを定義する。
package model

import "time"

// ActivityType はアクティビティの種別を表す。
type ActivityType string

const (
	// ActivityRated は評価の保存を示す。
	ActivityRated ActivityType = "Rated"
	// ActivityStatusChanged は読書状態の変更を示す。
	ActivityStatusChanged ActivityType = "StatusChanged"
)

// Activity はフィードに流れる追記専用のアクティビティレコードを表す。
// 評価保存フローからはベストエフォートで書き込まれ、失敗しても保存は巻き戻らない。
type Activity struct {
	ID          string
	ActorUserID string
	BookID      string
	Type        ActivityType
	RatingID    *string
	CreatedAt   time.Time
}

// FeedItem はアクティビティにユーザー・書籍・評価情報を結合したフィード表示用モデル。
// activitiesテーブルとusers/books/ratingsをJOINして取得される。
type FeedItem struct {
	ID            string
	ActorID       string
	ActorName     string
	Book          BookSummary
	Type          ActivityType
	Sentiment     *Sentiment
	Score         *float64
	NotePreview   string
	ReadingStatus *ReadingStatus
	CreatedAt     time.Time
}
