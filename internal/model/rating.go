// Package model はドメインモデルを定義する。
package model

import "time"

// Sentiment は評価の粗い感情バケットを表す。数値スコアの基準点になる。
type Sentiment string

const (
	// SentimentLoved は「とても良かった」。基準スコア9.0。
	SentimentLoved Sentiment = "Loved"
	// SentimentLiked は「良かった」。基準スコア7.0。
	SentimentLiked Sentiment = "Liked"
	// SentimentOkay は「普通」。基準スコア5.0。
	SentimentOkay Sentiment = "Okay"
)

// Valid はセンチメントが定義済みの値かどうかを返す。
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentLoved, SentimentLiked, SentimentOkay:
		return true
	}
	return false
}

// Rating はユーザーによる書籍の評価を表す。
// (user_id, book_id)で一意であり、再評価は追記ではなく上書きになる。
// Scoreは[0.0, 10.0]の範囲で小数第1位まで丸められる。
type Rating struct {
	ID            string
	UserID        string
	BookID        string
	Sentiment     Sentiment
	Score         float64
	Note          string
	IsNotePrivate bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReadingStatus はユーザーごとの読書状態を表す。評価とは独立に設定・解除できる。
type ReadingStatus string

const (
	// ReadingStatusWantToRead は「読みたい」。
	ReadingStatusWantToRead ReadingStatus = "WantToRead"
	// ReadingStatusReading は「読書中」。
	ReadingStatusReading ReadingStatus = "Reading"
	// ReadingStatusRead は「読了」。
	ReadingStatusRead ReadingStatus = "Read"
)

// Valid は読書状態が定義済みの値かどうかを返す。
func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusWantToRead, ReadingStatusReading, ReadingStatusRead:
		return true
	}
	return false
}

// BookRatingState は書籍詳細画面向けに評価と読書状態をまとめたモデル。
// 未評価・未設定はnilで表現され、エラーではない。
type BookRatingState struct {
	Sentiment     *Sentiment
	Score         *float64
	Note          string
	IsNotePrivate bool
	ReadingStatus *ReadingStatus
}
