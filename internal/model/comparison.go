// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// ComparisonWinner はペア比較の結果を表す。
type ComparisonWinner string

const (
	// WinnerLeft は左側（比較元）の書籍が選ばれたことを示す。
	WinnerLeft ComparisonWinner = "left"
	// WinnerRight は右側（候補）の書籍が選ばれたことを示す。
	WinnerRight ComparisonWinner = "right"
	// WinnerTie は引き分けを示す。スコア調整には影響しない。
	WinnerTie ComparisonWinner = "tie"
)

// Valid は比較結果が定義済みの値かどうかを返す。
func (w ComparisonWinner) Valid() bool {
	switch w {
	case WinnerLeft, WinnerRight, WinnerTie:
		return true
	}
	return false
}

// Comparison はユーザーが解決したペア比較1件を表す。
// 追記専用であり、同じペアの比較が複数回記録された場合はすべて調整に加算される。
type Comparison struct {
	ID          string
	UserID      string
	LeftBookID  string
	RightBookID string
	Winner      ComparisonWinner
	CreatedAt   time.Time
}

// ComparisonPrompt はユーザーに提示する未解決のペア比較を表す。
// 永続化されず、破棄されたプロンプトは痕跡を残さない。
type ComparisonPrompt struct {
	ID        string
	LeftBook  BookSummary
	RightBook BookSummary
}

// NewPromptID はペアの書籍IDから決定的なプロンプトIDを導出する。
// 同一セッション内で同じペアのプロンプトを識別できるようにする。
func NewPromptID(leftBookID, rightBookID string) string {
	return fmt.Sprintf("cmp-%s-%s", leftBookID, rightBookID)
}
