// Package rating は評価保存とスコア導出のドメインロジックを提供する。
//
// 数値スコアはセンチメント由来の基準値を錨とし、ペア比較の勝敗履歴による
// ±1.0までの摂動で微調整される。導出は取得済みの比較履歴に対する純粋関数であり、
// 同じ入力に対して常に同じ結果を返す（乱数・処理順への依存なし）。
package rating

import (
	"math"

	"github.com/hitoshi/bookman/internal/model"
)

const (
	// adjustmentStep は比較1件（勝ちまたは負け）あたりのスコア変動幅。
	adjustmentStep = 0.2
	// maxAdjustment は比較調整の上限。履歴がどれだけ偏っても基準値から±1.0まで。
	maxAdjustment = 1.0

	scoreMin = 0.0
	scoreMax = 10.0
)

// BaseScore はセンチメントに対応する基準スコアを返す。
// Loved→9、Liked→7、Okay→5。未定義のセンチメントは事前検証で弾かれる前提で5を返す。
func BaseScore(sentiment model.Sentiment) float64 {
	switch sentiment {
	case model.SentimentLoved:
		return 9
	case model.SentimentLiked:
		return 7
	case model.SentimentOkay:
		return 5
	default:
		return 5
	}
}

// ComparisonAdjustment は比較履歴から指定書籍のスコア調整値を計算する。
// 引き分けは勝敗に数えない。勝ち1件で+0.2、負け1件で-0.2、合計を[-1, +1]にクランプする。
func ComparisonAdjustment(comparisons []*model.Comparison, bookID string) float64 {
	var wins, losses int

	for _, c := range comparisons {
		if c.Winner == model.WinnerTie {
			continue
		}

		wonLeft := c.Winner == model.WinnerLeft && c.LeftBookID == bookID
		wonRight := c.Winner == model.WinnerRight && c.RightBookID == bookID

		if wonLeft || wonRight {
			wins++
		} else {
			losses++
		}
	}

	raw := float64(wins-losses) * adjustmentStep
	return clamp(raw, -maxAdjustment, maxAdjustment)
}

// DeriveScore はセンチメントと比較履歴から数値スコアを導出する。
// 基準値+調整値を[0, 10]にクランプし、小数第1位に丸める。
func DeriveScore(sentiment model.Sentiment, bookID string, comparisons []*model.Comparison) float64 {
	adjusted := BaseScore(sentiment) + ComparisonAdjustment(comparisons, bookID)
	return round1(clamp(adjusted, scoreMin, scoreMax))
}

// clamp はvを[lo, hi]の範囲に収める。
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round1 は小数第1位に丸める。
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
