// Package activity はアクティビティの記録と共有フィードの取得を提供する。
package activity

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// notePreviewMaxRunes はフィードに載せるノートプレビューの最大文字数。
const notePreviewMaxRunes = 120

// MetricsRecorder はアクティビティ記録のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordActivityRecordFailure()
}

// FeedResult はフィード取得のレスポンス。
type FeedResult struct {
	Items      []model.FeedItem
	NextCursor string
	HasMore    bool
}

// Service はアクティビティのサービス層。
// 評価保存フローのレコーダーとしても使われる。
type Service struct {
	activityRepo repository.ActivityRepository
	metrics      MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil許容（テスト用）。
func NewService(activityRepo repository.ActivityRepository, metrics MetricsRecorder) *Service {
	return &Service{activityRepo: activityRepo, metrics: metrics}
}

// Record はアクティビティを1行追記する。
// 呼び出し元（評価保存フロー）はこの失敗で保存を巻き戻さない。
func (s *Service) Record(ctx context.Context, userID, bookID string, kind model.ActivityType, ratingID *string) error {
	err := s.activityRepo.Insert(ctx, &model.Activity{
		ActorUserID: userID,
		BookID:      bookID,
		Type:        kind,
		RatingID:    ratingID,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordActivityRecordFailure()
		}
		return fmt.Errorf("アクティビティの記録に失敗しました: %w", err)
	}
	return nil
}

// ListFeed は共有フィードをcreated_at降順でカーソルベースページネーションで返す。
func (s *Service) ListFeed(ctx context.Context, cursorStr string, limit int) (*FeedResult, error) {
	// カーソルのパース
	var cursor time.Time
	if cursorStr != "" {
		var err error
		cursor, err = time.Parse(time.RFC3339Nano, cursorStr)
		if err != nil {
			// RFC3339でもパースを試みる
			cursor, err = time.Parse(time.RFC3339, cursorStr)
			if err != nil {
				return nil, model.NewInvalidCursorError(cursorStr)
			}
		}
	}

	// limit+1件を取得してHasMoreを判定する
	items, err := s.activityRepo.ListRecent(ctx, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	for i := range items {
		items[i].NotePreview = truncateNote(items[i].NotePreview)
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		nextCursor = items[len(items)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	return &FeedResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// truncateNote はノートプレビューを文字数（rune）ベースで切り詰める。
// バイトで切るとマルチバイト文字が壊れるため、必ずruneで数える。
func truncateNote(note string) string {
	if utf8.RuneCountInString(note) <= notePreviewMaxRunes {
		return note
	}
	runes := []rune(note)
	return string(runes[:notePreviewMaxRunes]) + "…"
}
