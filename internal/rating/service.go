// Package rating は評価保存とスコア導出のドメインロジックを提供する。
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// ActivityRecorder はアクティビティ記録のインターフェース。
// 評価保存フローからはベストエフォートで呼び出される。
type ActivityRecorder interface {
	Record(ctx context.Context, userID, bookID string, kind model.ActivityType, ratingID *string) error
}

// NoteSanitizer はノート本文のサニタイズインターフェース。
// ノートはプレーンテキストとして扱い、保存前にHTMLを除去する。
type NoteSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は評価保存のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRatingSaved(sentiment string)
	RecordDeriveDuration(d time.Duration)
}

// SaveRatingInput は評価保存のリクエストパラメータ。
// 周辺UIの選択状態は共有セッションではなく、すべて明示的な引数として渡される。
type SaveRatingInput struct {
	Book          model.BookSummary
	Sentiment     model.Sentiment
	Note          string
	IsNotePrivate bool
	ReadingStatus *model.ReadingStatus // nilは状態の解除を意味する
}

// Service は評価保存とスコア導出のサービス層。
//
// 保存シーケンス（書籍の確保→スコア導出→評価アップサート→読書状態→アクティビティ）は
// 個別のストア操作として発行され、トランザクションで束ねない。途中で失敗しても
// 導出が冪等なため、リトライで同じスコアに収束する。
type Service struct {
	bookRepo       repository.BookRepository
	ratingRepo     repository.RatingRepository
	statusRepo     repository.StatusRepository
	comparisonRepo repository.ComparisonRepository
	recorder       ActivityRecorder
	sanitizer      NoteSanitizer
	metrics        MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとmetricsはnil許容（テスト用）。
func NewService(
	bookRepo repository.BookRepository,
	ratingRepo repository.RatingRepository,
	statusRepo repository.StatusRepository,
	comparisonRepo repository.ComparisonRepository,
	recorder ActivityRecorder,
	sanitizer NoteSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		bookRepo:       bookRepo,
		ratingRepo:     ratingRepo,
		statusRepo:     statusRepo,
		comparisonRepo: comparisonRepo,
		recorder:       recorder,
		sanitizer:      sanitizer,
		metrics:        metrics,
	}
}

// SaveRating は評価を保存し、永続化された評価を返す。
//
// 処理順序:
//  1. 入力検証（ストア呼び出し前に弾く）
//  2. 書籍のアップサート（共有books行の最新化）
//  3. 比較履歴からのスコア導出
//  4. 評価のアップサート（(user, book)で一意、再評価は上書き）
//  5. 読書状態のアップサートまたは解除
//  6. アクティビティ記録（失敗しても保存は巻き戻さない）
func (s *Service) SaveRating(ctx context.Context, userID string, input SaveRatingInput) (*model.Rating, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !input.Sentiment.Valid() {
		return nil, model.NewInvalidSentimentError(string(input.Sentiment))
	}
	if input.Book.ID == "" || input.Book.Title == "" {
		return nil, model.NewInvalidBookError("IDまたはタイトルが空です")
	}
	if input.ReadingStatus != nil && !input.ReadingStatus.Valid() {
		return nil, model.NewInvalidStatusError(string(*input.ReadingStatus))
	}

	// 書籍を確保（共有行のtitle/author/cover_urlを最新化）
	if err := s.bookRepo.Upsert(ctx, input.Book); err != nil {
		return nil, fmt.Errorf("書籍の保存に失敗しました: %w", err)
	}

	score, err := s.deriveScore(ctx, userID, input.Sentiment, input.Book.ID)
	if err != nil {
		return nil, err
	}

	note := input.Note
	if s.sanitizer != nil {
		note = s.sanitizer.Sanitize(note)
	}

	saved, err := s.ratingRepo.Upsert(ctx, &model.Rating{
		UserID:        userID,
		BookID:        input.Book.ID,
		Sentiment:     input.Sentiment,
		Score:         score,
		Note:          note,
		IsNotePrivate: input.IsNotePrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("評価の保存に失敗しました: %w", err)
	}

	if input.ReadingStatus != nil {
		if err := s.statusRepo.Upsert(ctx, userID, input.Book.ID, *input.ReadingStatus); err != nil {
			return nil, fmt.Errorf("読書状態の保存に失敗しました: %w", err)
		}
	} else {
		if err := s.statusRepo.Delete(ctx, userID, input.Book.ID); err != nil {
			return nil, fmt.Errorf("読書状態の解除に失敗しました: %w", err)
		}
	}

	// アクティビティはベストエフォート。失敗はログのみで、評価保存は成功扱いのまま。
	s.recordActivity(ctx, userID, input.Book.ID, model.ActivityRated, &saved.ID)
	if input.ReadingStatus != nil {
		s.recordActivity(ctx, userID, input.Book.ID, model.ActivityStatusChanged, nil)
	}

	if s.metrics != nil {
		s.metrics.RecordRatingSaved(string(input.Sentiment))
	}

	slog.Info("評価を保存しました",
		slog.String("user_id", userID),
		slog.String("book_id", input.Book.ID),
		slog.String("sentiment", string(input.Sentiment)),
		slog.Float64("score", saved.Score),
	)

	return saved, nil
}

// GetBookRatingState は書籍詳細向けに評価と読書状態をまとめて返す。
// どちらも未登録はエラーではなく、nilフィールドとして表現される。
func (s *Service) GetBookRatingState(ctx context.Context, userID, bookID string) (*model.BookRatingState, error) {
	rating, err := s.ratingRepo.FindByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}

	status, err := s.statusRepo.FindByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("読書状態の取得に失敗しました: %w", err)
	}

	state := &model.BookRatingState{
		ReadingStatus: status,
	}
	if rating != nil {
		sentiment := rating.Sentiment
		score := rating.Score
		state.Sentiment = &sentiment
		state.Score = &score
		state.Note = rating.Note
		state.IsNotePrivate = rating.IsNotePrivate
	}

	return state, nil
}

// SetReadingStatus は読書状態のみを更新し、変更アクティビティを記録する。
// statusがnilの場合は解除する。
func (s *Service) SetReadingStatus(ctx context.Context, userID, bookID string, status *model.ReadingStatus) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if status != nil && !status.Valid() {
		return model.NewInvalidStatusError(string(*status))
	}

	if status == nil {
		if err := s.statusRepo.Delete(ctx, userID, bookID); err != nil {
			return fmt.Errorf("読書状態の解除に失敗しました: %w", err)
		}
		return nil
	}

	if err := s.statusRepo.Upsert(ctx, userID, bookID, *status); err != nil {
		return fmt.Errorf("読書状態の保存に失敗しました: %w", err)
	}

	s.recordActivity(ctx, userID, bookID, model.ActivityStatusChanged, nil)
	return nil
}

// RescoreBook は保存済みスコアを最新の比較履歴で再導出して上書きする。
// 保存済みスコアは比較履歴のキャッシュ投影であり、比較解決のたびに無効化される。
// 評価が存在しない書籍の場合は何もしない。
func (s *Service) RescoreBook(ctx context.Context, userID, bookID string) error {
	rating, err := s.ratingRepo.FindByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("評価の取得に失敗しました: %w", err)
	}
	if rating == nil {
		return nil
	}

	score, err := s.deriveScore(ctx, userID, rating.Sentiment, bookID)
	if err != nil {
		return err
	}

	if score == rating.Score {
		return nil
	}

	if err := s.ratingRepo.UpdateScore(ctx, userID, bookID, score); err != nil {
		return fmt.Errorf("スコアの更新に失敗しました: %w", err)
	}

	slog.Info("スコアを再計算しました",
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
		slog.Float64("old_score", rating.Score),
		slog.Float64("new_score", score),
	)

	return nil
}

// deriveScore は比較履歴を取得してスコアを導出する。
// 履歴の読み取りに失敗した場合は代替スコアを返さずエラーを伝播する。
func (s *Service) deriveScore(ctx context.Context, userID string, sentiment model.Sentiment, bookID string) (float64, error) {
	start := time.Now()

	comparisons, err := s.comparisonRepo.ListInvolving(ctx, userID, bookID)
	if err != nil {
		return 0, fmt.Errorf("比較履歴の取得に失敗しました: %w", err)
	}

	score := DeriveScore(sentiment, bookID, comparisons)

	if s.metrics != nil {
		s.metrics.RecordDeriveDuration(time.Since(start))
	}

	return score, nil
}

// recordActivity はアクティビティをベストエフォートで記録する。
// 記録失敗は評価保存をブロックしないため、ログのみ残して握りつぶす。
func (s *Service) recordActivity(ctx context.Context, userID, bookID string, kind model.ActivityType, ratingID *string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, userID, bookID, kind, ratingID); err != nil {
		slog.Warn("アクティビティの記録に失敗しました",
			slog.String("user_id", userID),
			slog.String("book_id", bookID),
			slog.String("activity_type", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}
