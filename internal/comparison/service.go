// Package comparison はペア比較プロンプトの選定と比較結果の記録を提供する。
package comparison

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// maxPrompts は一度に提示する比較プロンプトの上限。
// 候補は現在の書籍を除く直近評価から選ぶため、提示数は0〜2件になる。
const maxPrompts = 2

// Rescorer は比較解決後のスコア再計算インターフェース。
// 保存済みスコアは比較履歴の投影であり、新しい比較が入るたびに両側の書籍で無効化される。
type Rescorer interface {
	RescoreBook(ctx context.Context, userID, bookID string) error
}

// MetricsRecorder は比較フローのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordPromptsServed(count int)
	RecordComparisonRecorded(winner string)
}

// RecordOutcomeInput は比較結果記録のリクエストパラメータ。
// 両側の書籍はまだストアに存在しない可能性があるため、IDだけでなく概要ごと受け取る。
type RecordOutcomeInput struct {
	LeftBook  model.BookSummary
	RightBook model.BookSummary
	Winner    model.ComparisonWinner
}

// Service はペア比較のサービス層。
type Service struct {
	bookRepo       repository.BookRepository
	ratingRepo     repository.RatingRepository
	comparisonRepo repository.ComparisonRepository
	rescorer       Rescorer
	metrics        MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil許容（テスト用）。
func NewService(
	bookRepo repository.BookRepository,
	ratingRepo repository.RatingRepository,
	comparisonRepo repository.ComparisonRepository,
	rescorer Rescorer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		bookRepo:       bookRepo,
		ratingRepo:     ratingRepo,
		comparisonRepo: comparisonRepo,
		rescorer:       rescorer,
		metrics:        metrics,
	}
}

// NextPrompts は評価直後に提示する比較プロンプトを最大2件返す。
//
// 候補は現在の書籍を除く直近評価の書籍から評価日時の降順で選ぶ。
// 評価済みの書籍が他にない場合は空を返す（比較はスキップ可能なオプション操作）。
func (s *Service) NextPrompts(ctx context.Context, userID string, current model.BookSummary) ([]model.ComparisonPrompt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if current.ID == "" {
		return nil, model.NewInvalidBookError("IDが空です")
	}

	candidateIDs, err := s.ratingRepo.ListRecentBookIDs(ctx, userID, current.ID, maxPrompts)
	if err != nil {
		return nil, fmt.Errorf("比較候補の取得に失敗しました: %w", err)
	}
	if len(candidateIDs) == 0 {
		return []model.ComparisonPrompt{}, nil
	}

	books, err := s.bookRepo.FindByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("比較候補の書籍取得に失敗しました: %w", err)
	}

	// ListRecentBookIDsの並び（評価日時の降順）を保つ。
	// 書籍行が消えている候補は黙って飛ばす。
	prompts := make([]model.ComparisonPrompt, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		book, ok := books[id]
		if !ok {
			continue
		}
		prompts = append(prompts, model.ComparisonPrompt{
			ID:       model.NewPromptID(current.ID, book.ID),
			LeftBook: current,
			RightBook: model.BookSummary{
				ID:       book.ID,
				Title:    book.Title,
				Author:   book.Author,
				CoverURL: book.CoverURL,
			},
		})
	}

	if s.metrics != nil {
		s.metrics.RecordPromptsServed(len(prompts))
	}

	return prompts, nil
}

// RecordOutcome は比較結果を追記し、両側の書籍のスコア再計算をトリガーする。
//
// 比較行の追記が正になり、再計算はベストエフォート。再計算に失敗しても
// 履歴は残っているため、次の保存・比較時の導出で同じスコアに収束する。
func (s *Service) RecordOutcome(ctx context.Context, userID string, input RecordOutcomeInput) (*model.Comparison, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !input.Winner.Valid() {
		return nil, model.NewInvalidSelectionError(string(input.Winner))
	}
	if input.LeftBook.ID == "" || input.LeftBook.Title == "" {
		return nil, model.NewInvalidBookError("左側の書籍のIDまたはタイトルが空です")
	}
	if input.RightBook.ID == "" || input.RightBook.Title == "" {
		return nil, model.NewInvalidBookError("右側の書籍のIDまたはタイトルが空です")
	}
	if input.LeftBook.ID == input.RightBook.ID {
		return nil, model.NewInvalidSelectionError("同一書籍同士の比較")
	}

	// 両側の書籍を確保してから追記する（未評価側の書籍が未作成の場合がある）
	if err := s.bookRepo.Upsert(ctx, input.LeftBook); err != nil {
		return nil, fmt.Errorf("書籍の保存に失敗しました: %w", err)
	}
	if err := s.bookRepo.Upsert(ctx, input.RightBook); err != nil {
		return nil, fmt.Errorf("書籍の保存に失敗しました: %w", err)
	}

	comparison := &model.Comparison{
		UserID:      userID,
		LeftBookID:  input.LeftBook.ID,
		RightBookID: input.RightBook.ID,
		Winner:      input.Winner,
	}
	if err := s.comparisonRepo.Insert(ctx, comparison); err != nil {
		return nil, fmt.Errorf("比較結果の保存に失敗しました: %w", err)
	}

	s.rescore(ctx, userID, input.LeftBook.ID)
	s.rescore(ctx, userID, input.RightBook.ID)

	if s.metrics != nil {
		s.metrics.RecordComparisonRecorded(string(input.Winner))
	}

	slog.Info("比較結果を記録しました",
		slog.String("user_id", userID),
		slog.String("left_book_id", input.LeftBook.ID),
		slog.String("right_book_id", input.RightBook.ID),
		slog.String("winner", string(input.Winner)),
	)

	return comparison, nil
}

// rescore は片側の書籍のスコア再計算をベストエフォートで実行する。
func (s *Service) rescore(ctx context.Context, userID, bookID string) {
	if s.rescorer == nil {
		return
	}
	if err := s.rescorer.RescoreBook(ctx, userID, bookID); err != nil {
		slog.Warn("スコアの再計算に失敗しました",
			slog.String("user_id", userID),
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}
}
