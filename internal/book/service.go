// Package book は書籍の検索と詳細取得のドメインロジックを提供する。
package book

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

const (
	// defaultSearchLimit は検索結果のデフォルト件数。
	defaultSearchLimit = 20
	// maxSearchLimit は検索結果の上限件数。
	maxSearchLimit = 50
)

// Detail は書籍詳細のレスポンス。
// カバー画像は取得済みの場合のみdata URLとして埋め込まれる。
type Detail struct {
	Book         model.BookSummary
	CoverDataURL string
}

// Service は書籍のサービス層。
type Service struct {
	bookRepo repository.BookRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(bookRepo repository.BookRepository) *Service {
	return &Service{bookRepo: bookRepo}
}

// Search はタイトルまたは著者の部分一致で書籍を検索する。
// クエリが空白のみの場合は空の結果を返す。
func (s *Service) Search(ctx context.Context, query string, limit int) ([]model.BookSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.BookSummary{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	books, err := s.bookRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("書籍の検索に失敗しました: %w", err)
	}

	summaries := make([]model.BookSummary, 0, len(books))
	for _, b := range books {
		summaries = append(summaries, model.BookSummary{
			ID:       b.ID,
			Title:    b.Title,
			Author:   b.Author,
			CoverURL: b.CoverURL,
		})
	}

	return summaries, nil
}

// GetBook は書籍詳細を返す。見つからない場合はBOOK_NOT_FOUNDエラーを返す。
func (s *Service) GetBook(ctx context.Context, bookID string) (*Detail, error) {
	if bookID == "" {
		return nil, model.NewInvalidBookError("IDが空です")
	}

	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("書籍の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(bookID)
	}

	detail := &Detail{
		Book: model.BookSummary{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			CoverURL: book.CoverURL,
		},
	}
	if len(book.CoverData) > 0 && book.CoverMime != "" {
		detail.CoverDataURL = fmt.Sprintf("data:%s;base64,%s", book.CoverMime, base64.StdEncoding.EncodeToString(book.CoverData))
	}

	return detail, nil
}
