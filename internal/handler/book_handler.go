package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookman/internal/book"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// BookServiceInterface は書籍ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	// Search は書籍をタイトル・著者で検索する。
	Search(ctx context.Context, query string, limit int) ([]model.BookSummary, error)
	// GetBook は書籍詳細を返す。見つからない場合はエラーを返す。
	GetBook(ctx context.Context, bookID string) (*book.Detail, error)
}

// BookHandler は書籍カタログのHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// --- レスポンス型 ---

// bookSummaryResponse は書籍サマリーのレスポンス。
type bookSummaryResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url,omitempty"`
}

// bookSearchResponse は書籍検索のレスポンス。
type bookSearchResponse struct {
	Books []bookSummaryResponse `json:"books"`
}

// bookDetailResponse は書籍詳細のレスポンス。
// CoverDataURLはカバーバッチが取得済みの場合のみ設定されるdata URL。
type bookDetailResponse struct {
	bookSummaryResponse
	CoverDataURL string `json:"cover_data_url,omitempty"`
}

// Search は書籍を検索する。
// GET /api/books/search?q=xxx&limit=20
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	query := r.URL.Query().Get("q")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}

	books, err := h.service.Search(r.Context(), query, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := bookSearchResponse{Books: make([]bookSummaryResponse, len(books))}
	for i, b := range books {
		resp.Books[i] = toBookSummaryResponse(b)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetBook は書籍詳細を取得する。
// GET /api/books/:id
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	detail, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookDetailResponse{
		bookSummaryResponse: toBookSummaryResponse(detail.Book),
		CoverDataURL:        detail.CoverDataURL,
	})
}

// toBookSummaryResponse はmodel.BookSummaryからAPIレスポンスに変換する。
func toBookSummaryResponse(b model.BookSummary) bookSummaryResponse {
	return bookSummaryResponse{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		CoverURL: b.CoverURL,
	}
}
