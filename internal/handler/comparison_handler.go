package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookman/internal/comparison"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// ComparisonServiceInterface は比較ハンドラーが必要とするサービスインターフェース。
type ComparisonServiceInterface interface {
	// NextPrompts は指定書籍に対する比較プロンプトを最大2件返す。
	NextPrompts(ctx context.Context, userID string, current model.BookSummary) ([]model.ComparisonPrompt, error)
	// RecordOutcome は比較結果を追記し、両書籍のスコアを再導出する。
	RecordOutcome(ctx context.Context, userID string, input comparison.RecordOutcomeInput) (*model.Comparison, error)
}

// ComparisonHandler はペア比較のHTTPハンドラー。
// プロンプト取得には書籍の書誌情報が必要なため、書籍サービスにも依存する。
type ComparisonHandler struct {
	service     ComparisonServiceInterface
	bookService BookServiceInterface
}

// NewComparisonHandler はComparisonHandlerを生成する。
func NewComparisonHandler(service ComparisonServiceInterface, bookService BookServiceInterface) *ComparisonHandler {
	return &ComparisonHandler{
		service:     service,
		bookService: bookService,
	}
}

// --- リクエスト・レスポンス型 ---

// promptResponse は比較プロンプトのレスポンス。
type promptResponse struct {
	ID        string              `json:"id"`
	LeftBook  bookSummaryResponse `json:"left_book"`
	RightBook bookSummaryResponse `json:"right_book"`
}

// promptListResponse は比較プロンプト一覧のレスポンス。
type promptListResponse struct {
	Prompts []promptResponse `json:"prompts"`
}

// recordOutcomeRequest は比較結果記録リクエストのボディ。
// 書籍は未登録の場合に備えて書誌情報ごと受け取る。
type recordOutcomeRequest struct {
	LeftBook  bookSummaryRequest `json:"left_book"`
	RightBook bookSummaryRequest `json:"right_book"`
	Winner    string             `json:"winner"`
}

// bookSummaryRequest はリクエストボディ内の書籍サマリー。
type bookSummaryRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url,omitempty"`
}

// comparisonResponse は記録済み比較のレスポンス。
type comparisonResponse struct {
	ID          string    `json:"id"`
	LeftBookID  string    `json:"left_book_id"`
	RightBookID string    `json:"right_book_id"`
	Winner      string    `json:"winner"`
	CreatedAt   time.Time `json:"created_at"`
}

// NextPrompts は指定書籍に対する比較プロンプトを取得する。
// GET /api/books/:id/prompts
func (h *ComparisonHandler) NextPrompts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	// 評価保存直後に呼ばれるため、書籍はアップサート済みの前提
	detail, err := h.bookService.GetBook(r.Context(), bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	prompts, err := h.service.NextPrompts(r.Context(), userID, detail.Book)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := promptListResponse{Prompts: make([]promptResponse, len(prompts))}
	for i, p := range prompts {
		resp.Prompts[i] = promptResponse{
			ID:        p.ID,
			LeftBook:  toBookSummaryResponse(p.LeftBook),
			RightBook: toBookSummaryResponse(p.RightBook),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RecordOutcome は比較結果を記録する。
// POST /api/comparisons
func (h *ComparisonHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	var req recordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	recorded, err := h.service.RecordOutcome(r.Context(), userID, comparison.RecordOutcomeInput{
		LeftBook:  toBookSummary(req.LeftBook),
		RightBook: toBookSummary(req.RightBook),
		Winner:    model.ComparisonWinner(req.Winner),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comparisonResponse{
		ID:          recorded.ID,
		LeftBookID:  recorded.LeftBookID,
		RightBookID: recorded.RightBookID,
		Winner:      string(recorded.Winner),
		CreatedAt:   recorded.CreatedAt,
	})
}

// toBookSummary はリクエストボディの書籍サマリーをドメインモデルに変換する。
func toBookSummary(req bookSummaryRequest) model.BookSummary {
	return model.BookSummary{
		ID:       req.ID,
		Title:    req.Title,
		Author:   req.Author,
		CoverURL: req.CoverURL,
	}
}
