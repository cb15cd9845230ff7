package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/rating"
)

// RatingServiceInterface は評価ハンドラーが必要とするサービスインターフェース。
type RatingServiceInterface interface {
	// SaveRating は評価を保存する。再評価は上書きになる。
	SaveRating(ctx context.Context, userID string, input rating.SaveRatingInput) (*model.Rating, error)
	// GetBookRatingState は書籍の評価と読書状態をまとめて返す。
	GetBookRatingState(ctx context.Context, userID, bookID string) (*model.BookRatingState, error)
	// SetReadingStatus は読書状態を更新する。nilは解除を意味する。
	SetReadingStatus(ctx context.Context, userID, bookID string, status *model.ReadingStatus) error
}

// RatingHandler は評価・読書状態のHTTPハンドラー。
type RatingHandler struct {
	service RatingServiceInterface
}

// NewRatingHandler はRatingHandlerを生成する。
func NewRatingHandler(service RatingServiceInterface) *RatingHandler {
	return &RatingHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// saveRatingRequest は評価保存リクエストのボディ。
// 書籍IDはURLパスから取得し、書誌情報はボディで受け取る。
type saveRatingRequest struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	CoverURL      string  `json:"cover_url,omitempty"`
	Sentiment     string  `json:"sentiment"`
	Note          string  `json:"note,omitempty"`
	IsNotePrivate bool    `json:"is_note_private,omitempty"`
	ReadingStatus *string `json:"reading_status"` // nullは状態の解除
}

// ratingResponse は保存済み評価のレスポンス。
type ratingResponse struct {
	ID            string    `json:"id"`
	BookID        string    `json:"book_id"`
	Sentiment     string    `json:"sentiment"`
	Score         float64   `json:"score"`
	Note          string    `json:"note,omitempty"`
	IsNotePrivate bool      `json:"is_note_private"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ratingStateResponse は書籍詳細向けの評価・読書状態レスポンス。
// 未評価・未設定のフィールドはnullになる。
type ratingStateResponse struct {
	Sentiment     *string  `json:"sentiment"`
	Score         *float64 `json:"score"`
	Note          string   `json:"note,omitempty"`
	IsNotePrivate bool     `json:"is_note_private"`
	ReadingStatus *string  `json:"reading_status"`
}

// readingStatusRequest は読書状態更新リクエストのボディ。
type readingStatusRequest struct {
	Status string `json:"status"`
}

// SaveRating は書籍の評価を保存する。
// PUT /api/books/:id/rating
func (h *RatingHandler) SaveRating(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	var req saveRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	input := rating.SaveRatingInput{
		Book: model.BookSummary{
			ID:       bookID,
			Title:    req.Title,
			Author:   req.Author,
			CoverURL: req.CoverURL,
		},
		Sentiment:     model.Sentiment(req.Sentiment),
		Note:          req.Note,
		IsNotePrivate: req.IsNotePrivate,
	}
	if req.ReadingStatus != nil {
		status := model.ReadingStatus(*req.ReadingStatus)
		input.ReadingStatus = &status
	}

	saved, err := h.service.SaveRating(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ratingResponse{
		ID:            saved.ID,
		BookID:        saved.BookID,
		Sentiment:     string(saved.Sentiment),
		Score:         saved.Score,
		Note:          saved.Note,
		IsNotePrivate: saved.IsNotePrivate,
		UpdatedAt:     saved.UpdatedAt,
	})
}

// GetRatingState は書籍の評価と読書状態を取得する。
// GET /api/books/:id/rating
func (h *RatingHandler) GetRatingState(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	state, err := h.service.GetBookRatingState(r.Context(), userID, bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := ratingStateResponse{
		Note:          state.Note,
		IsNotePrivate: state.IsNotePrivate,
	}
	if state.Sentiment != nil {
		s := string(*state.Sentiment)
		resp.Sentiment = &s
	}
	resp.Score = state.Score
	if state.ReadingStatus != nil {
		s := string(*state.ReadingStatus)
		resp.ReadingStatus = &s
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetReadingStatus は読書状態を設定する。
// PUT /api/books/:id/status
func (h *RatingHandler) SetReadingStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	var req readingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	status := model.ReadingStatus(req.Status)
	if err := h.service.SetReadingStatus(r.Context(), userID, bookID, &status); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearReadingStatus は読書状態を解除する。
// DELETE /api/books/:id/status
func (h *RatingHandler) ClearReadingStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	if err := h.service.SetReadingStatus(r.Context(), userID, bookID, nil); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// apiErrorResponse はAPIエラーレスポンスのJSON表現。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidSentiment,
		model.ErrCodeInvalidStatus,
		model.ErrCodeInvalidSelection,
		model.ErrCodeInvalidBook,
		model.ErrCodeInvalidCursor:
		return http.StatusBadRequest
	case model.ErrCodeRatingNotFound,
		model.ErrCodeBookNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// newUnauthorizedError は未認証エラーを生成する。
func newUnauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// newInvalidRequestError はリクエストボディ不正エラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
