package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/bookman/internal/activity"
	"github.com/hitoshi/bookman/internal/middleware"
)

// defaultFeedPerPage はフィードの1回の取得件数（デフォルト）。
const defaultFeedPerPage = 20

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// ListFeed はアクティビティフィードをカーソルページネーション付きで返す。
	ListFeed(ctx context.Context, cursor string, limit int) (*activity.FeedResult, error)
}

// FeedHandler はアクティビティフィードのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// --- レスポンス型 ---

// feedItemResponse はフィード1件のレスポンス。
type feedItemResponse struct {
	ID            string              `json:"id"`
	ActorID       string              `json:"actor_id"`
	ActorName     string              `json:"actor_name"`
	Book          bookSummaryResponse `json:"book"`
	Type          string              `json:"type"`
	Sentiment     *string             `json:"sentiment,omitempty"`
	Score         *float64            `json:"score,omitempty"`
	NotePreview   string              `json:"note_preview,omitempty"`
	ReadingStatus *string             `json:"reading_status,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// feedListResponse はフィード一覧のレスポンス。
type feedListResponse struct {
	Items      []feedItemResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// ListFeed はアクティビティフィードを取得する。
// GET /api/feed?cursor=xxx
func (h *FeedHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, newUnauthorizedError())
		return
	}

	cursor := r.URL.Query().Get("cursor")

	result, err := h.service.ListFeed(r.Context(), cursor, defaultFeedPerPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := feedListResponse{
		Items:      make([]feedItemResponse, len(result.Items)),
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	}
	for i, item := range result.Items {
		entry := feedItemResponse{
			ID:          item.ID,
			ActorID:     item.ActorID,
			ActorName:   item.ActorName,
			Book:        toBookSummaryResponse(item.Book),
			Type:        string(item.Type),
			NotePreview: item.NotePreview,
			CreatedAt:   item.CreatedAt,
		}
		if item.Sentiment != nil {
			s := string(*item.Sentiment)
			entry.Sentiment = &s
		}
		entry.Score = item.Score
		if item.ReadingStatus != nil {
			s := string(*item.ReadingStatus)
			entry.ReadingStatus = &s
		}
		resp.Items[i] = entry
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
