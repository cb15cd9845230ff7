package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bookman/internal/book"
	"github.com/hitoshi/bookman/internal/comparison"
	"github.com/hitoshi/bookman/internal/model"
)

// mockComparisonService はComparisonServiceInterfaceのモック実装。
type mockComparisonService struct {
	nextPromptsFn   func(ctx context.Context, userID string, current model.BookSummary) ([]model.ComparisonPrompt, error)
	recordOutcomeFn func(ctx context.Context, userID string, input comparison.RecordOutcomeInput) (*model.Comparison, error)
}

func (m *mockComparisonService) NextPrompts(ctx context.Context, userID string, current model.BookSummary) ([]model.ComparisonPrompt, error) {
	if m.nextPromptsFn != nil {
		return m.nextPromptsFn(ctx, userID, current)
	}
	return []model.ComparisonPrompt{}, nil
}

func (m *mockComparisonService) RecordOutcome(ctx context.Context, userID string, input comparison.RecordOutcomeInput) (*model.Comparison, error) {
	if m.recordOutcomeFn != nil {
		return m.recordOutcomeFn(ctx, userID, input)
	}
	return &model.Comparison{}, nil
}

// --- GET /api/books/:id/prompts テスト ---

func TestComparisonHandler_NextPrompts_Success(t *testing.T) {
	current := model.BookSummary{ID: "book-1", Title: "こころ", Author: "夏目漱石"}
	bookSvc := &mockBookService{
		getBookFn: func(ctx context.Context, bookID string) (*book.Detail, error) {
			return &book.Detail{Book: current}, nil
		},
	}
	svc := &mockComparisonService{
		nextPromptsFn: func(ctx context.Context, userID string, got model.BookSummary) ([]model.ComparisonPrompt, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want user-123", userID)
			}
			if got.ID != "book-1" {
				t.Errorf("current book ID = %q, want book-1", got.ID)
			}
			return []model.ComparisonPrompt{
				{
					ID:        model.NewPromptID("book-1", "book-2"),
					LeftBook:  current,
					RightBook: model.BookSummary{ID: "book-2", Title: "坊っちゃん"},
				},
				{
					ID:        model.NewPromptID("book-1", "book-3"),
					LeftBook:  current,
					RightBook: model.BookSummary{ID: "book-3", Title: "三四郎"},
				},
			}, nil
		},
	}

	h := NewComparisonHandler(svc, bookSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/books/book-1/prompts", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "book-1")
	w := httptest.NewRecorder()

	h.NextPrompts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	prompts, ok := result["prompts"].([]interface{})
	if !ok {
		t.Fatal("expected prompts array in response")
	}
	if len(prompts) != 2 {
		t.Errorf("prompts length = %d, want 2", len(prompts))
	}

	first, ok := prompts[0].(map[string]interface{})
	if !ok {
		t.Fatal("expected prompt object")
	}
	if first["id"] != "cmp-book-1-book-2" {
		t.Errorf("prompt id = %v, want cmp-book-1-book-2", first["id"])
	}
}

func TestComparisonHandler_NextPrompts_BookNotFound(t *testing.T) {
	h := NewComparisonHandler(&mockComparisonService{}, &mockBookService{})

	req := httptest.NewRequest(http.MethodGet, "/api/books/missing/prompts", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.NextPrompts(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /api/comparisons テスト ---

func TestComparisonHandler_RecordOutcome_Success(t *testing.T) {
	svc := &mockComparisonService{
		recordOutcomeFn: func(ctx context.Context, userID string, input comparison.RecordOutcomeInput) (*model.Comparison, error) {
			if input.LeftBook.ID != "book-1" || input.RightBook.ID != "book-2" {
				t.Errorf("book IDs = %q vs %q", input.LeftBook.ID, input.RightBook.ID)
			}
			if input.Winner != model.WinnerLeft {
				t.Errorf("winner = %q, want left", input.Winner)
			}
			return &model.Comparison{
				ID:          "comparison-1",
				UserID:      userID,
				LeftBookID:  input.LeftBook.ID,
				RightBookID: input.RightBook.ID,
				Winner:      input.Winner,
			}, nil
		},
	}

	h := NewComparisonHandler(svc, &mockBookService{})

	body := `{"left_book":{"id":"book-1","title":"こころ"},"right_book":{"id":"book-2","title":"坊っちゃん"},"winner":"left"}`
	req := httptest.NewRequest(http.MethodPost, "/api/comparisons", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RecordOutcome(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["id"] != "comparison-1" {
		t.Errorf("id = %v, want comparison-1", result["id"])
	}
	if result["winner"] != "left" {
		t.Errorf("winner = %v, want left", result["winner"])
	}
}

func TestComparisonHandler_RecordOutcome_InvalidWinner(t *testing.T) {
	svc := &mockComparisonService{
		recordOutcomeFn: func(ctx context.Context, userID string, input comparison.RecordOutcomeInput) (*model.Comparison, error) {
			return nil, model.NewInvalidSelectionError(string(input.Winner))
		},
	}

	h := NewComparisonHandler(svc, &mockBookService{})

	body := `{"left_book":{"id":"book-1"},"right_book":{"id":"book-2"},"winner":"draw"}`
	req := httptest.NewRequest(http.MethodPost, "/api/comparisons", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RecordOutcome(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidSelection {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidSelection)
	}
}

func TestComparisonHandler_RecordOutcome_InvalidBody(t *testing.T) {
	h := NewComparisonHandler(&mockComparisonService{}, &mockBookService{})

	req := httptest.NewRequest(http.MethodPost, "/api/comparisons", bytes.NewBufferString(`not json`))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RecordOutcome(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
