package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/activity"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/rating"
)

// mockRouterSessionFinder はルーターテスト用のSessionFinder。
type mockRouterSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockRouterSessionFinder) FindByID(_ context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

// mockHealthChecker はHealthCheckerのモック。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping() error { return m.err }

func newTestRouter(t *testing.T, health HealthChecker) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	finder := &mockRouterSessionFinder{
		sessions: map[string]*model.Session{
			"sess-valid": {ID: "sess-valid", UserID: "user-123", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}

	return NewRouter(&RouterDeps{
		SessionFinder:     finder,
		CORSAllowedOrigin: "https://bookman.example.com",
		RateLimiter:       rl,
		HealthChecker:     health,

		AuthService: &mockAuthService{},
		AuthConfig:  testAuthConfig(),

		BookService: &mockBookService{},
		RatingService: &mockRatingService{
			saveFn: func(ctx context.Context, userID string, input rating.SaveRatingInput) (*model.Rating, error) {
				return &model.Rating{ID: "rating-1", BookID: input.Book.ID, Sentiment: input.Sentiment, Score: 9.0}, nil
			},
		},
		ComparisonService: &mockComparisonService{},
		FeedService: &mockFeedService{
			listFeedFn: func(ctx context.Context, cursor string, limit int) (*activity.FeedResult, error) {
				return &activity.FeedResult{}, nil
			},
		},
		UserService: &mockUserService{},
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_Health_Unhealthy(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_APIWithValidSession(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-valid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_SaveRatingRoute(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	body := `{"title":"こころ","author":"夏目漱石","sentiment":"Loved","reading_status":null}`
	req := httptest.NewRequest(http.MethodPut, "/api/books/book-1/rating", bytes.NewBufferString(body))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-valid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestRouter_AuthRoutesOutsideSession(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	// セッションなしでもOAuthフローは開始できる
	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://bookman.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
