package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHTTPStatusRecorder はHTTPStatusRecorderのモック。
type mockHTTPStatusRecorder struct {
	recorded []int
}

func (m *mockHTTPStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.recorded = append(m.recorded, statusCode)
}

// TestLoggingMiddleware_LogsRequest はリクエストのログにmethod・path・statusが
// 含まれることをテストする。
func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/comparisons", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", logEntry["msg"])
	}
	if logEntry["method"] != "POST" {
		t.Errorf("method = %v, want POST", logEntry["method"])
	}
	if logEntry["path"] != "/api/comparisons" {
		t.Errorf("path = %v, want /api/comparisons", logEntry["path"])
	}
	if logEntry["status"] != float64(201) {
		t.Errorf("status = %v, want 201", logEntry["status"])
	}
	if _, ok := logEntry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
}

// TestLoggingMiddleware_IncludesUserID は認証済みリクエストでuser_idが
// ログに含まれることをテストする。
func TestLoggingMiddleware_IncludesUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if logEntry["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", logEntry["user_id"])
	}
}

// TestLoggingMiddleware_ErrorLevelFor5xx は5xxレスポンスがERRORレベルで
// 記録されることをテストする。
func TestLoggingMiddleware_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if logEntry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", logEntry["level"])
	}
}

// TestLoggingMiddleware_WarnLevelFor4xx は4xxレスポンスがWARNレベルで
// 記録されることをテストする。
func TestLoggingMiddleware_WarnLevelFor4xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/books/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if logEntry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", logEntry["level"])
	}
}

// TestLoggingMiddleware_RecordsStatusMetric はステータスコードがメトリクスに
// 記録されることをテストする。
func TestLoggingMiddleware_RecordsStatusMetric(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := &mockHTTPStatusRecorder{}

	mw := NewLoggingMiddleware(logger, metrics)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(metrics.recorded) != 1 || metrics.recorded[0] != http.StatusTooManyRequests {
		t.Errorf("recorded = %v, want [429]", metrics.recorded)
	}
}

// TestStatusRecorder_DefaultsTo200 はWriteHeader未呼び出し時に200が記録される
// ことをテストする。
func TestStatusRecorder_DefaultsTo200(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if logEntry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", logEntry["status"])
	}
}
