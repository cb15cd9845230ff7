package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// TestGoogleOAuthProvider_GetLoginURL は認証URLに必要なパラメータが含まれることをテストする。
func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-123",
		RedirectURL: "https://bookman.example.com/auth/callback",
	})

	loginURL := p.GetLoginURL("state-abc")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-123" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Errorf("scope = %q, want email included", q.Get("scope"))
	}
}

// TestGoogleOAuthProvider_ExchangeCode はコード交換とユーザー情報取得の成功フローをテストする。
func TestGoogleOAuthProvider_ExchangeCode(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %q, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("code") != "auth-code" {
			t.Errorf("code = %q, want auth-code", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token-xyz", "token_type": "Bearer"})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-xyz" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sub":   "google-sub-123",
			"email": "hitoshi@example.com",
			"name":  "Hitoshi",
		})
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "client-123",
		ClientSecret: "secret",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	info, err := p.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if info.ProviderUserID != "google-sub-123" || info.Email != "hitoshi@example.com" || info.Provider != "google" {
		t.Errorf("user info = %+v", info)
	}
}

// TestGoogleOAuthProvider_ExchangeCode_TokenError はトークンエンドポイントの
// エラーレスポンスが失敗として扱われることをテストする。
func TestGoogleOAuthProvider_ExchangeCode_TokenError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{TokenURL: tokenServer.URL})

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// TestGoogleOAuthProvider_ExchangeCode_EmptySub はsubのないユーザー情報を
// 拒否することをテストする。
func TestGoogleOAuthProvider_ExchangeCode_EmptySub(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token-xyz"})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"email": "no-sub@example.com"})
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	if _, err := p.ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Fatal("expected error for missing sub")
	}
}
