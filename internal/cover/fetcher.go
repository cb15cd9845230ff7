// Package cover は書籍カバー画像の取得とバッチ更新を提供する。
package cover

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxCoverSize はカバー画像の最大サイズ（2MB）。
const maxCoverSize = 2 * 1024 * 1024

// coverTimeout はカバー画像取得のタイムアウト。
const coverTimeout = 10 * time.Second

// SSRFValidator はカバー画像取得前のURL検証インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// FetcherService はカバー画像取得のインターフェース。
type FetcherService interface {
	// FetchCover は指定URLからカバー画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	// 失敗した書籍は次のバッチサイクルで再試行される。
	FetchCover(ctx context.Context, coverURL string) (data []byte, mimeType string, err error)
}

// Fetcher はカバー画像取得機能の実装。
type Fetcher struct {
	ssrfGuard SSRFValidator
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(ssrfGuard SSRFValidator) *Fetcher {
	return &Fetcher{
		ssrfGuard: ssrfGuard,
	}
}

// FetchCover は指定URLからカバー画像を取得する。
// カバーURLはクライアント入力由来のため、SSRF検証を通過したものだけを取得する。
func (f *Fetcher) FetchCover(ctx context.Context, coverURL string) ([]byte, string, error) {
	if coverURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(coverURL); err != nil {
			slog.Warn("カバー取得: SSRFブロック", "url", coverURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		slog.Warn("カバー取得: リクエスト作成失敗", "url", coverURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Bookman/1.0 Book Tracker")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("カバー取得: HTTPリクエスト失敗", "url", coverURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外はカバー取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("カバー取得: HTTPステータス異常", "url", coverURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		slog.Warn("カバー取得: レスポンス読み取り失敗", "url", coverURL, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > maxCoverSize {
		slog.Warn("カバー取得: サイズ超過", "url", coverURL, "size", len(body))
		return nil, "", nil
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType := extractMimeType(contentType)

	// 画像でない場合はnilを返す
	if !isImageMime(mimeType) {
		slog.Warn("カバー取得: 画像以外のContent-Type", "url", coverURL, "contentType", contentType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *Fetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(coverTimeout)
	}
	return &http.Client{Timeout: coverTimeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ FetcherService = (*Fetcher)(nil)
