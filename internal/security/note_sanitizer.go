// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NoteSanitizerService は評価ノートのサニタイズ機能のインターフェースを定義する。
// ノートは保存前にサニタイズされ、フィードや書籍詳細にそのまま表示される。
type NoteSanitizerService interface {
	// Sanitize はノート本文からHTMLタグをすべて除去し、プレーンテキストを返す。
	// ノートはHTMLではなくただのテキストとして扱うため、許可タグは一切ない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// noteSanitizer はNoteSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type noteSanitizer struct {
	policy *bluemonday.Policy
}

// NewNoteSanitizer はNoteSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全タグ・全属性を除去し、テキストノードだけを残す。
func NewNoteSanitizer() *noteSanitizer {
	return &noteSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はノート本文からHTMLタグを除去してプレーンテキストを返す。
// bluemondayはテキストをHTMLエンティティにエスケープして返すため、
// 保存用のプレーンテキストに戻してから前後の空白を落とす。
func (s *noteSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
