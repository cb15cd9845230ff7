// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, rating, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSentiment = "INVALID_SENTIMENT"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeInvalidSelection = "INVALID_SELECTION"
	ErrCodeInvalidBook      = "INVALID_BOOK"
	ErrCodeInvalidCursor    = "INVALID_CURSOR"
	ErrCodeRatingNotFound   = "RATING_NOT_FOUND"
	ErrCodeBookNotFound     = "BOOK_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewInvalidSentimentError は未定義のセンチメントに対するエラーを生成する。
func NewInvalidSentimentError(sentiment string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSentiment,
		Message:  fmt.Sprintf("無効な評価です: %s", sentiment),
		Category: "validation",
		Action:   "評価には Loved、Liked、Okay のいずれかを指定してください。",
	}
}

// NewInvalidStatusError は未定義の読書状態に対するエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な読書状態です: %s", status),
		Category: "validation",
		Action:   "読書状態には WantToRead、Reading、Read のいずれかを指定してください。",
	}
}

// NewInvalidSelectionError は未定義の比較結果に対するエラーを生成する。
func NewInvalidSelectionError(selection string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSelection,
		Message:  fmt.Sprintf("無効な比較結果です: %s", selection),
		Category: "validation",
		Action:   "比較結果には left、right、tie のいずれかを指定してください。",
	}
}

// NewInvalidBookError は書籍情報が不足している場合のエラーを生成する。
func NewInvalidBookError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBook,
		Message:  fmt.Sprintf("書籍情報が不正です: %s", reason),
		Category: "validation",
		Action:   "書籍のID・タイトル・著者を指定してください。",
	}
}

// NewInvalidCursorError は不正なページネーションカーソルに対するエラーを生成する。
func NewInvalidCursorError(cursor string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無効なカーソル値です: %s", cursor),
		Category: "validation",
		Action:   "カーソルにはレスポンスのnext_cursorをそのまま指定してください。",
	}
}

// NewRatingNotFoundError は評価未登録エラーを生成する。
func NewRatingNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeRatingNotFound,
		Message:  fmt.Sprintf("指定された書籍の評価が見つかりません: %s", bookID),
		Category: "rating",
		Action:   "書籍IDを確認してください。",
	}
}

// NewBookNotFoundError は書籍未登録エラーを生成する。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された書籍が見つかりません: %s", bookID),
		Category: "rating",
		Action:   "書籍IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
