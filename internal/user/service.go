// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// UserDataDeleter はユーザー単位の一括削除インターフェース。
// 評価・読書状態・比較・アクティビティの各リポジトリが実装する。
type UserDataDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	dataDeleters []UserDataDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
// dataDeletersは退会時にユーザーデータを消す順序で渡す。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	dataDeleters ...UserDataDeleter,
) *Service {
	return &Service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		dataDeleters: dataDeleters,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: 読書状態 → 比較 → 評価 → アクティビティ → sessions → user（+ CASCADE: identities）
// books は共有カタログとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. ユーザーデータを削除（読書状態、比較、評価、アクティビティ）
	for _, deleter := range s.dataDeleters {
		if deleter == nil {
			continue
		}
		if err := deleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("ユーザーデータの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
