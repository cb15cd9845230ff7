// Package cleanup は古いデータの自動削除ジョブを提供する。
// 保持期間（デフォルト180日）を超過したアクティビティと、
// 期限切れセッションを日次バッチで削除する。
// 評価・比較・読書状態はユーザーの資産のため削除対象外。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は古いアクティビティと期限切れセッションの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // アクティビティの保持日数（デフォルト: 180）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は180日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 180,
	}
}

// Run は保持期間を超過したアクティビティと期限切れセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedActivities, err := j.deleteOldActivities(ctx)
	if err != nil {
		return err
	}

	deletedSessions, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_activities", deletedActivities),
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteOldActivities はcreated_atがRetentionDays日前より古いアクティビティを削除する。
func (j *CleanupJob) deleteOldActivities(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM activities WHERE created_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("アクティビティクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return 0, fmt.Errorf("アクティビティクリーンアップの実行に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}

// deleteExpiredSessions はexpires_atを過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}
