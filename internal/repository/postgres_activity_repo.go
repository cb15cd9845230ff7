package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bookman/internal/model"
)

// PostgresActivityRepo はPostgreSQLを使用したアクティビティリポジトリ。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// Insert はアクティビティを1行追記する。
func (r *PostgresActivityRepo) Insert(ctx context.Context, activity *model.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, actor_user_id, book_id, activity_type, rating_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		activity.ID, activity.ActorUserID, activity.BookID,
		activity.Type, activity.RatingID, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("アクティビティの保存に失敗しました: %w", err)
	}

	return nil
}

// ListRecent はアクティビティをユーザー・書籍・評価・読書状態と結合し、
// created_at降順でカーソルベースページネーションで返す。
// cursorがゼロ値の場合は先頭から取得する。
// 評価・読書状態は存在する場合のみ埋まる（LEFT JOIN）。
func (r *PostgresActivityRepo) ListRecent(ctx context.Context, cursor time.Time, limit int) ([]model.FeedItem, error) {
	if cursor.IsZero() {
		cursor = time.Now().UTC().Add(time.Second)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.actor_user_id, u.name,
		        b.id, b.title, b.author, b.cover_url,
		        a.activity_type, a.created_at,
		        r.sentiment, r.score, r.note, r.is_note_private,
		        s.status
		 FROM activities a
		 JOIN users u ON u.id = a.actor_user_id
		 JOIN books b ON b.id = a.book_id
		 LEFT JOIN ratings r ON r.id = a.rating_id
		 LEFT JOIN book_statuses s ON s.user_id = a.actor_user_id AND s.book_id = a.book_id
		 WHERE a.created_at < $1
		 ORDER BY a.created_at DESC
		 LIMIT $2`,
		cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.FeedItem
	for rows.Next() {
		var (
			item          model.FeedItem
			coverURL      sql.NullString
			sentiment     sql.NullString
			score         sql.NullFloat64
			note          sql.NullString
			isNotePrivate sql.NullBool
			status        sql.NullString
		)

		err := rows.Scan(
			&item.ID, &item.ActorID, &item.ActorName,
			&item.Book.ID, &item.Book.Title, &item.Book.Author, &coverURL,
			&item.Type, &item.CreatedAt,
			&sentiment, &score, &note, &isNotePrivate,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}

		if coverURL.Valid {
			item.Book.CoverURL = coverURL.String
		}
		if sentiment.Valid {
			s := model.Sentiment(sentiment.String)
			item.Sentiment = &s
		}
		if score.Valid {
			v := score.Float64
			item.Score = &v
		}
		// 非公開ノートはフィードに露出させない。プレビュー整形はサービス層で行う。
		if note.Valid && isNotePrivate.Valid && !isNotePrivate.Bool {
			item.NotePreview = note.String
		}
		if status.Valid {
			st := model.ReadingStatus(status.String)
			item.ReadingStatus = &st
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feed items: %w", err)
	}

	return items, nil
}

// DeleteByUserID はユーザーの全アクティビティを削除する。
func (r *PostgresActivityRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM activities WHERE actor_user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーのアクティビティの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ActivityRepository = (*PostgresActivityRepo)(nil)
