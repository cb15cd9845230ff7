package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bookman/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した評価リポジトリ。
type PostgresRatingRepo struct {
	db *sql.DB
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db *sql.DB) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

// FindByUserAndBook はユーザーIDと書籍IDで評価を取得する。見つからない場合はnilを返す。
func (r *PostgresRatingRepo) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.Rating, error) {
	rating := &model.Rating{}
	var note sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, book_id, sentiment, score, note, is_note_private, created_at, updated_at
		 FROM ratings WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	).Scan(
		&rating.ID, &rating.UserID, &rating.BookID,
		&rating.Sentiment, &rating.Score,
		&note, &rating.IsNotePrivate,
		&rating.CreatedAt, &rating.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}

	if note.Valid {
		rating.Note = note.String
	}

	return rating, nil
}

// Upsert は評価をUNIQUE(user_id, book_id)制約でアップサートする。
// 既存行がある場合はID・created_atを保持したまま上書きし、永続化後の行を返す。
func (r *PostgresRatingRepo) Upsert(ctx context.Context, rating *model.Rating) (*model.Rating, error) {
	now := time.Now().UTC()
	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}

	saved := &model.Rating{}
	var note sql.NullString

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO ratings (id, user_id, book_id, sentiment, score, note, is_note_private, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $8)
		 ON CONFLICT (user_id, book_id) DO UPDATE SET
		     sentiment = EXCLUDED.sentiment,
		     score = EXCLUDED.score,
		     note = EXCLUDED.note,
		     is_note_private = EXCLUDED.is_note_private,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, book_id, sentiment, score, note, is_note_private, created_at, updated_at`,
		rating.ID, rating.UserID, rating.BookID,
		rating.Sentiment, rating.Score,
		rating.Note, rating.IsNotePrivate,
		now,
	).Scan(
		&saved.ID, &saved.UserID, &saved.BookID,
		&saved.Sentiment, &saved.Score,
		&note, &saved.IsNotePrivate,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("評価の保存に失敗しました: %w", err)
	}

	if note.Valid {
		saved.Note = note.String
	}

	return saved, nil
}

// UpdateScore は既存評価の数値スコアのみを更新する。
// 比較解決後の投影更新用であり、評価が存在しない場合は何もしない。
func (r *PostgresRatingRepo) UpdateScore(ctx context.Context, userID, bookID string, score float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ratings SET score = $3, updated_at = now()
		 WHERE user_id = $1 AND book_id = $2`,
		userID, bookID, score,
	)
	if err != nil {
		return fmt.Errorf("スコアの更新に失敗しました: %w", err)
	}
	return nil
}

// ListRecentBookIDs は指定書籍を除くユーザーの直近評価の書籍IDを
// 評価日時の降順で返す。
func (r *PostgresRatingRepo) ListRecentBookIDs(ctx context.Context, userID, excludeBookID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id FROM ratings
		 WHERE user_id = $1 AND book_id <> $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, excludeBookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("直近評価の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var bookIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book ID: %w", err)
		}
		bookIDs = append(bookIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate book IDs: %w", err)
	}

	return bookIDs, nil
}

// DeleteByUserID はユーザーの全評価を削除する。
func (r *PostgresRatingRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの評価の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RatingRepository = (*PostgresRatingRepo)(nil)
