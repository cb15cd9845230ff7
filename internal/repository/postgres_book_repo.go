package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/bookman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した書籍リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, author, cover_url, cover_data, cover_mime, created_at, updated_at
		 FROM books WHERE id = $1`,
		id,
	)

	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	return book, nil
}

// FindByIDs は指定IDの書籍をまとめて取得し、IDをキーとするマップで返す。
// 見つからないIDはマップに含まれない。
func (r *PostgresBookRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Book, error) {
	if len(ids) == 0 {
		return map[string]*model.Book{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, cover_url, cover_data, cover_mime, created_at, updated_at
		 FROM books WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find books by IDs: %w", err)
	}
	defer rows.Close()

	books := make(map[string]*model.Book, len(ids))
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books[book.ID] = book
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// Upsert は書籍を作成または更新する。
// title/author/cover_urlを最新化し、cover_urlが変わった場合は
// 取得済みカバー画像を破棄してバッチに再取得させる。
func (r *PostgresBookRepo) Upsert(ctx context.Context, book model.BookSummary) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, cover_url, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     author = EXCLUDED.author,
		     cover_url = EXCLUDED.cover_url,
		     cover_data = CASE
		         WHEN books.cover_url IS DISTINCT FROM EXCLUDED.cover_url THEN NULL
		         ELSE books.cover_data
		     END,
		     cover_mime = CASE
		         WHEN books.cover_url IS DISTINCT FROM EXCLUDED.cover_url THEN NULL
		         ELSE books.cover_mime
		     END,
		     updated_at = EXCLUDED.updated_at`,
		book.ID, book.Title, book.Author, book.CoverURL, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}

	return nil
}

// Search はタイトルまたは著者の部分一致（大文字小文字を区別しない）で書籍を検索する。
func (r *PostgresBookRepo) Search(ctx context.Context, query string, limit int) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, cover_url, cover_data, cover_mime, created_at, updated_at
		 FROM books
		 WHERE title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%'
		 ORDER BY title ASC
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// ListNeedingCoverFetch はcover_urlを持つがカバー画像が未取得の書籍を返す。
// 更新日時の古い順に処理する。
func (r *PostgresBookRepo) ListNeedingCoverFetch(ctx context.Context, limit int) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, cover_url, cover_data, cover_mime, created_at, updated_at
		 FROM books
		 WHERE cover_url IS NOT NULL AND cover_data IS NULL
		 ORDER BY updated_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("カバー取得対象書籍の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// UpdateCoverData は書籍のカバー画像データとMIMEタイプを更新する。
func (r *PostgresBookRepo) UpdateCoverData(ctx context.Context, bookID string, data []byte, mimeType string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE books SET cover_data = $2, cover_mime = NULLIF($3, ''), updated_at = now()
		 WHERE id = $1`,
		bookID, data, mimeType,
	)
	if err != nil {
		return fmt.Errorf("カバー画像の更新に失敗しました: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook は1行を読み取りBookに変換する。NULL列はゼロ値に写像する。
func scanBook(row rowScanner) (*model.Book, error) {
	book := &model.Book{}
	var coverURL, coverMime sql.NullString

	err := row.Scan(
		&book.ID, &book.Title, &book.Author,
		&coverURL, &book.CoverData, &coverMime,
		&book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if coverURL.Valid {
		book.CoverURL = coverURL.String
	}
	if coverMime.Valid {
		book.CoverMime = coverMime.String
	}

	return book, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
