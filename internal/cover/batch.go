package cover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/repository"
)

// BatchConfig はカバーバッチジョブの設定パラメータ。
// 環境変数から設定可能。
type BatchConfig struct {
	// BatchInterval はバッチジョブの実行間隔（デフォルト: 10分）。
	BatchInterval time.Duration
	// FetchInterval はカバー取得の最低間隔（デフォルト: 1秒）。
	FetchInterval time.Duration
	// MaxFetchesPerCycle は1サイクルあたりの最大取得数（デフォルト: 50）。
	MaxFetchesPerCycle int
}

// DefaultBatchConfig はデフォルトのバッチジョブ設定を返す。
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchInterval:      10 * time.Minute,
		FetchInterval:      1 * time.Second,
		MaxFetchesPerCycle: 50,
	}
}

// MetricsRecorder はカバーバッチのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordCoversFetched(count int)
}

// BatchJob はカバー画像のバッチ取得ジョブ。
// cover_urlを持つがカバー画像が未取得の書籍を定期的に走査し、
// 外部から画像を取得してbooks行に格納する。
type BatchJob struct {
	bookRepo          repository.BookRepository
	fetcher           FetcherService
	logger            *slog.Logger
	config            BatchConfig
	metrics           MetricsRecorder
	consecutiveErrors int
	backoffUntil      time.Time
}

// SetMetrics はメトリクスレコーダーを設定する。nilのままなら記録しない。
func (b *BatchJob) SetMetrics(metrics MetricsRecorder) {
	b.metrics = metrics
}

// NewBatchJob はBatchJobの新しいインスタンスを生成する。
func NewBatchJob(
	bookRepo repository.BookRepository,
	fetcher FetcherService,
	logger *slog.Logger,
	config BatchConfig,
) *BatchJob {
	return &BatchJob{
		bookRepo: bookRepo,
		fetcher:  fetcher,
		logger:   logger,
		config:   config,
	}
}

// Start はバッチジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (b *BatchJob) Start(ctx context.Context) {
	ticker := time.NewTicker(b.config.BatchInterval)
	defer ticker.Stop()

	b.logger.Info("カバーバッチジョブを開始しました",
		slog.Duration("batch_interval", b.config.BatchInterval),
		slog.Duration("fetch_interval", b.config.FetchInterval),
		slog.Int("max_fetches_per_cycle", b.config.MaxFetchesPerCycle),
	)

	// 起動直後に1回実行
	if err := b.RunOnce(ctx); err != nil {
		b.logger.Error("カバーバッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("カバーバッチジョブを停止しました")
			return
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil {
				b.logger.Error("カバーバッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回のバッチサイクルを実行する。
// 取得対象の書籍を走査し、1冊ずつカバー画像を取得して保存する。
func (b *BatchJob) RunOnce(ctx context.Context) error {
	start := time.Now()

	// バックオフ中の場合はスキップ
	if !b.backoffUntil.IsZero() && time.Now().Before(b.backoffUntil) {
		b.logger.Info("カバーバッチジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", b.backoffUntil),
		)
		return nil
	}

	books, err := b.bookRepo.ListNeedingCoverFetch(ctx, b.config.MaxFetchesPerCycle)
	if err != nil {
		return fmt.Errorf("カバー取得対象書籍の取得に失敗しました: %w", err)
	}

	if len(books) == 0 {
		b.logger.Info("カバー取得対象の書籍はありません")
		return nil
	}

	b.logger.Info("カバーバッチサイクルを開始します",
		slog.Int("target_books", len(books)),
	)

	var fetchedCount int
	var hadError bool

	for i, book := range books {
		// コンテキストチェック
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 取得インターバル（初回は待たない）
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.config.FetchInterval):
			}
		}

		data, mimeType, err := b.fetcher.FetchCover(ctx, book.CoverURL)
		if err != nil {
			b.logger.Error("カバー画像の取得に失敗しました",
				slog.String("book_id", book.ID),
				slog.String("url", book.CoverURL),
				slog.String("error", err.Error()),
			)
			hadError = true
			b.consecutiveErrors++
			backoff := b.calculateErrorBackoff(b.consecutiveErrors)
			if backoff > 0 {
				b.backoffUntil = time.Now().Add(backoff)
				b.logger.Warn("連続エラーによりバックオフを適用します",
					slog.Int("consecutive_errors", b.consecutiveErrors),
					slog.Duration("backoff_duration", backoff),
				)
				break
			}
			continue
		}

		// 取得できなかった書籍（SSRFブロック・非画像・サイズ超過）はスキップし、
		// 次のサイクルで再試行する。
		if data == nil {
			continue
		}

		if err := b.bookRepo.UpdateCoverData(ctx, book.ID, data, mimeType); err != nil {
			b.logger.Error("カバー画像の保存に失敗しました",
				slog.String("book_id", book.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		fetchedCount++
	}

	// エラーがなければ連続エラーカウントをリセット
	if !hadError {
		b.consecutiveErrors = 0
		b.backoffUntil = time.Time{}
	}

	if b.metrics != nil && fetchedCount > 0 {
		b.metrics.RecordCoversFetched(fetchedCount)
	}

	duration := time.Since(start)
	b.logger.Info("カバーバッチサイクルが完了しました",
		slog.Int("fetched_books", fetchedCount),
		slog.Int("target_books", len(books)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func (b *BatchJob) calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
