package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookman/internal/middleware"
)

// HealthChecker はヘルスチェックが必要とするDB疎通確認のインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.HTTPStatusRecorder // nil許容

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nil許容

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 書籍カタログ
	BookService BookServiceInterface

	// 評価・読書状態
	RatingService RatingServiceInterface

	// ペア比較
	ComparisonService ComparisonServiceInterface

	// アクティビティフィード
	FeedService FeedServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General)
//
// 認証ルート（/auth/*）と運用エンドポイント（/health、/metrics）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	bookHandler := NewBookHandler(deps.BookService)
	ratingHandler := NewRatingHandler(deps.RatingService)
	comparisonHandler := NewComparisonHandler(deps.ComparisonService, deps.BookService)
	feedHandler := NewFeedHandler(deps.FeedService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 書籍カタログ
		r.Route("/api/books", func(r chi.Router) {
			r.Get("/search", bookHandler.Search)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)

				// 評価（保存は書き込み専用レート制限を追加）
				r.Get("/rating", ratingHandler.GetRatingState)
				r.With(deps.RateLimiter.WriteMiddleware()).Put("/rating", ratingHandler.SaveRating)

				// 読書状態
				r.Put("/status", ratingHandler.SetReadingStatus)
				r.Delete("/status", ratingHandler.ClearReadingStatus)

				// 比較プロンプト
				r.Get("/prompts", comparisonHandler.NextPrompts)
			})
		})

		// 比較結果の記録（書き込み専用レート制限を追加）
		r.With(deps.RateLimiter.WriteMiddleware()).Post("/api/comparisons", comparisonHandler.RecordOutcome)

		// アクティビティフィード
		r.Get("/api/feed", feedHandler.ListFeed)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
