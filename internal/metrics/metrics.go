// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordRatingSaved(sentiment string)
	RecordDeriveDuration(d time.Duration)
	RecordComparisonRecorded(winner string)
	RecordPromptsServed(count int)
	RecordActivityRecordFailure()
	RecordHTTPStatus(statusCode int)
	RecordCoversFetched(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ratingsSaved        *prometheus.CounterVec
	deriveDuration      prometheus.Histogram
	comparisonsRecorded *prometheus.CounterVec
	promptsServed       prometheus.Counter
	activityRecordFail  prometheus.Counter
	httpStatus          *prometheus.CounterVec
	coversFetched       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ratingsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_ratings_saved_total",
			Help: "保存された評価のセンチメント別合計数",
		}, []string{"sentiment"}),
		deriveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookman_score_derive_seconds",
			Help:    "スコア導出（比較履歴取得を含む）の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		comparisonsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_comparisons_recorded_total",
			Help: "記録されたペア比較の勝敗別合計数",
		}, []string{"winner"}),
		promptsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_prompts_served_total",
			Help: "提示された比較プロンプトの合計数",
		}),
		activityRecordFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_activity_record_fail_total",
			Help: "アクティビティ記録失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		coversFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_covers_fetched_total",
			Help: "取得されたカバー画像の合計数",
		}),
	}

	reg.MustRegister(
		c.ratingsSaved,
		c.deriveDuration,
		c.comparisonsRecorded,
		c.promptsServed,
		c.activityRecordFail,
		c.httpStatus,
		c.coversFetched,
	)

	return c
}

// RecordRatingSaved は評価の保存をセンチメント別に記録する。
func (c *Collector) RecordRatingSaved(sentiment string) {
	c.ratingsSaved.WithLabelValues(sentiment).Inc()
}

// RecordDeriveDuration はスコア導出の所要時間を記録する。
func (c *Collector) RecordDeriveDuration(d time.Duration) {
	c.deriveDuration.Observe(d.Seconds())
}

// RecordComparisonRecorded はペア比較の記録を勝敗別に記録する。
func (c *Collector) RecordComparisonRecorded(winner string) {
	c.comparisonsRecorded.WithLabelValues(winner).Inc()
}

// RecordPromptsServed は提示した比較プロンプト数を記録する。
func (c *Collector) RecordPromptsServed(count int) {
	c.promptsServed.Add(float64(count))
}

// RecordActivityRecordFailure はアクティビティ記録の失敗を記録する。
func (c *Collector) RecordActivityRecordFailure() {
	c.activityRecordFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCoversFetched は取得したカバー画像数を記録する。
func (c *Collector) RecordCoversFetched(count int) {
	c.coversFetched.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
