package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 削除通知の送信数（kind: event/category, result: published/failed/enqueued）
	DeletionNotificationsTotal *prometheus.CounterVec

	// ユーザー削除に伴って連鎖削除されたイベント数
	CascadeDeletedEventsTotal prometheus.Counter

	// ユーザーサービス参照の所要時間（result: found/not_found/unavailable/cached）
	UserLookupDuration *prometheus.HistogramVec

	// アウトボックスの中継結果（result: published/failed/dead）
	OutboxRelayedTotal *prometheus.CounterVec

	// 直近の中継で取得した未送信エントリ数
	OutboxBacklog prometheus.Gauge
}

// 削除通知の結果ラベル
const (
	ResultPublished = "published"
	ResultFailed    = "failed"
	ResultEnqueued  = "enqueued"
)

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		DeletionNotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deletion_notifications_total",
				Help: "Total number of deletion notifications by kind and result",
			},
			[]string{"kind", "result"},
		),
		CascadeDeletedEventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cascade_deleted_events_total",
				Help: "Total number of events removed because their creator was deleted",
			},
		),
		UserLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "user_lookup_duration_seconds",
				Help:    "Time spent resolving users against the user service",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"result"},
		),
		OutboxRelayedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_relayed_total",
				Help: "Total number of outbox entries processed by result",
			},
			[]string{"result"},
		),
		OutboxBacklog: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "outbox_backlog",
				Help: "Number of outbox entries claimed in the latest relay run",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DeletionNotificationsTotal,
		m.CascadeDeletedEventsTotal,
		m.UserLookupDuration,
		m.OutboxRelayedTotal,
		m.OutboxBacklog,
	)

	return m
}

// 以下のヘルパーはレシーバが nil でも何もしない

// ObserveNotification は削除通知の結果を記録する
func (m *Metrics) ObserveNotification(kind, result string) {
	if m == nil {
		return
	}
	m.DeletionNotificationsTotal.WithLabelValues(kind, result).Inc()
}

// AddCascadeDeleted は連鎖削除されたイベント数を加算する
func (m *Metrics) AddCascadeDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CascadeDeletedEventsTotal.Add(float64(n))
}

// ObserveUserLookup はユーザー参照の所要時間を記録する
func (m *Metrics) ObserveUserLookup(result string, started time.Time) {
	if m == nil {
		return
	}
	m.UserLookupDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
}

// ObserveOutbox はアウトボックス中継の結果を記録する
func (m *Metrics) ObserveOutbox(result string) {
	if m == nil {
		return
	}
	m.OutboxRelayedTotal.WithLabelValues(result).Inc()
}

// SetOutboxBacklog は直近の中継で扱ったエントリ数を設定する
func (m *Metrics) SetOutboxBacklog(n int) {
	if m == nil {
		return
	}
	m.OutboxBacklog.Set(float64(n))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
