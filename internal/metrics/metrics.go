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
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordRegistration()
	RecordTokenRefreshed()
	RecordProviderRequest(operation string, outcome string)
	RecordProviderLatency(operation string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
	registrations   prometheus.Counter
	tokenRefreshed  prometheus.Counter
	providerReqs    *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passport_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_login_failure_total",
			Help: "原因別のログイン失敗数",
		}, []string{"reason"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passport_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		tokenRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passport_token_refreshed_total",
			Help: "セッショントークンのリフレッシュ成功数",
		}),
		providerReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_provider_requests_total",
			Help: "操作・結果別のIdPリクエスト数",
		}, []string{"operation", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passport_provider_latency_seconds",
			Help:    "操作別のIdPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.registrations,
		c.tokenRefreshed,
		c.providerReqs,
		c.providerLatency,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を原因分類付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordRegistration はユーザー登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordTokenRefreshed はトークンリフレッシュ成功を記録する。
func (c *Collector) RecordTokenRefreshed() {
	c.tokenRefreshed.Inc()
}

// RecordProviderRequest はIdPリクエストの結果を記録する。
func (c *Collector) RecordProviderRequest(operation string, outcome string) {
	c.providerReqs.WithLabelValues(operation, outcome).Inc()
}

// RecordProviderLatency はIdPリクエストのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(operation string, duration time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
