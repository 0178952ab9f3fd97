package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agency_dashboard"

// 한도 판정 결과 라벨
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	// QuotaDecisions: 열람 한도 증가 시도 결과별 카운터
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contact_quota_decisions_total",
		Help:      "Contact view quota increment attempts by result.",
	}, []string{"result", "mode"})

	// QuotaResets: 운영자 리셋 횟수
	QuotaResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contact_quota_resets_total",
		Help:      "Operator-triggered quota resets.",
	})

	// HTTPRequestDuration: 라우트별 HTTP 응답 시간
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// DatasetRows: 로드된 데이터셋 행 수
	DatasetRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_rows",
		Help:      "Rows loaded per tabular dataset.",
	}, []string{"dataset"})
)
