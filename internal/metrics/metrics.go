// Package metrics содержит Prometheus-метрики платёжного контура.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceivedTotal — принятые webhook по типу события.
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_received_total",
		Help: "Количество принятых webhook платёжного провайдера по типу события",
	}, []string{"type"})

	// WebhooksDuplicateTotal — повторные доставки, проигнорированные идемпотентно.
	WebhooksDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhooks_duplicate_total",
		Help: "Количество повторных webhook, для которых escrow уже существовал",
	})

	// EscrowsCreatedTotal — созданные escrow.
	EscrowsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_created_total",
		Help: "Количество созданных escrow",
	})

	// EscrowsCreatedAmountTotal — сумма, взятая в удержание, в минимальных единицах.
	EscrowsCreatedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_created_amount_total",
		Help: "Суммарный объём удержанных средств в минимальных единицах валюты",
	})

	// EscrowsReleasedTotal — escrow, выплаченные продавцу.
	EscrowsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_released_total",
		Help: "Количество escrow, выплаченных продавцу",
	})

	// EscrowsReleasedAmountTotal — выплачено продавцам, в минимальных единицах.
	EscrowsReleasedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_released_amount_total",
		Help: "Суммарный объём выплат продавцам в минимальных единицах валюты",
	})

	// EscrowsRefundedTotal — escrow, возвращённые покупателю.
	EscrowsRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_refunded_total",
		Help: "Количество escrow, возвращённых покупателю",
	})

	// EscrowsRefundedAmountTotal — возвращено покупателям, в минимальных единицах.
	EscrowsRefundedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_refunded_amount_total",
		Help: "Суммарный объём возвратов покупателям в минимальных единицах валюты",
	})

	// EscrowsAutoReleasedTotal — escrow, выплаченные фоновым воркером по сроку.
	EscrowsAutoReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_escrows_auto_released_total",
		Help: "Количество escrow, выплаченных автоматически по истечении срока удержания",
	})

	// HTTPRequestsTotal — HTTP-запросы по методу, маршруту и статусу.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Количество HTTP-запросов",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration — длительность обработки HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Длительность обработки HTTP-запросов в секундах",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
