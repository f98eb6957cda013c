package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 订单域指标收集器
type Collector struct {
	// 订单指标
	ordersCreatedTotal  prometheus.Counter
	orderStatusTotal    *prometheus.CounterVec
	orderSweepReclaimed prometheus.Counter

	// 支付指标
	paymentAttemptsTotal  *prometheus.CounterVec
	gatewayCallDuration   prometheus.Histogram
	refundRetriesTotal    prometheus.Counter
	refundExhaustedTotal  prometheus.Counter

	// 库存指标
	reservationsTotal        prometheus.Counter
	reservationConflictTotal prometheus.Counter
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		ordersCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),

		orderStatusTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "Total number of order status transitions",
			},
			[]string{"status"},
		),

		orderSweepReclaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_sweep_reclaimed_total",
			Help: "Total number of expired orders reclaimed by the sweep",
		}),

		paymentAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_attempts_total",
				Help: "Total number of payment gateway attempts by outcome",
			},
			[]string{"outcome"},
		),

		gatewayCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_seconds",
			Help:    "Payment gateway round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		refundRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "refund_retries_total",
			Help: "Total number of refund retry attempts",
		}),

		refundExhaustedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "refund_exhausted_total",
			Help: "Total number of refunds that exhausted retries and need manual handling",
		}),

		reservationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Total number of committed inventory reservations",
		}),

		reservationConflictTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reservation_conflicts_total",
			Help: "Total number of reservations aborted by insufficient stock",
		}),
	}
}

// Default 全局指标收集器
var Default = NewCollector()

// RecordOrderCreated 记录订单创建
func (c *Collector) RecordOrderCreated() {
	c.ordersCreatedTotal.Inc()
}

// RecordOrderStatus 记录订单状态流转
func (c *Collector) RecordOrderStatus(status string) {
	c.orderStatusTotal.WithLabelValues(status).Inc()
}

// RecordSweepReclaimed 记录清扫回收的订单数
func (c *Collector) RecordSweepReclaimed(count int) {
	c.orderSweepReclaimed.Add(float64(count))
}

// RecordPaymentAttempt 记录一次网关调用及其分类结果
func (c *Collector) RecordPaymentAttempt(outcome string, duration time.Duration) {
	c.paymentAttemptsTotal.WithLabelValues(outcome).Inc()
	c.gatewayCallDuration.Observe(duration.Seconds())
}

// RecordRefundRetry 记录退款重试
func (c *Collector) RecordRefundRetry() {
	c.refundRetriesTotal.Inc()
}

// RecordRefundExhausted 记录退款重试耗尽（需人工处理）
func (c *Collector) RecordRefundExhausted() {
	c.refundExhaustedTotal.Inc()
}

// RecordReservation 记录库存预占提交
func (c *Collector) RecordReservation() {
	c.reservationsTotal.Inc()
}

// RecordReservationConflict 记录因库存不足中止的预占
func (c *Collector) RecordReservationConflict() {
	c.reservationConflictTotal.Inc()
}
