package service

import (
	"context"
	"order_fulfillment/internal/domain/payment/gateway"
	"order_fulfillment/internal/domain/payment/model"
	"order_fulfillment/internal/domain/payment/repository"
	"order_fulfillment/pkg/database"
	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxAutoRetry 网关无定论结果的自动重试上限
const MaxAutoRetry = 3

// RetryEngine 支付重试引擎：包装网关适配器，对 retryable 结果做有界自动重试。
// 每次尝试的落库都在独立事务中提交，重试失败不会回滚订单已提交的 PENDING 状态。
// 网关调用本身始终发生在任何数据库事务之外。
type RetryEngine struct {
	gw       gateway.Gateway
	payments repository.PaymentRepository
	tx       database.TxManager
	maxRetry int
}

// NewRetryEngine 创建重试引擎
func NewRetryEngine(gw gateway.Gateway, payments repository.PaymentRepository, tx database.TxManager) *RetryEngine {
	return &RetryEngine{
		gw:       gw,
		payments: payments,
		tx:       tx,
		maxRetry: MaxAutoRetry,
	}
}

// Confirm 首次请款。payment 为预占事务中已创建的 PENDING 支付行。
// retryable 时自动重试至多 MaxAutoRetry 次；重试耗尽返回 RetryRequired，
// 订单保持 PENDING，留给人工重试或过期清扫处理。
func (e *RetryEngine) Confirm(ctx context.Context, payment *model.Payment) (Transition, error) {
	start := time.Now()
	outcome, err := e.gw.Confirm(ctx, payment.PaymentKey, payment.ExternalOrderNo, payment.Amount)
	metrics.Default.RecordPaymentAttempt(string(outcome), time.Since(start))
	if err != nil {
		return Transition{}, err
	}

	tr, err := Resolve(model.StatusPending, outcome)
	if err != nil {
		return Transition{}, err
	}

	// 本次结果独立落库
	if err := e.tx.RunIsolated(ctx, func(tx *gorm.DB) error {
		return e.payments.UpdateStatus(tx, payment.ID, tr.PaymentStatus)
	}); err != nil {
		return Transition{}, err
	}
	payment.Status = tr.PaymentStatus

	if tr.Retry {
		return e.retryLoop(ctx, payment)
	}
	return tr, nil
}

// RetryOnce 人工重试入口：对最新支付凭证做一次网关调用，不再循环
func (e *RetryEngine) RetryOnce(ctx context.Context, latest *model.Payment) (Transition, error) {
	tr, _, err := e.attempt(ctx, latest, latest.RetryCount+1)
	if err != nil {
		return Transition{}, err
	}

	if tr.Retry {
		// 人工重试不继续自动循环，无定论同样上抛"需要重试"
		tr.Retry = false
		tr.RetryRequired = true
	}
	return tr, nil
}

func (e *RetryEngine) retryLoop(ctx context.Context, payment *model.Payment) (Transition, error) {
	for attempt := 1; attempt <= e.maxRetry; attempt++ {
		tr, row, err := e.attempt(ctx, payment, attempt)
		if err != nil {
			return Transition{}, err
		}

		if !tr.Retry {
			return tr, nil
		}

		logger.Log.Warn("Payment attempt inconclusive, will retry",
			zap.String("order_no", payment.ExternalOrderNo),
			zap.String("payment_id", row.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_retry", e.maxRetry),
		)
	}

	// 重试耗尽：订单保持 PENDING，交给人工重试或过期清扫
	logger.Log.Error("Payment retries exhausted",
		zap.String("order_no", payment.ExternalOrderNo),
		zap.Int("max_retry", e.maxRetry),
	)
	return Transition{PaymentStatus: model.StatusPending, RetryRequired: true}, nil
}

// attempt 一次网关调用 + 一条独立提交的支付尝试记录
func (e *RetryEngine) attempt(ctx context.Context, base *model.Payment, retryCount int) (Transition, *model.Payment, error) {
	start := time.Now()
	outcome, err := e.gw.Retry(ctx, base.UserID, base.ExternalOrderNo, base.PaymentKey)
	metrics.Default.RecordPaymentAttempt(string(outcome), time.Since(start))
	if err != nil {
		return Transition{}, nil, err
	}

	tr, err := Resolve(model.StatusPending, outcome)
	if err != nil {
		return Transition{}, nil, err
	}

	row := &model.Payment{
		OrderID:         base.OrderID,
		UserID:          base.UserID,
		Status:          tr.PaymentStatus,
		RetryCount:      retryCount,
		PaymentKey:      base.PaymentKey,
		ExternalOrderNo: base.ExternalOrderNo,
		Amount:          base.Amount,
	}
	if err := e.tx.RunIsolated(ctx, func(tx *gorm.DB) error {
		return e.payments.Create(tx, row)
	}); err != nil {
		return Transition{}, nil, err
	}

	return tr, row, nil
}
