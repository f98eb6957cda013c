package service

import (
	"context"
	"errors"

	deliveryModel "order_fulfillment/internal/domain/delivery/model"
	"order_fulfillment/internal/domain/order/model"
	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRefundRetry 退款失败后的最大重试次数
const maxRefundRetry = 3

// WithdrawOrder 退货退款 Saga 入口。按配送状态分支：
//   - READY：未发货，立即走退款
//   - ARRIVED：已签收，标记退货申请后停住，等实物退回信号（HandleReturnArrived）再退款
func (s *orderService) WithdrawOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != model.StatusSucceeded || order.CancelStatus != model.CancelNone {
		return nil, ErrWithdrawDenied
	}
	if order.Delivery == nil {
		return nil, ErrWithdrawDenied
	}

	switch order.Delivery.Status {
	case deliveryModel.StatusReady:
		err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			if terr := s.deliveries.Transition(tx, order.Delivery, deliveryModel.StatusCancelRequested); terr != nil {
				return terr
			}
			return s.orders.UpdateCancelStatus(tx, order.ID, model.CancelRequested)
		})
		if err != nil {
			return nil, err
		}
		order.CancelStatus = model.CancelRequested

		if err := s.runRefund(ctx, order); err != nil {
			return nil, err
		}
		return order, nil

	case deliveryModel.StatusArrived:
		err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			if terr := s.deliveries.Transition(tx, order.Delivery, deliveryModel.StatusReturnRequested); terr != nil {
				return terr
			}
			return s.orders.UpdateCancelStatus(tx, order.ID, model.CancelRequested)
		})
		if err != nil {
			return nil, err
		}
		order.CancelStatus = model.CancelRequested
		s.invalidateCache(ctx, orderID)

		logger.Log.Info("Order return requested, awaiting physical return",
			zap.String("order_id", order.ID),
			zap.String("order_no", order.OrderNo),
		)
		return order, nil

	default:
		return nil, ErrWithdrawDenied
	}
}

// HandleReturnArrived 实物退回确认信号：恢复停在 RETURN_REQUESTED 的退货 Saga，
// 执行退款。由物流回调/运维触发，不校验归属。
func (s *orderService) HandleReturnArrived(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != model.StatusSucceeded || order.CancelStatus != model.CancelRequested {
		return nil, ErrOrderStateIllegal
	}
	if order.Delivery == nil || order.Delivery.Status != deliveryModel.StatusReturnRequested {
		return nil, ErrOrderStateIllegal
	}

	if err := s.runRefund(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// runRefund 退款：退还 pointUsage - pointSave、订单置 WITHDRAW、
// 配送置 RETURNED、回补库存，全部在一个隔离事务内。失败最多重试
// maxRefundRetry 次；耗尽后 cancelStatus 进入终态 FAILED，需人工介入。
func (s *orderService) runRefund(ctx context.Context, order *model.Order) error {
	refund := order.PointUsage - order.PointSave

	var lastErr error
	for attempt := 0; attempt < maxRefundRetry; attempt++ {
		if attempt > 0 {
			metrics.Default.RecordRefundRetry()
		}

		// Transition 会就地改 delivery 状态，每次尝试用副本，失败重试才能从原状态出发
		d := *order.Delivery
		lastErr = s.tx.RunIsolated(ctx, func(tx *gorm.DB) error {
			if cerr := s.points.Credit(tx, order.UserID, refund); cerr != nil {
				return cerr
			}
			if uerr := s.orders.UpdateCancelStatus(tx, order.ID, model.CancelCompleted); uerr != nil {
				return uerr
			}
			if uerr := s.orders.UpdateStatus(tx, order.ID, model.StatusWithdraw); uerr != nil {
				return uerr
			}
			if terr := s.deliveries.Transition(tx, &d, deliveryModel.StatusReturned); terr != nil {
				return terr
			}
			for _, detail := range sortedDetails(order.Details) {
				if rerr := s.inventories.Restore(tx, detail.ProductUnitID, detail.Quantity); rerr != nil {
					return rerr
				}
			}
			return nil
		})
		if lastErr == nil {
			order.Status = model.StatusWithdraw
			order.CancelStatus = model.CancelCompleted
			order.Delivery.Status = deliveryModel.StatusReturned

			metrics.Default.RecordOrderStatus(model.StatusWithdraw)
			s.invalidateCache(ctx, order.ID)

			logger.Log.Info("Order withdrawn and refunded",
				zap.String("order_id", order.ID),
				zap.String("order_no", order.OrderNo),
				zap.Int64("refund_points", refund),
			)
			return nil
		}

		logger.Log.Warn("Refund attempt failed",
			zap.String("order_id", order.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	// 重试耗尽：取消状态进入终态，库存/配送保持原样
	if err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		return s.orders.UpdateCancelStatus(tx, order.ID, model.CancelFailed)
	}); err != nil {
		logger.Log.Error("Failed to mark refund as exhausted",
			zap.String("order_id", order.ID), zap.Error(err))
		return err
	}
	order.CancelStatus = model.CancelFailed

	metrics.Default.RecordRefundExhausted()
	s.invalidateCache(ctx, order.ID)

	logger.Log.Error("Refund retries exhausted, manual handling required",
		zap.String("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Error(lastErr),
	)
	return ErrRefundNeedsOperator
}
