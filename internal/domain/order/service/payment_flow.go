package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order_fulfillment/internal/domain/order/model"
	paymentModel "order_fulfillment/internal/domain/payment/model"
	"order_fulfillment/internal/pkg/push"
	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProcessPayment 支付编排。步骤各自独立提交：
//  1. 预占事务：锁行扣库存 + 落初始 PENDING 支付行（已有支付记录则跳过，幂等）
//  2. 主事务：扣积分 + 挂接配送
//  3. 网关调用（在任何事务之外）+ 重试引擎
//  4. 终结事务：订单 SUCCEEDED + 赠送积分
//
// 预占提交后，支付失败不会自动回补库存/积分，回补只走显式补偿或过期清扫。
func (s *orderService) ProcessPayment(ctx context.Context, userID, orderID string, in PayInput) (*model.Order, error) {
	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if order.Status != model.StatusPending {
		return nil, ErrOrderStateIllegal
	}
	if order.IsExpired(now) {
		return nil, ErrOrderExpired
	}
	if in.Amount != order.TotalAmount-order.PointUsage {
		return nil, ErrAmountMismatch
	}

	// 步骤 1：库存预占（独立事务）。任何一行失败整体中止，网关不会被调用
	payment, err := s.reserveStock(ctx, order, in)
	if err != nil {
		return nil, err
	}

	// 步骤 2：扣积分 + 挂接配送。配送记录的存在即积分已扣的凭证
	if order.Delivery == nil {
		err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			if derr := s.points.Debit(tx, userID, order.PointUsage); derr != nil {
				return derr
			}
			delivery, derr := s.deliveries.Attach(tx, order.ID, in.Address)
			if derr != nil {
				return derr
			}
			order.Delivery = delivery
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// 步骤 3：网关调用 + 有界自动重试（引擎内部每次尝试独立落库）
	tr, err := s.engine.Confirm(ctx, payment)
	if err != nil {
		return nil, err
	}

	// 步骤 4：按状态机推进订单
	if tr.Finalize {
		if err := s.finalizeSuccess(ctx, order); err != nil {
			return nil, err
		}
		return order, nil
	}

	// 终结失败或重试耗尽：订单保持 PENDING，库存/积分不回补，
	// 调用方可人工重试，过期后由清扫回收
	s.invalidateCache(ctx, orderID)
	return nil, ErrPaymentRetryRequired
}

// RetryPayment 人工重试：对仍 PENDING 且未过期的订单，
// 以最新支付凭证做一次网关调用，不再自动循环
func (s *orderService) RetryPayment(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != model.StatusPending {
		return nil, ErrOrderStateIllegal
	}
	if order.IsExpired(time.Now()) {
		return nil, ErrOrderExpired
	}

	latest, err := s.payments.GetLatestByOrderID(order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	tr, err := s.engine.RetryOnce(ctx, latest)
	if err != nil {
		return nil, err
	}

	if tr.Finalize {
		if err := s.finalizeSuccess(ctx, order); err != nil {
			return nil, err
		}
		return order, nil
	}

	s.invalidateCache(ctx, orderID)
	return nil, ErrPaymentRetryRequired
}

// reserveStock 库存预占：独立事务内按固定顺序锁行、复核、扣减，
// 并落初始 PENDING 支付行。支付行的存在同时充当两个守卫：
// 重复调用不再预占；补偿路径据此判断库存是否需要回补。
//
// 事务内先锁订单行并复核状态/期限：与过期清扫的补偿争抢同一把行锁，
// 清扫先到则订单已删除，预占不会再提交。
func (s *orderService) reserveStock(ctx context.Context, order *model.Order, in PayInput) (*paymentModel.Payment, error) {
	count, err := s.payments.CountByOrderID(nil, order.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		// 重试调用：预占已提交过，直接取最新支付行
		return s.payments.GetLatestByOrderID(order.ID)
	}

	payment := &paymentModel.Payment{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Status:          paymentModel.StatusPending,
		PaymentKey:      in.PaymentKey,
		ExternalOrderNo: order.OrderNo,
		Amount:          in.Amount,
	}

	err = s.tx.RunIsolated(ctx, func(tx *gorm.DB) error {
		locked, lerr := s.orders.GetByIDForUpdate(tx, order.ID)
		if lerr != nil {
			if errors.Is(lerr, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return lerr
		}
		if locked.Status != model.StatusPending {
			return ErrOrderStateIllegal
		}
		if locked.IsExpired(time.Now()) {
			return ErrOrderExpired
		}

		for _, detail := range sortedDetails(order.Details) {
			if rerr := s.inventories.Reserve(tx, detail.ProductUnitID, detail.Quantity); rerr != nil {
				return rerr
			}
		}
		return s.payments.Create(tx, payment)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// finalizeSuccess 支付成功终结：订单 SUCCEEDED + 赠送积分，随后失效缓存并推送通知
func (s *orderService) finalizeSuccess(ctx context.Context, order *model.Order) error {
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if uerr := s.orders.UpdateStatus(tx, order.ID, model.StatusSucceeded); uerr != nil {
			return uerr
		}
		return s.points.Credit(tx, order.UserID, order.PointSave)
	})
	if err != nil {
		return err
	}

	order.Status = model.StatusSucceeded
	metrics.Default.RecordOrderStatus(model.StatusSucceeded)
	s.invalidateCache(ctx, order.ID)
	s.notifyPaymentSuccess(order)

	logger.Log.Info("Order payment finalized",
		zap.String("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Int64("amount", order.TotalAmount),
	)
	return nil
}

// notifyPaymentSuccess 支付成功推送（尽力而为，不阻塞主流程）
func (s *orderService) notifyPaymentSuccess(order *model.Order) {
	if push.GlobalPushService == nil {
		return
	}
	title := "支付成功"
	body := fmt.Sprintf("您的订单 %s 已支付成功。", order.OrderNo)
	go func() {
		if err := push.GlobalPushService.PushToAccount(order.UserID, title, body, nil); err != nil {
			logger.Log.Warn("Failed to push payment notification",
				zap.String("order_no", order.OrderNo), zap.Error(err))
		}
	}()
}
