package service

import (
	"context"
	"errors"
	"fmt"

	cartModel "order_fulfillment/internal/domain/cart/model"
	"order_fulfillment/internal/domain/order/model"
	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompensateFailure 显式失败补偿：对预占后被放弃的订单，回补库存/积分、
// 重建购物车行并删除订单。整个补偿在单个事务内原子提交。
//
// 积分退还的存储层错误直接上抛（ErrRefundStoreFailure），交由运维处理。
func (s *orderService) CompensateFailure(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if order.Status != model.StatusPending {
		return ErrOrderStateIllegal
	}

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if uerr := s.orders.UpdateStatus(tx, order.ID, model.StatusFailed); uerr != nil {
			return uerr
		}
		return s.compensate(tx, order)
	})
	if err != nil {
		return err
	}

	metrics.Default.RecordOrderStatus(model.StatusFailed)
	s.invalidateCache(ctx, orderID)

	logger.Log.Info("Order failure compensated",
		zap.String("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
	)
	return nil
}

// compensate 共享补偿逻辑（失败补偿与过期清扫复用）：
//   - 支付行存在 => 预占已提交，按固定顺序回补库存
//   - 配送记录存在 => 积分已扣，退还 pointUsage - pointSave
//   - 重建购物车来源的行，删除明细上的评价
//   - 级联删除支付行/配送/订单
//
// 调用方负责事务边界。入口先锁订单行：与并发预占串行化，
// 支付行统计在同一事务内进行，预占刚提交的行不会被漏数。
func (s *orderService) compensate(tx *gorm.DB, order *model.Order) error {
	locked, err := s.orders.GetByIDForUpdate(tx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	// 拿到锁后复核：并发支付可能已把订单推进到终态
	if locked.Status == model.StatusSucceeded || locked.Status == model.StatusWithdraw {
		return ErrOrderStateIllegal
	}

	count, err := s.payments.CountByOrderID(tx, order.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		for _, detail := range sortedDetails(order.Details) {
			if rerr := s.inventories.Restore(tx, detail.ProductUnitID, detail.Quantity); rerr != nil {
				return rerr
			}
		}
	}

	if order.Delivery != nil {
		refund := order.PointUsage - order.PointSave
		if cerr := s.points.Credit(tx, order.UserID, refund); cerr != nil {
			return fmt.Errorf("%w: %v", ErrRefundStoreFailure, cerr)
		}
		if derr := s.deliveries.Remove(tx, order.ID); derr != nil {
			return derr
		}
	}

	detailIDs := make([]string, 0, len(order.Details))
	for _, detail := range order.Details {
		detailIDs = append(detailIDs, detail.ID)

		if detail.CartLineID == nil {
			continue
		}
		line := &cartModel.CartLine{
			UserID:        order.UserID,
			ProductUnitID: detail.ProductUnitID,
			Quantity:      detail.Quantity,
		}
		if cerr := s.carts.Create(tx, line); cerr != nil {
			return cerr
		}
	}

	if rerr := s.reviews.DeleteByOrderDetailIDs(tx, detailIDs); rerr != nil {
		return rerr
	}
	if perr := s.payments.DeleteByOrderID(tx, order.ID); perr != nil {
		return perr
	}
	return s.orders.Delete(tx, order)
}
