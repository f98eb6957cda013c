package service

import (
	"context"
	"time"

	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExpireOverdueOrders 过期清扫：回收超过支付期限仍处于 PENDING 的订单。
// 每单独立事务走完整补偿（回补库存/积分、重建购物车行、清理评价后删除），
// 单个订单失败只记录日志并跳过，不影响同批其他订单。返回回收数量。
func (s *orderService) ExpireOverdueOrders(ctx context.Context) (int, error) {
	orders, err := s.orders.FindExpiredPending(time.Now())
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range orders {
		order := &orders[i]

		err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			return s.compensate(tx, order)
		})
		if err != nil {
			logger.Log.Warn("Failed to reclaim expired order",
				zap.String("order_id", order.ID),
				zap.String("order_no", order.OrderNo),
				zap.Error(err),
			)
			continue
		}

		s.invalidateCache(ctx, order.ID)
		reclaimed++
	}

	if reclaimed > 0 {
		metrics.Default.RecordSweepReclaimed(reclaimed)
	}

	logger.Log.Info("Expiration sweep finished",
		zap.Int("found", len(orders)),
		zap.Int("reclaimed", reclaimed),
	)
	return reclaimed, nil
}
