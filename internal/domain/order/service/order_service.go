package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	cartRepo "order_fulfillment/internal/domain/cart/repository"
	deliveryService "order_fulfillment/internal/domain/delivery/service"
	inventoryService "order_fulfillment/internal/domain/inventory/service"
	"order_fulfillment/internal/domain/order/model"
	orderRepo "order_fulfillment/internal/domain/order/repository"
	paymentModel "order_fulfillment/internal/domain/payment/model"
	paymentRepo "order_fulfillment/internal/domain/payment/repository"
	paymentService "order_fulfillment/internal/domain/payment/service"
	pointService "order_fulfillment/internal/domain/point/service"
	reviewRepo "order_fulfillment/internal/domain/review/repository"
	userRepo "order_fulfillment/internal/domain/user/repository"
	"order_fulfillment/pkg/cache"
	"order_fulfillment/pkg/database"
	"order_fulfillment/pkg/logger"
	"order_fulfillment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderLine 下单请求中的一行：直接购买给 ProductUnitID+Quantity，
// 购物车来源只给 CartLineID
type OrderLine struct {
	ProductUnitID string  `json:"productUnitId"`
	Quantity      int     `json:"quantity"`
	CartLineID    *string `json:"cartLineId,omitempty"`
}

// CreateOrderInput 下单请求
type CreateOrderInput struct {
	Lines      []OrderLine `json:"lines"`
	PointUsage int64       `json:"pointUsage"`
}

// PayInput 支付请求
type PayInput struct {
	PaymentKey string `json:"paymentKey"`
	Amount     int64  `json:"amount"` // 实际请款金额 = totalAmount - pointUsage
	Address    string `json:"address"`
}

// PaymentEngine 支付重试引擎出站端口
type PaymentEngine interface {
	Confirm(ctx context.Context, payment *paymentModel.Payment) (paymentService.Transition, error)
	RetryOnce(ctx context.Context, latest *paymentModel.Payment) (paymentService.Transition, error)
}

// OrderService 订单编排：创建、支付编排、人工重试、取消、
// 退货退款 Saga、过期清扫
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error)
	GetOrderHistory(ctx context.Context, userID string, offset, limit int) ([]model.Order, int64, error)
	CancelOrder(ctx context.Context, userID, orderID string) error
	ProcessPayment(ctx context.Context, userID, orderID string, in PayInput) (*model.Order, error)
	RetryPayment(ctx context.Context, userID, orderID string) (*model.Order, error)
	WithdrawOrder(ctx context.Context, userID, orderID string) (*model.Order, error)
	HandleReturnArrived(ctx context.Context, orderID string) (*model.Order, error)
	CompensateFailure(ctx context.Context, orderID string) error
	ExpireOverdueOrders(ctx context.Context) (int, error)
}

type orderService struct {
	orders      orderRepo.OrderRepository
	users       userRepo.UserRepository
	carts       cartRepo.CartRepository
	reviews     reviewRepo.ReviewRepository
	payments    paymentRepo.PaymentRepository
	inventories inventoryService.InventoryService
	points      pointService.PointLedger
	deliveries  deliveryService.DeliveryService
	engine      PaymentEngine
	tx          database.TxManager
	cache       cache.CacheService
	expireAfter time.Duration
}

// NewOrderService 创建订单编排服务
func NewOrderService(
	orders orderRepo.OrderRepository,
	users userRepo.UserRepository,
	carts cartRepo.CartRepository,
	reviews reviewRepo.ReviewRepository,
	payments paymentRepo.PaymentRepository,
	inventories inventoryService.InventoryService,
	points pointService.PointLedger,
	deliveries deliveryService.DeliveryService,
	engine PaymentEngine,
	tx database.TxManager,
	cacheService cache.CacheService,
	expireAfter time.Duration,
) OrderService {
	return &orderService{
		orders:      orders,
		users:       users,
		carts:       carts,
		reviews:     reviews,
		payments:    payments,
		inventories: inventories,
		points:      points,
		deliveries:  deliveries,
		engine:      engine,
		tx:          tx,
		cache:       cacheService,
		expireAfter: expireAfter,
	}
}

const (
	// pointSaveDivisor 成交金额的 1% 作为赠送积分
	pointSaveDivisor = 100

	// maxOrderNoRetry 订单号唯一索引冲突时的重新生成次数
	maxOrderNoRetry = 3
)

// generateOrderNo 网关侧订单号：ORD-<unix秒>-<0..8999>
func generateOrderNo() string {
	return fmt.Sprintf("ORD-%d-%d", time.Now().Unix(), rand.Intn(9000))
}

// CreateOrder 下单：解析来源行、只读校验库存、快照价格，生成 PENDING 订单。
// 库存扣减推迟到支付步骤，避免为被放弃的购物车预占库存。
func (s *orderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*model.Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrNoOrderLines
	}

	if _, err := s.users.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	details := make([]model.OrderDetail, 0, len(in.Lines))
	cartLineIDs := make([]string, 0, len(in.Lines))
	var total int64

	for _, line := range in.Lines {
		unitID := line.ProductUnitID
		quantity := line.Quantity

		if line.CartLineID != nil {
			cartLine, err := s.carts.GetByID(*line.CartLineID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrCartLineNotFound
				}
				return nil, err
			}
			if cartLine.UserID != userID {
				return nil, ErrCartLineNotFound
			}
			unitID = cartLine.ProductUnitID
			quantity = cartLine.Quantity
			cartLineIDs = append(cartLineIDs, cartLine.ID)
		}

		if quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		// 只读校验：requested <= available，不扣减
		unit, err := s.inventories.Resolve(unitID, quantity)
		if err != nil {
			return nil, err
		}

		details = append(details, model.OrderDetail{
			ProductUnitID: unit.ID,
			ProductName:   unit.ProductName,
			Brand:         unit.Brand,
			Size:          unit.Size,
			Price:         unit.Price,
			Quantity:      quantity,
			CartLineID:    line.CartLineID,
		})
		total += unit.Price * int64(quantity)
	}

	if in.PointUsage < 0 || in.PointUsage > total {
		return nil, ErrInvalidPointUsage
	}

	now := time.Now()
	order := &model.Order{
		OrderNo:      generateOrderNo(),
		UserID:       userID,
		Status:       model.StatusPending,
		CancelStatus: model.CancelNone,
		TotalAmount:  total,
		PointUsage:   in.PointUsage,
		PointSave:    total / pointSaveDivisor,
		ExpireAt:     now.Add(s.expireAfter),
		OrderedAt:    now,
		Details:      details,
	}

	// 订单号唯一索引冲突时重新生成并重试
	var err error
	for attempt := 0; attempt < maxOrderNoRetry; attempt++ {
		err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			for _, id := range cartLineIDs {
				if derr := s.carts.Delete(tx, id); derr != nil {
					return derr
				}
			}
			return s.orders.Create(tx, order)
		})
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			order.OrderNo = generateOrderNo()
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.Default.RecordOrderCreated()
	return order, nil
}

// GetOrder 获取订单（带缓存）
func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	if s.cache != nil {
		var cached model.Order
		if err := s.cache.Get(ctx, orderCacheKey(orderID), &cached); err == nil {
			if cached.UserID != userID {
				return nil, ErrOrderNotFound
			}
			return &cached, nil
		}
	}

	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orderCacheKey(orderID), order, orderCacheTTL); err != nil {
			logger.Log.Warn("Failed to cache order", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	return order, nil
}

// GetOrderHistory 获取用户订单历史（分页参数由处理层归一化）
func (s *orderService) GetOrderHistory(ctx context.Context, userID string, offset, limit int) ([]model.Order, int64, error) {
	return s.orders.ListByUser(userID, offset, limit)
}

// CancelOrder 支付前取消：仅限 PENDING 且尚无任何支付记录的订单。
// 已有支付记录意味着库存可能已预占，必须走补偿路径而不是直接删除。
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID string) error {
	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return err
	}

	if order.Status != model.StatusPending {
		return ErrOrderStateIllegal
	}

	count, err := s.payments.CountByOrderID(nil, order.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrOrderStateIllegal
	}

	if err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		return s.orders.Delete(tx, order)
	}); err != nil {
		return err
	}

	s.invalidateCache(ctx, orderID)
	return nil
}

// loadOwnedOrder 加载订单并校验归属
func (s *orderService) loadOwnedOrder(userID, orderID string) (*model.Order, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

const orderCacheTTL = 10 * time.Minute

func orderCacheKey(orderID string) string {
	return "order:" + orderID
}

func (s *orderService) invalidateCache(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, orderCacheKey(orderID)); err != nil {
		logger.Log.Warn("Failed to invalidate order cache",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

// sortedDetails 同一订单内固定按库存单元ID顺序加锁，避免交叉死锁
func sortedDetails(details []model.OrderDetail) []model.OrderDetail {
	out := make([]model.OrderDetail, len(details))
	copy(out, details)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductUnitID < out[j].ProductUnitID
	})
	return out
}
