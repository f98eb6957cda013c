package order

import (
	"fmt"
	"time"

	cartRepo "order_fulfillment/internal/domain/cart/repository"
	deliveryRepo "order_fulfillment/internal/domain/delivery/repository"
	deliveryService "order_fulfillment/internal/domain/delivery/service"
	inventoryRepo "order_fulfillment/internal/domain/inventory/repository"
	inventoryService "order_fulfillment/internal/domain/inventory/service"
	"order_fulfillment/internal/domain/order/handler"
	orderRepo "order_fulfillment/internal/domain/order/repository"
	"order_fulfillment/internal/domain/order/service"
	"order_fulfillment/internal/domain/payment/gateway"
	paymentRepo "order_fulfillment/internal/domain/payment/repository"
	paymentService "order_fulfillment/internal/domain/payment/service"
	pointRepo "order_fulfillment/internal/domain/point/repository"
	pointService "order_fulfillment/internal/domain/point/service"
	reviewRepo "order_fulfillment/internal/domain/review/repository"
	userRepo "order_fulfillment/internal/domain/user/repository"
	"order_fulfillment/internal/pkg/config"
	"order_fulfillment/internal/pkg/middleware"
	"order_fulfillment/internal/pkg/push"
	"order_fulfillment/internal/pkg/registry"
	"order_fulfillment/internal/pkg/scheduler"
	"order_fulfillment/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderModule 订单模块：创建/支付编排/取消/退货退款/过期清扫
type OrderModule struct {
	sweeper *scheduler.Scheduler
}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 20
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	orders := orderRepo.NewOrderRepository(ctx.DB)
	users := userRepo.NewUserRepository(ctx.DB)
	carts := cartRepo.NewCartRepository(ctx.DB)
	reviews := reviewRepo.NewReviewRepository(ctx.DB)
	payments := paymentRepo.NewPaymentRepository(ctx.DB)

	inventories := inventoryService.NewInventoryService(inventoryRepo.NewInventoryRepository(ctx.DB))
	points := pointService.NewPointLedger(pointRepo.NewPointRepository(ctx.DB))
	deliveries := deliveryService.NewDeliveryService(deliveryRepo.NewDeliveryRepository(ctx.DB))

	gw, err := buildGateway()
	if err != nil {
		return err
	}
	engine := paymentService.NewRetryEngine(gw, payments, ctx.Tx)

	initPush()

	expireAfter := time.Duration(config.GlobalConfig.Order.ExpireHours) * time.Hour
	oService := service.NewOrderService(
		orders, users, carts, reviews, payments,
		inventories, points, deliveries,
		engine, ctx.Tx, ctx.Cache, expireAfter,
	)
	oHandler := handler.NewOrderHandler(oService)

	// 2. 路由注册
	setupRoutes(ctx.Router, oHandler)

	// 3. 启动过期清扫
	interval := time.Duration(config.GlobalConfig.Order.SweepIntervalH) * time.Hour
	m.sweeper = scheduler.New("order-expiration-sweep", interval, oService.ExpireOverdueOrders)
	m.sweeper.Start()

	return nil
}

// buildGateway 按配置选择支付网关渠道
func buildGateway() (gateway.Gateway, error) {
	switch config.GlobalConfig.Gateway.Channel {
	case "alipay":
		return gateway.NewAlipayGateway()
	case "wechat":
		return gateway.NewWechatGateway()
	case "rest":
		return gateway.NewRestGateway(), nil
	default:
		return nil, fmt.Errorf("unknown gateway channel: %s", config.GlobalConfig.Gateway.Channel)
	}
}

// initPush 初始化推送服务，配置缺失时降级为不推送
func initPush() {
	svc, err := push.NewAliyunPushService()
	if err != nil {
		logger.Log.Warn("Push service disabled", zap.Error(err))
		return
	}
	push.GlobalPushService = svc
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	g := r.Group("/orders")

	// 需要认证的路由组
	authorized := g.Group("")
	authorized.Use(middleware.AuthMiddleware())
	{
		authorized.POST("/", h.CreateOrder)
		authorized.GET("/", h.GetOrderHistory)
		authorized.GET("/:id", h.GetOrder)
		authorized.DELETE("/:id", h.CancelOrder)
		authorized.POST("/:id/payment", h.ProcessPayment)
		authorized.POST("/:id/payment/retry", h.RetryPayment)
		authorized.POST("/:id/withdraw", h.WithdrawOrder)

		// 需要管理员权限的路由组
		admin := authorized.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			// 物流侧实物退回确认
			admin.POST("/:id/return-arrived", h.HandleReturnArrived)
			// 对废弃订单手动补偿
			admin.POST("/:id/compensate", h.CompensateFailure)
			// 手动触发过期清扫
			admin.POST("/sweep", h.SweepExpired)
		}
	}
}
