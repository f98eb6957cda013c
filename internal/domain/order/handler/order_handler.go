package handler

import (
	"errors"
	"net/http"

	deliveryService "order_fulfillment/internal/domain/delivery/service"
	inventoryService "order_fulfillment/internal/domain/inventory/service"
	"order_fulfillment/internal/domain/order/service"
	pointService "order_fulfillment/internal/domain/point/service"
	"order_fulfillment/pkg/response"
	"order_fulfillment/pkg/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// currentUserID 从 Context 中获取当前登录用户 ID (由 AuthMiddleware 设置)
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return "", false
	}
	uid, ok := userID.(string)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Invalid user ID type")
		return "", false
	}
	return uid, true
}

// CreateOrder 下单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), uid, input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// GetOrder 查询单个订单
func (h *OrderHandler) GetOrder(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// GetOrderHistory 查询订单历史（分页）
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	offset, limit := p.GetPageOffset()

	orders, total, err := h.service.GetOrderHistory(c.Request.Context(), uid, offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, utils.PageResult{
		List:  orders,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	})
}

// CancelOrder 支付前取消订单
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.service.CancelOrder(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, "Order cancelled successfully")
}

// ProcessPayment 支付订单
func (h *OrderHandler) ProcessPayment(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var input service.PayInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.ProcessPayment(c.Request.Context(), uid, c.Param("id"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// RetryPayment 人工重试支付
func (h *OrderHandler) RetryPayment(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.service.RetryPayment(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// WithdrawOrder 退货退款
func (h *OrderHandler) WithdrawOrder(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.service.WithdrawOrder(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// HandleReturnArrived 实物退回确认（管理员/物流回调）
func (h *OrderHandler) HandleReturnArrived(c *gin.Context) {
	order, err := h.service.HandleReturnArrived(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, order)
}

// CompensateFailure 对废弃订单执行失败补偿（管理员）
func (h *OrderHandler) CompensateFailure(c *gin.Context) {
	if err := h.service.CompensateFailure(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, "Order compensated successfully")
}

// SweepExpired 手动触发过期清扫（管理员，定时任务走同一入口）
func (h *OrderHandler) SweepExpired(c *gin.Context) {
	reclaimed, err := h.service.ExpireOverdueOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{"reclaimed": reclaimed})
}

// writeError 业务错误到响应码的映射
func (h *OrderHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, service.ErrCartLineNotFound):
		response.Error(c, http.StatusNotFound, response.ErrCartLineNotFound, err.Error())
	case errors.Is(err, inventoryService.ErrProductNotFound):
		response.Error(c, http.StatusNotFound, response.ErrProductNotFound, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, err.Error())
	case errors.Is(err, deliveryService.ErrDeliveryNotFound):
		response.Error(c, http.StatusNotFound, response.ErrDeliveryNotFound, err.Error())

	case errors.Is(err, service.ErrNoOrderLines),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPointUsage):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrAmountMismatch):
		response.Error(c, http.StatusBadRequest, response.ErrAmountMismatch, err.Error())

	case errors.Is(err, inventoryService.ErrInsufficientStock):
		response.Fail(c, response.ErrInsufficientStock, err.Error())
	case errors.Is(err, pointService.ErrInsufficientPoints):
		response.Fail(c, response.ErrInsufficientPoints, err.Error())
	case errors.Is(err, service.ErrOrderStateIllegal):
		response.Fail(c, response.ErrOrderStateIllegal, err.Error())
	case errors.Is(err, service.ErrOrderExpired):
		response.Fail(c, response.ErrOrderExpired, err.Error())
	case errors.Is(err, service.ErrWithdrawDenied):
		response.Fail(c, response.ErrWithdrawDenied, err.Error())
	case errors.Is(err, deliveryService.ErrIllegalTransition):
		response.Fail(c, response.ErrDeliveryStateIllegal, err.Error())

	// 网关终结失败/重试耗尽：订单仍在 PENDING，给调用方明确的后续动作
	case errors.Is(err, service.ErrPaymentRetryRequired):
		response.Fail(c, response.ErrPaymentRetryRequired, "Payment failed, please retry")
	// 退款重试耗尽：终态，需人工处理
	case errors.Is(err, service.ErrRefundNeedsOperator):
		response.Fail(c, response.ErrRefundNeedsOperator, err.Error())

	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
