package service

import (
	"context"
	"errors"
	"testing"

	deliveryModel "order_fulfillment/internal/domain/delivery/model"
	"order_fulfillment/internal/domain/order/model"
	baseModel "order_fulfillment/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// succeededOrder 已支付成功、可退货的订单：pointUsage=500, pointSave=100
func succeededOrder(deliveryStatus string) *model.Order {
	order := testOrder("order-1", "user-1")
	order.Status = model.StatusSucceeded
	order.PointUsage = 500
	order.PointSave = 100
	order.Delivery = &deliveryModel.Delivery{
		BaseModel: baseModel.BaseModel{ID: "delivery-1"},
		OrderID:   "order-1",
		Status:    deliveryStatus,
	}
	return order
}

func TestWithdrawOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Ready delivery refunds immediately", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReady)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.deliveries.On("Transition", mock.Anything, order.Delivery, deliveryModel.StatusCancelRequested).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelRequested).Return(nil)
		// refund = pointUsage - pointSave = 400
		f.points.On("Credit", mock.Anything, "user-1", int64(400)).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelCompleted).Return(nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusWithdraw).Return(nil)
		f.deliveries.On("Transition", mock.Anything, mock.AnythingOfType("*model.Delivery"), deliveryModel.StatusReturned).Return(nil)
		f.inventories.On("Restore", mock.Anything, "unit-1", 2).Return(nil)

		result, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusWithdraw, result.Status)
		assert.Equal(t, model.CancelCompleted, result.CancelStatus)
		assert.Equal(t, deliveryModel.StatusReturned, result.Delivery.Status)
		f.points.AssertExpectations(t)
		f.inventories.AssertExpectations(t)
	})

	t.Run("Arrived delivery stops at return requested", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusArrived)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.deliveries.On("Transition", mock.Anything, order.Delivery, deliveryModel.StatusReturnRequested).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelRequested).Return(nil)

		result, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusSucceeded, result.Status)
		assert.Equal(t, model.CancelRequested, result.CancelStatus)
		assert.Equal(t, deliveryModel.StatusReturnRequested, result.Delivery.Status)
		// 退款要等实物退回信号
		f.points.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
		f.inventories.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Refund retries exhaust into terminal cancel failed", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReady)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.deliveries.On("Transition", mock.Anything, order.Delivery, deliveryModel.StatusCancelRequested).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelRequested).Return(nil)
		f.points.On("Credit", mock.Anything, "user-1", int64(400)).Return(errors.New("store unavailable"))
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelFailed).Return(nil)

		_, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrRefundNeedsOperator)
		assert.Equal(t, model.CancelFailed, order.CancelStatus)
		f.points.AssertNumberOfCalls(t, "Credit", maxRefundRetry)
		// 库存/配送保持原样
		f.inventories.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Refund succeeds on second attempt", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReady)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.deliveries.On("Transition", mock.Anything, order.Delivery, deliveryModel.StatusCancelRequested).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelRequested).Return(nil)
		f.points.On("Credit", mock.Anything, "user-1", int64(400)).Return(errors.New("deadlock detected")).Once()
		f.points.On("Credit", mock.Anything, "user-1", int64(400)).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelCompleted).Return(nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusWithdraw).Return(nil)
		f.deliveries.On("Transition", mock.Anything, mock.AnythingOfType("*model.Delivery"), deliveryModel.StatusReturned).Return(nil)
		f.inventories.On("Restore", mock.Anything, "unit-1", 2).Return(nil)

		result, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusWithdraw, result.Status)
		f.points.AssertNumberOfCalls(t, "Credit", 2)
	})

	t.Run("Pending order not eligible", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrWithdrawDenied)
	})

	t.Run("Cancel already requested not eligible", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReady)
		order.CancelStatus = model.CancelRequested
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrWithdrawDenied)
	})

	t.Run("Returned delivery not eligible", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReturned)
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.WithdrawOrder(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrWithdrawDenied)
	})
}

func TestHandleReturnArrived(t *testing.T) {
	ctx := context.Background()

	t.Run("Physical return resumes the refund", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReturnRequested)
		order.CancelStatus = model.CancelRequested
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.points.On("Credit", mock.Anything, "user-1", int64(400)).Return(nil)
		f.orders.On("UpdateCancelStatus", mock.Anything, "order-1", model.CancelCompleted).Return(nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusWithdraw).Return(nil)
		f.deliveries.On("Transition", mock.Anything, mock.AnythingOfType("*model.Delivery"), deliveryModel.StatusReturned).Return(nil)
		f.inventories.On("Restore", mock.Anything, "unit-1", 2).Return(nil)

		result, err := f.service.HandleReturnArrived(ctx, "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusWithdraw, result.Status)
		assert.Equal(t, deliveryModel.StatusReturned, result.Delivery.Status)
	})

	t.Run("No pending return request", func(t *testing.T) {
		f := newFixture()
		order := succeededOrder(deliveryModel.StatusReady)
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.HandleReturnArrived(ctx, "order-1")

		assert.ErrorIs(t, err, ErrOrderStateIllegal)
	})
}
