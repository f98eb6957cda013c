package service

import (
	"context"
	"testing"
	"time"

	deliveryModel "order_fulfillment/internal/domain/delivery/model"
	"order_fulfillment/internal/domain/order/model"
	paymentModel "order_fulfillment/internal/domain/payment/model"
	paymentService "order_fulfillment/internal/domain/payment/service"
	baseModel "order_fulfillment/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func approvedTransition() paymentService.Transition {
	return paymentService.Transition{PaymentStatus: paymentModel.StatusApproved, Finalize: true}
}

func failedTransition() paymentService.Transition {
	return paymentService.Transition{PaymentStatus: paymentModel.StatusFailed, RetryRequired: true}
}

func payInput(order *model.Order) PayInput {
	return PayInput{
		PaymentKey: "pay-key-1",
		Amount:     order.TotalAmount - order.PointUsage,
		Address:    "1 Test Street",
	}
}

func expectReservation(f *orderServiceFixture, order *model.Order) {
	f.payments.On("CountByOrderID", mock.Anything, order.ID).Return(int64(0), nil)
	f.orders.On("GetByIDForUpdate", mock.Anything, order.ID).Return(order, nil)
	for _, d := range order.Details {
		f.inventories.On("Reserve", mock.Anything, d.ProductUnitID, d.Quantity).Return(nil)
	}
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
}

func expectDebitAndDelivery(f *orderServiceFixture, order *model.Order) {
	f.points.On("Debit", mock.Anything, order.UserID, order.PointUsage).Return(nil)
	f.deliveries.On("Attach", mock.Anything, order.ID, mock.AnythingOfType("string")).
		Return(&deliveryModel.Delivery{
			BaseModel: baseModel.BaseModel{ID: "delivery-1"},
			OrderID:   order.ID,
			Status:    deliveryModel.StatusReady,
		}, nil)
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Approved payment finalizes the order", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)
		expectReservation(f, order)
		expectDebitAndDelivery(f, order)
		f.engine.On("Confirm", ctx, mock.AnythingOfType("*model.Payment")).Return(approvedTransition(), nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusSucceeded).Return(nil)
		f.points.On("Credit", mock.Anything, "user-1", order.PointSave).Return(nil)

		result, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.NoError(t, err)
		assert.Equal(t, model.StatusSucceeded, result.Status)
		f.inventories.AssertCalled(t, "Reserve", mock.Anything, "unit-1", 2)
		f.engine.AssertExpectations(t)
		f.orders.AssertExpectations(t)
	})

	t.Run("Failed payment leaves reservation committed", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)
		expectReservation(f, order)
		expectDebitAndDelivery(f, order)
		f.engine.On("Confirm", ctx, mock.AnythingOfType("*model.Payment")).Return(failedTransition(), nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.ErrorIs(t, err, ErrPaymentRetryRequired)
		// 预占已提交：不回补库存，订单保持 PENDING
		f.inventories.AssertCalled(t, "Reserve", mock.Anything, "unit-1", 2)
		f.inventories.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Existing payment row skips re-reservation", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		order.Delivery = &deliveryModel.Delivery{
			BaseModel: baseModel.BaseModel{ID: "delivery-1"},
			OrderID:   "order-1",
			Status:    deliveryModel.StatusReady,
		}
		existing := &paymentModel.Payment{
			BaseModel:       baseModel.BaseModel{ID: "payment-1"},
			OrderID:         "order-1",
			UserID:          "user-1",
			Status:          paymentModel.StatusFailed,
			PaymentKey:      "pay-key-1",
			ExternalOrderNo: order.OrderNo,
			Amount:          order.TotalAmount - order.PointUsage,
		}
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("CountByOrderID", mock.Anything, "order-1").Return(int64(1), nil)
		f.payments.On("GetLatestByOrderID", "order-1").Return(existing, nil)
		f.engine.On("Confirm", ctx, existing).Return(approvedTransition(), nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusSucceeded).Return(nil)
		f.points.On("Credit", mock.Anything, "user-1", order.PointSave).Return(nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.NoError(t, err)
		f.inventories.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
		f.points.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Amount mismatch rejected before any write", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", PayInput{
			PaymentKey: "pay-key-1",
			Amount:     order.TotalAmount, // point usage not subtracted
		})

		assert.ErrorIs(t, err, ErrAmountMismatch)
		f.payments.AssertNotCalled(t, "CountByOrderID", mock.Anything, mock.Anything)
	})

	t.Run("Expired order rejected", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		order.ExpireAt = time.Now().Add(-time.Hour)
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.ErrorIs(t, err, ErrOrderExpired)
	})

	t.Run("Non pending order rejected", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		order.Status = model.StatusSucceeded
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.ErrorIs(t, err, ErrOrderStateIllegal)
	})

	t.Run("Reservation failure aborts before the gateway", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("CountByOrderID", mock.Anything, "order-1").Return(int64(0), nil)
		f.orders.On("GetByIDForUpdate", mock.Anything, "order-1").Return(order, nil)
		f.inventories.On("Reserve", mock.Anything, "unit-1", 2).Return(gorm.ErrInvalidTransaction)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.Error(t, err)
		f.engine.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("Order reclaimed by the sweep before reservation commits", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("CountByOrderID", mock.Anything, "order-1").Return(int64(0), nil)
		// 锁行读已经读不到订单：清扫的补偿先提交了删除
		f.orders.On("GetByIDForUpdate", mock.Anything, "order-1").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.ErrorIs(t, err, ErrOrderNotFound)
		f.inventories.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
		f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.engine.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("Expiry is rechecked under the row lock", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		locked := testOrder("order-1", "user-1")
		locked.ExpireAt = time.Now().Add(-time.Second)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("CountByOrderID", mock.Anything, "order-1").Return(int64(0), nil)
		f.orders.On("GetByIDForUpdate", mock.Anything, "order-1").Return(locked, nil)

		_, err := f.service.ProcessPayment(ctx, "user-1", "order-1", payInput(order))

		assert.ErrorIs(t, err, ErrOrderExpired)
		f.inventories.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRetryPayment(t *testing.T) {
	ctx := context.Background()

	latestPayment := func(order *model.Order) *paymentModel.Payment {
		return &paymentModel.Payment{
			BaseModel:       baseModel.BaseModel{ID: "payment-9"},
			OrderID:         order.ID,
			UserID:          order.UserID,
			Status:          paymentModel.StatusFailed,
			RetryCount:      1,
			PaymentKey:      "pay-key-1",
			ExternalOrderNo: order.OrderNo,
			Amount:          order.TotalAmount - order.PointUsage,
		}
	}

	t.Run("Manual retry approval finalizes", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		latest := latestPayment(order)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("GetLatestByOrderID", "order-1").Return(latest, nil)
		f.engine.On("RetryOnce", ctx, latest).Return(approvedTransition(), nil)
		f.orders.On("UpdateStatus", mock.Anything, "order-1", model.StatusSucceeded).Return(nil)
		f.points.On("Credit", mock.Anything, "user-1", order.PointSave).Return(nil)

		result, err := f.service.RetryPayment(ctx, "user-1", "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusSucceeded, result.Status)
	})

	t.Run("Manual retry failure surfaces retry required", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		latest := latestPayment(order)
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("GetLatestByOrderID", "order-1").Return(latest, nil)
		f.engine.On("RetryOnce", ctx, latest).Return(failedTransition(), nil)

		_, err := f.service.RetryPayment(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrPaymentRetryRequired)
	})

	t.Run("No payment attempt yet", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		f.orders.On("GetByID", "order-1").Return(order, nil)
		f.payments.On("GetLatestByOrderID", "order-1").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.service.RetryPayment(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("Expired order cannot be retried", func(t *testing.T) {
		f := newFixture()
		order := testOrder("order-1", "user-1")
		order.ExpireAt = time.Now().Add(-time.Minute)
		f.orders.On("GetByID", "order-1").Return(order, nil)

		_, err := f.service.RetryPayment(ctx, "user-1", "order-1")

		assert.ErrorIs(t, err, ErrOrderExpired)
		f.engine.AssertNotCalled(t, "RetryOnce", mock.Anything, mock.Anything)
	})
}
