package service

import (
	"testing"

	"order_fulfillment/internal/domain/delivery/model"
	baseModel "order_fulfillment/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockDeliveryRepository is a mock of DeliveryRepository
type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(tx *gorm.DB, delivery *model.Delivery) error {
	args := m.Called(tx, delivery)
	return args.Error(0)
}

func (m *MockDeliveryRepository) GetByOrderID(orderID string) (*model.Delivery, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	args := m.Called(tx, id, status)
	return args.Error(0)
}

func (m *MockDeliveryRepository) DeleteByOrderID(tx *gorm.DB, orderID string) error {
	args := m.Called(tx, orderID)
	return args.Error(0)
}

func testDelivery(status string) *model.Delivery {
	return &model.Delivery{
		BaseModel: baseModel.BaseModel{ID: "delivery-1"},
		OrderID:   "order-1",
		Status:    status,
	}
}

func TestAttach(t *testing.T) {
	t.Run("New delivery starts ready", func(t *testing.T) {
		repo := new(MockDeliveryRepository)
		svc := NewDeliveryService(repo)

		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Delivery")).Return(nil)

		delivery, err := svc.Attach(nil, "order-1", "1 Test Street")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusReady, delivery.Status)
		assert.Equal(t, "order-1", delivery.OrderID)
		repo.AssertExpectations(t)
	})
}

func TestTransition(t *testing.T) {
	legal := []struct{ from, to string }{
		{model.StatusReady, model.StatusCancelRequested},
		{model.StatusReady, model.StatusArrived},
		{model.StatusArrived, model.StatusReturnRequested},
		{model.StatusCancelRequested, model.StatusReturned},
		{model.StatusReturnRequested, model.StatusReturned},
	}

	t.Run("Legal transitions update the row and the struct", func(t *testing.T) {
		for _, c := range legal {
			repo := new(MockDeliveryRepository)
			svc := NewDeliveryService(repo)
			delivery := testDelivery(c.from)

			repo.On("UpdateStatus", mock.Anything, "delivery-1", c.to).Return(nil)

			err := svc.Transition(nil, delivery, c.to)

			assert.NoError(t, err)
			assert.Equal(t, c.to, delivery.Status)
		}
	})

	t.Run("Illegal transitions rejected", func(t *testing.T) {
		illegal := []struct{ from, to string }{
			{model.StatusReady, model.StatusReturned},
			{model.StatusReady, model.StatusReturnRequested},
			{model.StatusArrived, model.StatusCancelRequested},
			{model.StatusReturned, model.StatusReady},
			{model.StatusReturned, model.StatusReturned},
		}

		for _, c := range illegal {
			repo := new(MockDeliveryRepository)
			svc := NewDeliveryService(repo)
			delivery := testDelivery(c.from)

			err := svc.Transition(nil, delivery, c.to)

			assert.ErrorIs(t, err, ErrIllegalTransition)
			assert.Equal(t, c.from, delivery.Status)
			repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		}
	})
}

func TestGetByOrderID(t *testing.T) {
	t.Run("Missing delivery", func(t *testing.T) {
		repo := new(MockDeliveryRepository)
		svc := NewDeliveryService(repo)

		repo.On("GetByOrderID", "ghost").Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.GetByOrderID("ghost")

		assert.ErrorIs(t, err, ErrDeliveryNotFound)
	})
}
