package service

import (
	"context"
	"os"
	"testing"
	"time"

	cartModel "order_fulfillment/internal/domain/cart/model"
	deliveryModel "order_fulfillment/internal/domain/delivery/model"
	inventoryModel "order_fulfillment/internal/domain/inventory/model"
	"order_fulfillment/internal/domain/order/model"
	paymentModel "order_fulfillment/internal/domain/payment/model"
	paymentService "order_fulfillment/internal/domain/payment/service"
	userModel "order_fulfillment/internal/domain/user/model"
	baseModel "order_fulfillment/pkg/model"
	"order_fulfillment/pkg/logger"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeTxManager 直接以 nil 事务句柄执行回调，仓库 mock 不关心事务
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (fakeTxManager) RunIsolated(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(tx *gorm.DB, order *model.Order) error {
	args := m.Called(tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(tx *gorm.DB, id string) (*model.Order, error) {
	args := m.Called(tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(userID string, offset, limit int) ([]model.Order, int64, error) {
	args := m.Called(userID, offset, limit)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	args := m.Called(tx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateCancelStatus(tx *gorm.DB, id string, cancelStatus string) error {
	args := m.Called(tx, id, cancelStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(tx *gorm.DB, order *model.Order) error {
	args := m.Called(tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindExpiredPending(now time.Time) ([]model.Order, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockUserRepository is a mock of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *userModel.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*userModel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepository) GetByMobile(mobile string) (*userModel.User, error) {
	args := m.Called(mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *userModel.User) error {
	args := m.Called(user)
	return args.Error(0)
}

// MockCartRepository is a mock of CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetByID(id string) (*cartModel.CartLine, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartModel.CartLine), args.Error(1)
}

func (m *MockCartRepository) Create(tx *gorm.DB, line *cartModel.CartLine) error {
	args := m.Called(tx, line)
	return args.Error(0)
}

func (m *MockCartRepository) Delete(tx *gorm.DB, id string) error {
	args := m.Called(tx, id)
	return args.Error(0)
}

// MockReviewRepository is a mock of ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) DeleteByOrderDetailIDs(tx *gorm.DB, detailIDs []string) error {
	args := m.Called(tx, detailIDs)
	return args.Error(0)
}

// MockPaymentRepository is a mock of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(tx *gorm.DB, payment *paymentModel.Payment) error {
	args := m.Called(tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	args := m.Called(tx, id, status)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetLatestByOrderID(orderID string) (*paymentModel.Payment, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentModel.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CountByOrderID(tx *gorm.DB, orderID string) (int64, error) {
	args := m.Called(tx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) DeleteByOrderID(tx *gorm.DB, orderID string) error {
	args := m.Called(tx, orderID)
	return args.Error(0)
}

// MockInventoryService is a mock of InventoryService
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) Resolve(unitID string, quantity int) (*inventoryModel.ProductUnit, error) {
	args := m.Called(unitID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryModel.ProductUnit), args.Error(1)
}

func (m *MockInventoryService) Reserve(tx *gorm.DB, unitID string, quantity int) error {
	args := m.Called(tx, unitID, quantity)
	return args.Error(0)
}

func (m *MockInventoryService) Restore(tx *gorm.DB, unitID string, quantity int) error {
	args := m.Called(tx, unitID, quantity)
	return args.Error(0)
}

// MockPointLedger is a mock of PointLedger
type MockPointLedger struct {
	mock.Mock
}

func (m *MockPointLedger) Debit(tx *gorm.DB, userID string, amount int64) error {
	args := m.Called(tx, userID, amount)
	return args.Error(0)
}

func (m *MockPointLedger) Credit(tx *gorm.DB, userID string, amount int64) error {
	args := m.Called(tx, userID, amount)
	return args.Error(0)
}

// MockDeliveryService is a mock of DeliveryService
type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Attach(tx *gorm.DB, orderID, address string) (*deliveryModel.Delivery, error) {
	args := m.Called(tx, orderID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliveryModel.Delivery), args.Error(1)
}

func (m *MockDeliveryService) GetByOrderID(orderID string) (*deliveryModel.Delivery, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliveryModel.Delivery), args.Error(1)
}

func (m *MockDeliveryService) Transition(tx *gorm.DB, delivery *deliveryModel.Delivery, to string) error {
	args := m.Called(tx, delivery, to)
	if args.Error(0) == nil {
		delivery.Status = to
	}
	return args.Error(0)
}

func (m *MockDeliveryService) Remove(tx *gorm.DB, orderID string) error {
	args := m.Called(tx, orderID)
	return args.Error(0)
}

// MockPaymentEngine is a mock of PaymentEngine
type MockPaymentEngine struct {
	mock.Mock
}

func (m *MockPaymentEngine) Confirm(ctx context.Context, payment *paymentModel.Payment) (paymentService.Transition, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(paymentService.Transition), args.Error(1)
}

func (m *MockPaymentEngine) RetryOnce(ctx context.Context, latest *paymentModel.Payment) (paymentService.Transition, error) {
	args := m.Called(ctx, latest)
	return args.Get(0).(paymentService.Transition), args.Error(1)
}

// orderServiceFixture 组装一套全 mock 的编排服务
type orderServiceFixture struct {
	orders      *MockOrderRepository
	users       *MockUserRepository
	carts       *MockCartRepository
	reviews     *MockReviewRepository
	payments    *MockPaymentRepository
	inventories *MockInventoryService
	points      *MockPointLedger
	deliveries  *MockDeliveryService
	engine      *MockPaymentEngine
	service     OrderService
}

func newFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		orders:      new(MockOrderRepository),
		users:       new(MockUserRepository),
		carts:       new(MockCartRepository),
		reviews:     new(MockReviewRepository),
		payments:    new(MockPaymentRepository),
		inventories: new(MockInventoryService),
		points:      new(MockPointLedger),
		deliveries:  new(MockDeliveryService),
		engine:      new(MockPaymentEngine),
	}
	f.service = NewOrderService(
		f.orders, f.users, f.carts, f.reviews, f.payments,
		f.inventories, f.points, f.deliveries,
		f.engine, fakeTxManager{}, nil, 24*time.Hour,
	)
	return f
}

func testUser(id string) *userModel.User {
	return &userModel.User{
		BaseModel: baseModel.BaseModel{ID: id},
		Nickname:  "TestUser",
		Mobile:    "13800138000",
		Role:      userModel.RoleUser,
		Points:    1000,
	}
}

func testUnit(id string, price int64, quantity int) *inventoryModel.ProductUnit {
	return &inventoryModel.ProductUnit{
		BaseModel:   baseModel.BaseModel{ID: id},
		ProductName: "Sneaker",
		Brand:       "Acme",
		Size:        "270",
		Price:       price,
		Quantity:    quantity,
	}
}

func testOrder(id, userID string) *model.Order {
	now := time.Now()
	return &model.Order{
		BaseModel:    baseModel.BaseModel{ID: id},
		OrderNo:      "ORD-1700000000-42",
		UserID:       userID,
		Status:       model.StatusPending,
		CancelStatus: model.CancelNone,
		TotalAmount:  50000,
		PointUsage:   500,
		PointSave:    500,
		ExpireAt:     now.Add(24 * time.Hour),
		OrderedAt:    now,
		Details: []model.OrderDetail{
			{
				BaseModel:     baseModel.BaseModel{ID: "detail-1"},
				OrderID:       id,
				ProductUnitID: "unit-1",
				ProductName:   "Sneaker",
				Brand:         "Acme",
				Size:          "270",
				Price:         25000,
				Quantity:      2,
			},
		},
	}
}
