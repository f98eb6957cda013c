package repository

import (
	"order_fulfillment/internal/domain/order/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单仓库
type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	GetByID(id string) (*model.Order, error)
	GetByIDForUpdate(tx *gorm.DB, id string) (*model.Order, error)
	ListByUser(userID string, offset, limit int) ([]model.Order, int64, error)
	UpdateStatus(tx *gorm.DB, id string, status string) error
	UpdateCancelStatus(tx *gorm.DB, id string, cancelStatus string) error
	Delete(tx *gorm.DB, order *model.Order) error
	FindExpiredPending(now time.Time) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create 创建订单及其明细
func (r *orderRepository) Create(tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).Create(order).Error
}

// GetByID 获取订单（含明细/支付记录/配送）
func (r *orderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	err := r.db.
		Preload("Details").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Delivery").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 以行锁读取订单（不带关联）。
// 预占与补偿都先锁这一行再动库存/支付记录，彼此串行化。
func (r *orderRepository) GetByIDForUpdate(tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser 获取用户订单历史（分页，新单在前）
func (r *orderRepository) ListByUser(userID string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := r.db.Model(&model.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Preload("Details").
		Preload("Delivery").
		Where("user_id = ?", userID).
		Order("ordered_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus 更新订单状态
func (r *orderRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	return r.conn(tx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateCancelStatus 更新取消状态
func (r *orderRepository) UpdateCancelStatus(tx *gorm.DB, id string, cancelStatus string) error {
	return r.conn(tx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("cancel_status", cancelStatus).Error
}

// Delete 删除订单及级联明细
func (r *orderRepository) Delete(tx *gorm.DB, order *model.Order) error {
	conn := r.conn(tx)

	if err := conn.Where("order_id = ?", order.ID).Delete(&model.OrderDetail{}).Error; err != nil {
		return err
	}
	return conn.Delete(order).Error
}

// FindExpiredPending 查找超过支付期限仍处于 PENDING 的订单
func (r *orderRepository) FindExpiredPending(now time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.
		Preload("Details").
		Preload("Payments").
		Preload("Delivery").
		Where("status = ? AND expire_at < ?", model.StatusPending, now).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
