package repository

import (
	"order_fulfillment/internal/domain/payment/model"

	"gorm.io/gorm"
)

// PaymentRepository 支付记录仓库
type PaymentRepository interface {
	Create(tx *gorm.DB, payment *model.Payment) error
	UpdateStatus(tx *gorm.DB, id string, status string) error
	GetLatestByOrderID(orderID string) (*model.Payment, error)
	CountByOrderID(tx *gorm.DB, orderID string) (int64, error)
	DeleteByOrderID(tx *gorm.DB, orderID string) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create 追加一条支付尝试记录
func (r *paymentRepository) Create(tx *gorm.DB, payment *model.Payment) error {
	return r.conn(tx).Create(payment).Error
}

// UpdateStatus 更新支付状态
func (r *paymentRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	return r.conn(tx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// GetLatestByOrderID 获取订单最新一条支付记录（以此为准）
func (r *paymentRepository) GetLatestByOrderID(orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CountByOrderID 统计订单的支付记录数（预占幂等守卫）。
// 补偿路径必须在自己的事务内统计，否则读不到并发预占刚提交的支付行。
func (r *paymentRepository) CountByOrderID(tx *gorm.DB, orderID string) (int64, error) {
	var count int64
	err := r.conn(tx).
		Model(&model.Payment{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

// DeleteByOrderID 删除订单的全部支付记录（补偿级联）
func (r *paymentRepository) DeleteByOrderID(tx *gorm.DB, orderID string) error {
	return r.conn(tx).
		Where("order_id = ?", orderID).
		Delete(&model.Payment{}).Error
}
