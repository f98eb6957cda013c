package repository

import (
	"order_fulfillment/internal/domain/delivery/model"

	"gorm.io/gorm"
)

// DeliveryRepository 配送仓库
type DeliveryRepository interface {
	Create(tx *gorm.DB, delivery *model.Delivery) error
	GetByOrderID(orderID string) (*model.Delivery, error)
	UpdateStatus(tx *gorm.DB, id string, status string) error
	DeleteByOrderID(tx *gorm.DB, orderID string) error
}

type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建配送仓库
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create 创建配送记录
func (r *deliveryRepository) Create(tx *gorm.DB, delivery *model.Delivery) error {
	return r.conn(tx).Create(delivery).Error
}

// GetByOrderID 根据订单ID获取配送记录
func (r *deliveryRepository) GetByOrderID(orderID string) (*model.Delivery, error) {
	var delivery model.Delivery
	if err := r.db.Where("order_id = ?", orderID).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// UpdateStatus 更新配送状态
func (r *deliveryRepository) UpdateStatus(tx *gorm.DB, id string, status string) error {
	return r.conn(tx).
		Model(&model.Delivery{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// DeleteByOrderID 删除订单的配送记录
func (r *deliveryRepository) DeleteByOrderID(tx *gorm.DB, orderID string) error {
	return r.conn(tx).
		Where("order_id = ?", orderID).
		Delete(&model.Delivery{}).Error
}
