package repository

import (
	"order_fulfillment/internal/domain/cart/model"

	"gorm.io/gorm"
)

// CartRepository 购物车仓库
type CartRepository interface {
	GetByID(id string) (*model.CartLine, error)
	Create(tx *gorm.DB, line *model.CartLine) error
	Delete(tx *gorm.DB, id string) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetByID 根据ID获取购物车行
func (r *cartRepository) GetByID(id string) (*model.CartLine, error) {
	var line model.CartLine
	if err := r.db.Where("id = ?", id).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// Create 创建购物车行（补偿路径会重建下单时删除的行）
func (r *cartRepository) Create(tx *gorm.DB, line *model.CartLine) error {
	return r.conn(tx).Create(line).Error
}

// Delete 删除购物车行
func (r *cartRepository) Delete(tx *gorm.DB, id string) error {
	return r.conn(tx).Where("id = ?", id).Delete(&model.CartLine{}).Error
}
