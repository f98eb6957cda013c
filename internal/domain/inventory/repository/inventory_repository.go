package repository

import (
	"order_fulfillment/internal/domain/inventory/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 库存仓库
type InventoryRepository interface {
	GetByID(id string) (*model.ProductUnit, error)
	GetByIDs(ids []string) ([]model.ProductUnit, error)

	// GetForUpdate 加行锁读取库存单元（SELECT ... FOR UPDATE）
	GetForUpdate(tx *gorm.DB, id string) (*model.ProductUnit, error)

	// SetQuantity 写入数量（调用方必须已持有该行的锁）
	SetQuantity(tx *gorm.DB, id string, quantity int) error
}

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetByID 根据ID获取库存单元（无锁读，用于下单校验）
func (r *inventoryRepository) GetByID(id string) (*model.ProductUnit, error) {
	var unit model.ProductUnit
	if err := r.db.Where("id = ?", id).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetByIDs 批量获取库存单元
func (r *inventoryRepository) GetByIDs(ids []string) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	if err := r.db.Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// GetForUpdate 加行锁读取库存单元
func (r *inventoryRepository) GetForUpdate(tx *gorm.DB, id string) (*model.ProductUnit, error) {
	var unit model.ProductUnit
	err := r.conn(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// SetQuantity 写入数量
func (r *inventoryRepository) SetQuantity(tx *gorm.DB, id string, quantity int) error {
	return r.conn(tx).
		Model(&model.ProductUnit{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}
