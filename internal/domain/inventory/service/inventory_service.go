package service

import (
	"errors"
	"order_fulfillment/internal/domain/inventory/model"
	"order_fulfillment/internal/domain/inventory/repository"
	"order_fulfillment/pkg/metrics"

	"gorm.io/gorm"
)

var (
	// ErrProductNotFound 库存单元不存在
	ErrProductNotFound = errors.New("product unit not found")
	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InventoryService 库存账本：无锁校验读 + 行锁内的预占/返还。
// 预占的扣减一旦提交，后续支付失败不会自动回补，只能走显式补偿。
type InventoryService interface {
	// Resolve 读取库存单元并校验请求数量（只读，不扣减）
	Resolve(unitID string, quantity int) (*model.ProductUnit, error)

	// Reserve 锁行、复核数量、扣减。任何一行失败都应由调用方中止整个预占事务
	Reserve(tx *gorm.DB, unitID string, quantity int) error

	// Restore 锁行、回补数量（补偿/退货路径）
	Restore(tx *gorm.DB, unitID string, quantity int) error
}

type inventoryService struct {
	repo repository.InventoryRepository
}

// NewInventoryService 创建库存服务
func NewInventoryService(repo repository.InventoryRepository) InventoryService {
	return &inventoryService{repo: repo}
}

func (s *inventoryService) Resolve(unitID string, quantity int) (*model.ProductUnit, error) {
	unit, err := s.repo.GetByID(unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if unit.Quantity < quantity {
		return nil, ErrInsufficientStock
	}

	return unit, nil
}

func (s *inventoryService) Reserve(tx *gorm.DB, unitID string, quantity int) error {
	unit, err := s.repo.GetForUpdate(tx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	// 下单校验到此处之间库存可能已被并发消耗，持锁后必须复核
	if unit.Quantity < quantity {
		metrics.Default.RecordReservationConflict()
		return ErrInsufficientStock
	}

	if err := s.repo.SetQuantity(tx, unit.ID, unit.Quantity-quantity); err != nil {
		return err
	}

	metrics.Default.RecordReservation()
	return nil
}

func (s *inventoryService) Restore(tx *gorm.DB, unitID string, quantity int) error {
	unit, err := s.repo.GetForUpdate(tx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	return s.repo.SetQuantity(tx, unit.ID, unit.Quantity+quantity)
}
