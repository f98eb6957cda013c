package service

import (
	"errors"
	"fmt"
	"order_fulfillment/internal/domain/delivery/model"
	"order_fulfillment/internal/domain/delivery/repository"

	"gorm.io/gorm"
)

var (
	// ErrDeliveryNotFound 配送记录不存在
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrIllegalTransition 非法的配送状态流转
	ErrIllegalTransition = errors.New("illegal delivery status transition")
)

// DeliveryService 配送记录管理
type DeliveryService interface {
	// Attach 在支付步骤为订单挂接 READY 状态的配送记录
	Attach(tx *gorm.DB, orderID, address string) (*model.Delivery, error)

	GetByOrderID(orderID string) (*model.Delivery, error)

	// Transition 按状态机流转配送状态，非法流转返回 ErrIllegalTransition
	Transition(tx *gorm.DB, delivery *model.Delivery, to string) error

	// Remove 删除订单的配送记录（补偿路径）
	Remove(tx *gorm.DB, orderID string) error
}

type deliveryService struct {
	repo repository.DeliveryRepository
}

// NewDeliveryService 创建配送服务
func NewDeliveryService(repo repository.DeliveryRepository) DeliveryService {
	return &deliveryService{repo: repo}
}

func (s *deliveryService) Attach(tx *gorm.DB, orderID, address string) (*model.Delivery, error) {
	delivery := &model.Delivery{
		OrderID: orderID,
		Status:  model.StatusReady,
		Address: address,
	}
	if err := s.repo.Create(tx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *deliveryService) GetByOrderID(orderID string) (*model.Delivery, error) {
	delivery, err := s.repo.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return delivery, nil
}

func (s *deliveryService) Transition(tx *gorm.DB, delivery *model.Delivery, to string) error {
	if !model.CanTransition(delivery.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, delivery.Status, to)
	}

	if err := s.repo.UpdateStatus(tx, delivery.ID, to); err != nil {
		return err
	}

	delivery.Status = to
	return nil
}

func (s *deliveryService) Remove(tx *gorm.DB, orderID string) error {
	return s.repo.DeleteByOrderID(tx, orderID)
}
