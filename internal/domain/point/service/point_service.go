package service

import (
	"errors"
	"order_fulfillment/internal/domain/point/repository"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientPoints 积分余额不足
	ErrInsufficientPoints = errors.New("insufficient point balance")
	// ErrPointAccountNotFound 积分账户不存在
	ErrPointAccountNotFound = errors.New("point account not found")
)

// PointLedger 积分账本：带余额校验的扣减/返还。
// 所有变更都在调用方事务内、持行锁完成。
type PointLedger interface {
	// Debit 扣减积分，余额不足时返回 ErrInsufficientPoints
	Debit(tx *gorm.DB, userID string, amount int64) error

	// Credit 返还积分。amount 可为负（退款时回收已赠送的积分）
	Credit(tx *gorm.DB, userID string, amount int64) error
}

type pointLedger struct {
	repo repository.PointRepository
}

// NewPointLedger 创建积分账本
func NewPointLedger(repo repository.PointRepository) PointLedger {
	return &pointLedger{repo: repo}
}

func (l *pointLedger) Debit(tx *gorm.DB, userID string, amount int64) error {
	if amount == 0 {
		return nil
	}

	balance, err := l.repo.GetBalanceForUpdate(tx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPointAccountNotFound
		}
		return err
	}

	if balance < amount {
		return ErrInsufficientPoints
	}

	return l.repo.SetBalance(tx, userID, balance-amount)
}

func (l *pointLedger) Credit(tx *gorm.DB, userID string, amount int64) error {
	if amount == 0 {
		return nil
	}

	balance, err := l.repo.GetBalanceForUpdate(tx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPointAccountNotFound
		}
		return err
	}

	return l.repo.SetBalance(tx, userID, balance+amount)
}
