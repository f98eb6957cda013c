package repository

import (
	userModel "order_fulfillment/internal/domain/user/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointRepository 积分余额仓库。余额只能通过先加行锁再变更的方式访问，
// 不提供无锁的读改写入口。
type PointRepository interface {
	GetBalanceForUpdate(tx *gorm.DB, userID string) (int64, error)
	SetBalance(tx *gorm.DB, userID string, balance int64) error
}

type pointRepository struct {
	db *gorm.DB
}

// NewPointRepository 创建积分仓库
func NewPointRepository(db *gorm.DB) PointRepository {
	return &pointRepository{db: db}
}

func (r *pointRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetBalanceForUpdate 加行锁读取用户积分余额
func (r *pointRepository) GetBalanceForUpdate(tx *gorm.DB, userID string) (int64, error) {
	var user userModel.User
	err := r.conn(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// SetBalance 写入余额（调用方必须已持有该行的锁）
func (r *pointRepository) SetBalance(tx *gorm.DB, userID string, balance int64) error {
	return r.conn(tx).
		Model(&userModel.User{}).
		Where("id = ?", userID).
		Update("points", balance).Error
}
