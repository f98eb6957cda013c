package repository

import (
	"order_fulfillment/internal/domain/review/model"

	"gorm.io/gorm"
)

// ReviewRepository 评价仓库
type ReviewRepository interface {
	DeleteByOrderDetailIDs(tx *gorm.DB, detailIDs []string) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓库
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// DeleteByOrderDetailIDs 删除明细关联的评价（过期清扫先清理依赖行）
func (r *reviewRepository) DeleteByOrderDetailIDs(tx *gorm.DB, detailIDs []string) error {
	if len(detailIDs) == 0 {
		return nil
	}
	return r.conn(tx).
		Where("order_detail_id IN ?", detailIDs).
		Delete(&model.Review{}).Error
}
