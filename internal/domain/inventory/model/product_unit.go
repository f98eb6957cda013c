package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// ProductUnit 库存单元（颜色/尺码级别的最小可售单位）。
// Quantity 是共享可变状态，只允许在持有行锁的事务内变更，
// 任何已提交状态下都满足 Quantity >= 0。
type ProductUnit struct {
	baseModel.BaseModel
	ProductName string `json:"productName"`
	Brand       string `json:"brand"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`    // 单价（分）
	Quantity    int    `json:"quantity"` // 可售数量
}
