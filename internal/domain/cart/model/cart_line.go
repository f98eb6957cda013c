package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// CartLine 购物车行
type CartLine struct {
	baseModel.BaseModel
	UserID        string `gorm:"type:uuid;index" json:"userId"`
	ProductUnitID string `gorm:"type:uuid" json:"productUnitId"`
	Quantity      int    `json:"quantity"`
}
