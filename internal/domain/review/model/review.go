package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// Review 订单明细上的评价
type Review struct {
	baseModel.BaseModel
	OrderDetailID string `gorm:"type:uuid;index" json:"orderDetailId"`
	UserID        string `gorm:"type:uuid" json:"userId"`
	Rating        int    `json:"rating"`
	Content       string `json:"content"`
}
