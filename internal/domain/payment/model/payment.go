package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// Payment 支付尝试记录。一个订单可能有多行，最新一行为准。
type Payment struct {
	baseModel.BaseModel
	OrderID         string `gorm:"type:uuid;index" json:"orderId"`
	UserID          string `gorm:"type:uuid" json:"userId"`
	Status          string `gorm:"default:'PENDING'" json:"status"`
	RetryCount      int    `json:"retryCount"`
	PaymentKey      string `json:"paymentKey"`      // 网关侧支付凭证
	ExternalOrderNo string `json:"externalOrderNo"` // 网关侧订单号（orders.order_no）
	Amount          int64  `json:"amount"`          // 实际请款金额（分）
}

const (
	StatusPending  = "PENDING"  // 网关未给出定论（如 5xx）
	StatusFailed   = "FAILED"   // 网关明确拒绝（如 4xx）
	StatusApproved = "APPROVED" // 请款成功
)
