package model

import (
	deliveryModel "order_fulfillment/internal/domain/delivery/model"
	paymentModel "order_fulfillment/internal/domain/payment/model"
	baseModel "order_fulfillment/pkg/model"
	"time"
)

// Order 订单。TotalAmount 在创建时快照，之后不再重算；
// 状态流转只走固定路径，WITHDRAW/FAILED 为终态。
type Order struct {
	baseModel.BaseModel
	OrderNo      string    `gorm:"uniqueIndex;not null" json:"orderNo"` // 网关侧订单号 ORD-<ts>-<rand>
	UserID       string    `gorm:"type:uuid;index" json:"userId"`
	Status       string    `gorm:"default:'PENDING'" json:"status"`
	CancelStatus string    `gorm:"default:'NONE'" json:"cancelStatus"`
	TotalAmount  int64     `json:"totalAmount"` // 创建时快照（分）
	PointUsage   int64     `json:"pointUsage"`  // 使用的积分
	PointSave    int64     `json:"pointSave"`   // 成功后赠送的积分
	ExpireAt     time.Time `json:"expireAt"`
	OrderedAt    time.Time `json:"orderedAt"`

	Details  []OrderDetail           `gorm:"foreignKey:OrderID" json:"details"`
	Payments []paymentModel.Payment  `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	Delivery *deliveryModel.Delivery `gorm:"foreignKey:OrderID" json:"delivery,omitempty"`
}

const (
	StatusPending   = "PENDING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusWithdraw  = "WITHDRAW"

	CancelNone      = "NONE"
	CancelRequested = "REQUESTED"
	CancelCompleted = "COMPLETED"
	CancelFailed    = "FAILED"
)

// IsExpired 订单是否已过支付期限
func (o *Order) IsExpired(now time.Time) bool {
	return now.After(o.ExpireAt)
}

// OrderDetail 订单明细：下单时对库存单元的价格/品牌/尺码快照。
// CartLineID 回指来源购物车行，补偿时据此重建。
type OrderDetail struct {
	baseModel.BaseModel
	OrderID       string  `gorm:"type:uuid;index" json:"orderId"`
	ProductUnitID string  `gorm:"type:uuid" json:"productUnitId"`
	ProductName   string  `json:"productName"`
	Brand         string  `json:"brand"`
	Size          string  `json:"size"`
	Price         int64   `json:"price"` // 下单时单价快照（分）
	Quantity      int     `json:"quantity"`
	CartLineID    *string `gorm:"type:uuid" json:"cartLineId,omitempty"`
}
