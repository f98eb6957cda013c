package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// Delivery 配送记录，每个订单最多一条。状态驱动退货/退款分支。
type Delivery struct {
	baseModel.BaseModel
	OrderID string `gorm:"type:uuid;uniqueIndex" json:"orderId"`
	Status  string `gorm:"default:'READY'" json:"status"`
	Address string `json:"address"`
}

const (
	StatusReady           = "READY"
	StatusCancelRequested = "CANCEL_REQUESTED"
	StatusReturnRequested = "RETURN_REQUESTED"
	StatusArrived         = "ARRIVED"
	StatusReturned        = "RETURNED"
)

// legalTransitions 配送状态机
var legalTransitions = map[string][]string{
	StatusReady:           {StatusCancelRequested, StatusArrived},
	StatusArrived:         {StatusReturnRequested},
	StatusCancelRequested: {StatusReturned},
	StatusReturnRequested: {StatusReturned},
	StatusReturned:        {},
}

// CanTransition 判断状态流转是否合法
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
