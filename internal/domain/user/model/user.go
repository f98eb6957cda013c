package model

import (
	baseModel "order_fulfillment/pkg/model"
)

// User 用户模型
type User struct {
	baseModel.BaseModel
	Nickname string `json:"nickname"`
	Mobile   string `gorm:"unique" json:"mobile"`
	Role     int    `gorm:"default:1" json:"role"`
	Points   int64  `gorm:"default:0" json:"points"` // 积分余额，只允许在行锁内变更
}

const (
	RoleUser  = 1
	RoleAdmin = 2
)
