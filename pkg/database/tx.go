package database

import (
	"context"

	"gorm.io/gorm"
)

// TxManager 显式事务边界管理器。
// 订单主流程、库存预占、每次支付重试各自独立提交，
// 后置步骤失败不会回滚前置步骤，回滚逻辑全部走显式补偿。
type TxManager interface {
	// RunInTx 在当前作用域内执行事务；嵌套调用时通过 SavePoint 加入外层事务
	RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// RunIsolated 总是在根连接上开启全新事务，与调用方的事务上下文无关。
	// 库存预占和支付重试使用此入口，保证各自独立提交。
	RunIsolated(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器（db 必须是根连接，不能是事务句柄）
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

func (m *gormTxManager) RunIsolated(ctx context.Context, fn func(tx *gorm.DB) error) error {
	// NewDB 会话丢弃所有继承的语句状态，确保从连接池获取新连接开启事务
	fresh := m.db.Session(&gorm.Session{NewDB: true})
	return fresh.WithContext(ctx).Transaction(fn)
}
