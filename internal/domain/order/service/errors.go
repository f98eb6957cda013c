package service

import "errors"

// 校验类错误：同步返回，事务原子中止，无部分写入
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrNoOrderLines      = errors.New("order must contain at least one line")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPointUsage = errors.New("point usage exceeds order total")
	ErrAmountMismatch    = errors.New("payment amount does not match order total")
	ErrOrderStateIllegal = errors.New("illegal order state for this operation")
	ErrOrderExpired      = errors.New("order has expired")
	ErrWithdrawDenied    = errors.New("order is not eligible for withdrawal")
	ErrPaymentNotFound   = errors.New("no payment attempt found for order")
)

// 支付/补偿类错误
var (
	// ErrPaymentRetryRequired 网关终结失败或自动重试耗尽。
	// 订单保持 PENDING，调用方可发起人工重试，或等过期清扫回收。
	ErrPaymentRetryRequired = errors.New("payment retry required")

	// ErrRefundStoreFailure 积分退还的存储层错误，直接上抛给调用方/运维
	ErrRefundStoreFailure = errors.New("point refund store failure")

	// ErrRefundNeedsOperator 退款重试耗尽，cancelStatus 进入终态 FAILED，需人工介入
	ErrRefundNeedsOperator = errors.New("refund retries exhausted, manual handling required")
)
