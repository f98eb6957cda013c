package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 订单模块错误 300xx
	ErrOrderNotFound     = 30001
	ErrOrderStateIllegal = 30002
	ErrOrderExpired      = 30003
	ErrCartLineNotFound  = 30004
	ErrAmountMismatch    = 30005
	ErrWithdrawDenied    = 30006

	// 支付模块错误 310xx
	ErrPaymentRetryRequired = 31001
	ErrPaymentNotFound      = 31002
	ErrRefundNeedsOperator  = 31003

	// 库存/积分/配送模块错误 320xx
	ErrProductNotFound     = 32001
	ErrInsufficientStock   = 32002
	ErrInsufficientPoints  = 32003
	ErrDeliveryNotFound    = 32004
	ErrDeliveryStateIllegal = 32005

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
