package gateway

import (
	"context"
)

// Outcome 网关调用的三元分类结果。网关在此之外被视为黑盒。
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"  // 请款成功，终态
	OutcomeFailed    Outcome = "failed"    // 明确拒绝（如 4xx），不值得自动重试
	OutcomeRetryable Outcome = "retryable" // 无定论（如 5xx、网络错误），可自动重试
)

// Gateway 支付网关适配器
type Gateway interface {
	// Confirm 首次请款确认
	Confirm(ctx context.Context, key, orderNo string, amount int64) (Outcome, error)

	// Retry 以既有支付凭证重新请款
	Retry(ctx context.Context, userID, orderNo, key string) (Outcome, error)
}
