package service

import (
	"errors"
	"fmt"
	"order_fulfillment/internal/domain/payment/gateway"
	"order_fulfillment/internal/domain/payment/model"
)

// ErrIllegalOutcome 状态机中不存在的 (状态, 网关结果) 组合
var ErrIllegalOutcome = errors.New("illegal payment state transition")

// Transition 一次网关调用按状态机推进后的结果
type Transition struct {
	PaymentStatus string // 本次尝试落库的支付状态
	Finalize      bool   // 订单终结为 SUCCEEDED
	Retry         bool   // 继续自动重试
	RetryRequired bool   // 向调用方抛出"需要重试"，订单保持 PENDING
}

type transitionKey struct {
	state   string
	outcome gateway.Outcome
}

// transitions 完整的 (支付状态, 网关结果) 矩阵。
// 只有 PENDING 尝试可以接收网关结果；APPROVED/FAILED 均为行级终态。
var transitions = map[transitionKey]Transition{
	{model.StatusPending, gateway.OutcomeApproved}: {
		PaymentStatus: model.StatusApproved,
		Finalize:      true,
	},
	{model.StatusPending, gateway.OutcomeFailed}: {
		PaymentStatus: model.StatusFailed,
		RetryRequired: true,
	},
	{model.StatusPending, gateway.OutcomeRetryable}: {
		PaymentStatus: model.StatusPending,
		Retry:         true,
	},
}

// Resolve 查询状态机。非法组合返回 ErrIllegalOutcome。
func Resolve(state string, outcome gateway.Outcome) (Transition, error) {
	tr, ok := transitions[transitionKey{state: state, outcome: outcome}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: state=%s outcome=%s", ErrIllegalOutcome, state, outcome)
	}
	return tr, nil
}
