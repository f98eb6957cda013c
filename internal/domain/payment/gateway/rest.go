package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"order_fulfillment/internal/pkg/config"
	"time"
)

// RestGateway 通用 REST 网关实现。
// 按 HTTP 状态分类：2xx 成功，5xx/超时/网络错误可重试，其余 4xx 为明确失败。
type RestGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewRestGateway 创建 REST 网关客户端
func NewRestGateway() *RestGateway {
	cfg := config.GlobalConfig.Gateway
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RestGateway{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type retryRequest struct {
	UserID     string `json:"userId"`
	OrderID    string `json:"orderId"`
	PaymentKey string `json:"paymentKey"`
}

func (g *RestGateway) Confirm(ctx context.Context, key, orderNo string, amount int64) (Outcome, error) {
	body := confirmRequest{PaymentKey: key, OrderID: orderNo, Amount: amount}
	return g.post(ctx, "/v1/payments/confirm", body)
}

func (g *RestGateway) Retry(ctx context.Context, userID, orderNo, key string) (Outcome, error) {
	body := retryRequest{UserID: userID, OrderID: orderNo, PaymentKey: key}
	return g.post(ctx, "/v1/payments/retry", body)
}

func (g *RestGateway) post(ctx context.Context, path string, body interface{}) (Outcome, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// 网络错误/超时：网关可能已处理也可能没处理，归类为可重试
		return OutcomeRetryable, nil
	}
	defer resp.Body.Close()

	return classifyStatus(resp.StatusCode), nil
}

// classifyStatus HTTP 状态码到三元结果的映射
func classifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeApproved
	case status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return OutcomeRetryable
	default:
		return OutcomeFailed
	}
}

var _ Gateway = (*RestGateway)(nil)
