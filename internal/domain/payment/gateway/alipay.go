package gateway

import (
	"context"
	"errors"
	"fmt"
	"order_fulfillment/internal/pkg/config"
	"strconv"

	"github.com/smartwalle/alipay/v3"
)

// AlipayGateway 支付宝渠道实现：以交易查询结果归类三元结果
type AlipayGateway struct {
	client *alipay.Client
	config config.AlipayConfig
}

// NewAlipayGateway 创建支付宝网关
func NewAlipayGateway() (*AlipayGateway, error) {
	cfg := config.GlobalConfig.Alipay
	if cfg.AppID == "" {
		return nil, errors.New("alipay config missing")
	}

	client, err := alipay.New(cfg.AppID, cfg.PrivateKey, cfg.IsProduction)
	if err != nil {
		return nil, err
	}

	// 加载支付宝公钥 (用于验证签名)
	if err = client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, err
	}

	return &AlipayGateway{
		client: client,
		config: cfg,
	}, nil
}

func (g *AlipayGateway) Confirm(ctx context.Context, key, orderNo string, amount int64) (Outcome, error) {
	return g.query(ctx, orderNo, amount)
}

func (g *AlipayGateway) Retry(ctx context.Context, userID, orderNo, key string) (Outcome, error) {
	// 重试同样走交易查询，金额校验已在首次确认完成
	return g.query(ctx, orderNo, -1)
}

func (g *AlipayGateway) query(ctx context.Context, orderNo string, expectAmount int64) (Outcome, error) {
	p := alipay.TradeQuery{}
	p.OutTradeNo = orderNo

	rsp, err := g.client.TradeQuery(p)
	if err != nil {
		// 通道层错误：无定论，可重试
		return OutcomeRetryable, nil
	}

	if rsp.IsFailure() {
		return OutcomeFailed, nil
	}

	switch rsp.TradeStatus {
	case alipay.TradeStatusSuccess, alipay.TradeStatusFinished:
		if expectAmount >= 0 {
			// 金额以元为单位返回，转换为分比对
			total, perr := strconv.ParseFloat(rsp.TotalAmount, 64)
			if perr != nil {
				return OutcomeFailed, fmt.Errorf("parse alipay amount: %w", perr)
			}
			if int64(total*100+0.5) != expectAmount {
				return OutcomeFailed, nil
			}
		}
		return OutcomeApproved, nil
	default:
		return OutcomeFailed, nil
	}
}

var _ Gateway = (*AlipayGateway)(nil)
