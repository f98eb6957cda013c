package gateway

import (
	"context"
	"errors"
	"order_fulfillment/internal/pkg/config"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// WechatGateway 微信支付渠道实现：以订单查询结果归类三元结果
type WechatGateway struct {
	client *core.Client
	config config.WechatPayConfig
}

// NewWechatGateway 创建微信支付网关
func NewWechatGateway() (*WechatGateway, error) {
	cfg := config.GlobalConfig.Wechat
	if cfg.MchID == "" {
		return nil, errors.New("wechat pay config missing")
	}

	// 1. 加载商户私钥
	mchPrivateKey, err := utils.LoadPrivateKey(cfg.MchPrivateKey)
	if err != nil {
		return nil, err
	}

	// 2. 初始化 Client
	ctx := context.Background()
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(cfg.MchID, cfg.MchCertificateSerial, mchPrivateKey, cfg.APIv3Key),
	}

	client, err := core.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &WechatGateway{
		client: client,
		config: cfg,
	}, nil
}

func (g *WechatGateway) Confirm(ctx context.Context, key, orderNo string, amount int64) (Outcome, error) {
	return g.query(ctx, orderNo, amount)
}

func (g *WechatGateway) Retry(ctx context.Context, userID, orderNo, key string) (Outcome, error) {
	return g.query(ctx, orderNo, -1)
}

func (g *WechatGateway) query(ctx context.Context, orderNo string, expectAmount int64) (Outcome, error) {
	svc := native.NativeApiService{Client: g.client}

	resp, _, err := svc.QueryOrderByOutTradeNo(ctx, native.QueryOrderByOutTradeNoRequest{
		OutTradeNo: core.String(orderNo),
		Mchid:      core.String(g.config.MchID),
	})
	if err != nil {
		// 通道层错误：无定论，可重试
		return OutcomeRetryable, nil
	}

	if resp.TradeState == nil || *resp.TradeState != "SUCCESS" {
		return OutcomeFailed, nil
	}

	if expectAmount >= 0 && resp.Amount != nil && resp.Amount.Total != nil {
		if *resp.Amount.Total != expectAmount {
			return OutcomeFailed, nil
		}
	}

	return OutcomeApproved, nil
}

var _ Gateway = (*WechatGateway)(nil)
