// internal/service/groupbuy/infrastructure/epay/client.go
package epay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"pinhub/internal/pkg/httpclient"
	"pinhub/internal/service/groupbuy/port"
)

// Config 是网关客户端的全部配置，构造后不可变。
type Config struct {
	MerchantID  string
	MerchantKey string
	PayURL      string
	RefundURL   string
}

// Client 实现 port.PaymentGateway。
// 出站调用走可追踪的 httpclient，超时由调用方通过 ctx 控制。
type Client struct {
	cfg  Config
	http *httpclient.Client
}

// NewClient 创建网关客户端。商户号和密钥缺失时直接报错，
// 避免带着空配置运行到第一次支付才失败。
func NewClient(cfg Config, http *httpclient.Client) (*Client, error) {
	if cfg.MerchantID == "" || cfg.MerchantKey == "" {
		return nil, fmt.Errorf("epay: merchant id and merchant key are required")
	}
	return &Client{cfg: cfg, http: http}, nil
}

// BuildPayForm 构造签名后的收银台表单参数。
func (c *Client) BuildPayForm(orderID, subject string, amount float64, notifyURL, returnURL string) (*port.PayForm, error) {
	if orderID == "" {
		return nil, fmt.Errorf("epay: order id is required")
	}
	params := map[string]string{
		"pid":          c.cfg.MerchantID,
		"type":         "epay",
		"out_trade_no": orderID,
		"notify_url":   notifyURL,
		"return_url":   returnURL,
		"name":         subject,
		"money":        fmt.Sprintf("%.2f", amount),
		"sign_type":    "MD5",
	}
	params["sign"] = Sign(params, c.cfg.MerchantKey)
	return &port.PayForm{Action: c.cfg.PayURL, Params: params}, nil
}

// VerifyNotify 校验异步通知的签名。
func (c *Client) VerifyNotify(params map[string]string) bool {
	return Verify(params, c.cfg.MerchantKey)
}

// refundResponse 是退款接口的应答：code == 1 表示成功。
type refundResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Refund 发起退款。非 JSON 应答和 code != 1 都按失败处理，
// 错误信息会被上层持久化到订单的 refund_error 字段。
func (c *Client) Refund(ctx context.Context, tradeNo string, amount float64) error {
	if tradeNo == "" {
		return fmt.Errorf("epay: missing trade_no")
	}

	form := url.Values{}
	form.Set("pid", c.cfg.MerchantID)
	form.Set("key", c.cfg.MerchantKey)
	form.Set("trade_no", tradeNo)
	form.Set("money", strconv.FormatFloat(amount, 'f', -1, 64))

	body, err := c.http.PostForm(ctx, c.cfg.RefundURL, form)
	if err != nil {
		return pkgerrors.Wrap(err, "epay: refund call failed")
	}

	var resp refundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("epay: non_json_response")
	}
	if resp.Code != 1 {
		if resp.Msg != "" {
			return fmt.Errorf("epay: refund rejected: %s", resp.Msg)
		}
		return fmt.Errorf("epay: refund_failed")
	}
	return nil
}
