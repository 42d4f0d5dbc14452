// internal/service/groupbuy/port/gateway.go
package port

import (
	"context"
)

// PayForm 是支付发起所需的全部参数：浏览器端向网关地址自动提交的表单。
type PayForm struct {
	Action string            // 网关收银台地址
	Params map[string]string // 已签名的表单字段
}

// PaymentGateway 是支付网关的出站端口。
// 本设计只面向一个网关契约，不做多网关抽象。
type PaymentGateway interface {
	// BuildPayForm 为一笔发布费订单构造签名后的支付表单参数。
	BuildPayForm(orderID, subject string, amount float64, notifyURL, returnURL string) (*PayForm, error)

	// VerifyNotify 校验一次异步通知的签名。
	VerifyNotify(params map[string]string) bool

	// Refund 对一笔已支付交易发起退款。调用方需要在 ctx 上设置超时；
	// 超时或网络错误与网关明确拒绝同样视为退款失败。
	Refund(ctx context.Context, tradeNo string, amount float64) error
}
