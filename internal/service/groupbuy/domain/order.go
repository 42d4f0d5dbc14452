// internal/service/groupbuy/domain/order.go
package domain

import "time"

// PostOrder 是拼团发布费对应的支付订单，每个拼团恰有一条。
// 状态只允许 pending -> paid -> refunded 单向流转。
type PostOrder struct {
	OrderID     string
	GroupID     string
	UserID      string
	Username    string
	Amount      float64
	Status      OrderStatus
	TradeNo     string // 网关侧流水号，支付成功后写入
	RefundError string // 最近一次退款失败的原因，成功后清空
	CreatedAt   time.Time
	PaidAt      *time.Time
	RefundedAt  *time.Time
}

// NewPostOrder 与拼团一起创建发布费订单。
func NewPostOrder(orderID, groupID, userID, username string, amount float64) (*PostOrder, error) {
	if orderID == "" || groupID == "" {
		return nil, ErrInvalidInput("order id and group id are required")
	}
	if amount <= 0 {
		return nil, ErrInvalidInput("order amount must be positive")
	}
	return &PostOrder{
		OrderID:   orderID,
		GroupID:   groupID,
		UserID:    userID,
		Username:  username,
		Amount:    amount,
		Status:    OrderPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MarkPaid 记录支付成功，只能从 pending 流转。
func (o *PostOrder) MarkPaid(tradeNo string, now time.Time) error {
	if o.Status != OrderPending {
		return ErrStateConflict
	}
	o.Status = OrderPaid
	o.TradeNo = tradeNo
	o.PaidAt = &now
	return nil
}

// MarkRefunded 记录退款成功并清空退款失败原因。
func (o *PostOrder) MarkRefunded(now time.Time) error {
	if o.Status != OrderPaid {
		return ErrStateConflict
	}
	o.Status = OrderRefunded
	o.RefundError = ""
	o.RefundedAt = &now
	return nil
}
