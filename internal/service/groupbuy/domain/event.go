// internal/service/groupbuy/domain/event.go
package domain

import "time"

// 事件类型常量，同时作为 kafka 消息里的 kind 字段。
const (
	EventGroupActivated = "group.activated"
	EventGroupCompleted = "group.completed"
	EventGroupExpired   = "group.expired"
	EventGroupRefunded  = "group.refunded"
)

// GroupActivated 在支付对账成功、拼团转为 active 后发布。
type GroupActivated struct {
	GroupID     string    `json:"groupId"`
	OrderID     string    `json:"orderId"`
	TradeNo     string    `json:"tradeNo"`
	LeaderID    string    `json:"leaderId"`
	ActivatedAt time.Time `json:"activatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// GroupCompletedEvent 在法定人数满足、拼团转为 completed 后发布。
type GroupCompletedEvent struct {
	GroupID     string    `json:"groupId"`
	WinnerIDs   []string  `json:"winnerIds"` // 按提交时间排序的前三个通过审核的成员
	RewardEach  float64   `json:"rewardEach"`
	CompletedAt time.Time `json:"completedAt"`
}

// GroupExpiredEvent 在拼团到期被置为 expired 后发布。
type GroupExpiredEvent struct {
	GroupID   string    `json:"groupId"`
	LeaderID  string    `json:"leaderId"`
	ExpiredAt time.Time `json:"expiredAt"`
}

// GroupRefundedEvent 在发布费退款成功后发布。
type GroupRefundedEvent struct {
	GroupID  string  `json:"groupId"`
	OrderID  string  `json:"orderId"`
	LeaderID string  `json:"leaderId"`
	Amount   float64 `json:"amount"`
}
