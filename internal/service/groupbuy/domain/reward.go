// internal/service/groupbuy/domain/reward.go
package domain

import "time"

// Reward 是成团后对单个成员的奖励义务，每个 (group, user) 至多一条。
// 创建是幂等的：持久化层使用 insert-if-absent。
type Reward struct {
	ID        int64
	GroupID   string
	UserID    string
	Username  string
	Amount    float64
	Status    RewardStatus
	CreatedAt time.Time
	PaidAt    *time.Time
}

// NewReward 为一个成员创建待发放奖励。
func NewReward(groupID, userID, username string, amount float64) *Reward {
	return &Reward{
		GroupID:   groupID,
		UserID:    userID,
		Username:  username,
		Amount:    amount,
		Status:    RewardPending,
		CreatedAt: time.Now().UTC(),
	}
}
