// internal/service/groupbuy/infrastructure/models.go
package infrastructure

import (
	"time"

	"pinhub/internal/service/groupbuy/domain"
)

// GroupModel 对应数据库中的 groups 表
type GroupModel struct {
	ID             string           `gorm:"primaryKey;size:32"`
	Title          string           `gorm:"size:80;not null"`
	Description    string           `gorm:"type:text"`
	TargetURL      string           `gorm:"size:500;not null"`
	LeaderUserID   string           `gorm:"size:64;index;not null"`
	LeaderUsername string           `gorm:"size:64;not null"`
	Status         domain.GroupState `gorm:"size:20;index;not null"`
	PaymentOrderID string           `gorm:"size:32;uniqueIndex"`
	PaymentTradeNo string           `gorm:"size:64"`
	CreatedAt      time.Time
	ActivatedAt    *time.Time
	ExpiresAt      *time.Time `gorm:"index"`
	CompletedAt    *time.Time
	ExpiredAt      *time.Time
}

// TableName 指定 GORM 应该使用的表名
func (GroupModel) TableName() string {
	return "groups"
}

// GroupMemberModel 对应数据库中的 group_members 表。
// (group_id, user_id) 唯一，重复提交走 upsert。
type GroupMemberModel struct {
	ID          int64               `gorm:"primaryKey;autoIncrement"`
	GroupID     string              `gorm:"size:32;uniqueIndex:ux_group_member,priority:1;not null"`
	UserID      string              `gorm:"size:64;uniqueIndex:ux_group_member,priority:2;not null"`
	Username    string              `gorm:"size:64;not null"`
	Role        domain.MemberRole   `gorm:"size:10;not null"`
	Status      domain.MemberStatus `gorm:"size:10;index;not null"`
	ProofText   string              `gorm:"size:200"`
	ProofURL    string              `gorm:"size:500"`
	SubmittedAt time.Time           `gorm:"index"`
	ReviewedAt  *time.Time
}

func (GroupMemberModel) TableName() string {
	return "group_members"
}

// PostOrderModel 对应数据库中的 post_orders 表，每个拼团至多一条。
type PostOrderModel struct {
	OrderID     string             `gorm:"primaryKey;size:32"`
	GroupID     string             `gorm:"size:32;uniqueIndex;not null"`
	UserID      string             `gorm:"size:64;not null"`
	Username    string             `gorm:"size:64;not null"`
	Amount      float64            `gorm:"type:decimal(10,2);not null"`
	Status      domain.OrderStatus `gorm:"size:10;index;not null"`
	TradeNo     string             `gorm:"size:64"`
	RefundError string             `gorm:"type:text"`
	CreatedAt   time.Time
	PaidAt      *time.Time
	RefundedAt  *time.Time
}

func (PostOrderModel) TableName() string {
	return "post_orders"
}

// RewardModel 对应数据库中的 rewards 表。
// (group_id, user_id) 唯一，奖励创建依赖它做 insert-if-absent。
type RewardModel struct {
	ID        int64               `gorm:"primaryKey;autoIncrement"`
	GroupID   string              `gorm:"size:32;uniqueIndex:ux_group_reward,priority:1;not null"`
	UserID    string              `gorm:"size:64;uniqueIndex:ux_group_reward,priority:2;not null"`
	Username  string              `gorm:"size:64;not null"`
	Amount    float64             `gorm:"type:decimal(10,2);not null"`
	Status    domain.RewardStatus `gorm:"size:10;index;not null"`
	CreatedAt time.Time
	PaidAt    *time.Time
}

func (RewardModel) TableName() string {
	return "rewards"
}
