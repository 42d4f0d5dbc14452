// internal/service/groupbuy/domain/repository.go
package domain

import (
	"context"
	"time"
)

// GroupRepository 定义了拼团聚合的持久化接口。
// 位于领域层，由基础设施层实现。所有跨行写入都必须是原子批量，
// 所有依赖当前状态的写入都必须是条件更新：没有命中行时返回 ErrStateConflict。
type GroupRepository interface {
	// CreateWithOrder 在一个原子批量里写入拼团和它的发布费订单。
	CreateWithOrder(ctx context.Context, group *Group, order *PostOrder) error

	// FindByID 根据 ID 查找拼团。
	FindByID(ctx context.Context, id string) (*Group, error)

	// ListActive 返回全部 active 拼团（首页展示用）。
	ListActive(ctx context.Context) ([]*Group, error)

	// ListExpiredActive 返回 expires_at 已过的 active 拼团，Sweep 的输入。
	ListExpiredActive(ctx context.Context, now time.Time) ([]*Group, error)

	// ListByLeader 返回某用户发布的拼团。
	ListByLeader(ctx context.Context, userID string) ([]*Group, error)

	// CountByStatus 统计各状态下的拼团数量（管理端概览）。
	CountByStatus(ctx context.Context) (map[GroupState]int64, error)

	// ActivateWithPayment 原子地把订单标记为已支付、把拼团从
	// pending_payment 流转到 active。两个条件更新要么都生效要么都不生效。
	ActivateWithPayment(ctx context.Context, group *Group, order *PostOrder) error

	// CompleteWithRewards 原子地把拼团条件流转到 completed，并为
	// winners 逐条 insert-if-absent 写入奖励。
	CompleteWithRewards(ctx context.Context, group *Group, rewards []*Reward) error

	// Expire 条件地把拼团流转到 expired。
	Expire(ctx context.Context, group *Group) error

	// MarkRefunded 原子地把订单和拼团都标记为 refunded，清空退款错误。
	MarkRefunded(ctx context.Context, group *Group, order *PostOrder) error
}

// OrderRepository 定义发布费订单的读取和退款错误记录。
type OrderRepository interface {
	// FindByOrderID 按订单号查找，不存在时返回 ErrOrderNotFound。
	FindByOrderID(ctx context.Context, orderID string) (*PostOrder, error)

	// FindByGroupID 按拼团查找，不存在时返回 ErrOrderNotFound。
	FindByGroupID(ctx context.Context, groupID string) (*PostOrder, error)

	// SetRefundError 持久化一次退款失败的原因，供人工排查后重试。
	SetRefundError(ctx context.Context, orderID, message string) error
}

// MemberRepository 定义参团凭证的持久化接口。
type MemberRepository interface {
	// Save 插入或更新一条凭证记录（(group, user) 唯一）。
	Save(ctx context.Context, member *GroupMember) error

	// FindByID 按主键查找。
	FindByID(ctx context.Context, id int64) (*GroupMember, error)

	// FindByGroupAndUser 查找某用户在某拼团的凭证，不存在返回 ErrMemberNotFound。
	FindByGroupAndUser(ctx context.Context, groupID, userID string) (*GroupMember, error)

	// ListByGroup 返回拼团的全部凭证，按提交时间升序。
	ListByGroup(ctx context.Context, groupID string) ([]*GroupMember, error)

	// ListApproved 返回拼团内已通过审核的凭证，按提交时间升序。
	ListApproved(ctx context.Context, groupID string) ([]*GroupMember, error)

	// ListByUser 返回某用户名下的全部凭证，按提交时间降序。
	ListByUser(ctx context.Context, userID string) ([]*GroupMember, error)

	// CountJoiners 统计 role=member 的记录数，用于名额校验。
	CountJoiners(ctx context.Context, groupID string) (int, error)

	// ListPending 返回全部待审核凭证，按提交时间升序（管理端）。
	ListPending(ctx context.Context) ([]*GroupMember, error)
}

// RewardRepository 定义奖励记录的读取和人工发放确认。
type RewardRepository interface {
	// ListPending 返回全部待发放奖励，按创建时间升序（管理端）。
	ListPending(ctx context.Context) ([]*Reward, error)

	// ListByGroup 返回拼团的全部奖励。
	ListByGroup(ctx context.Context, groupID string) ([]*Reward, error)

	// MarkPaid 把 pending 奖励条件流转为 paid。
	MarkPaid(ctx context.Context, rewardID int64) error
}
