// internal/service/groupbuy/domain/state.go
package domain

// GroupState 定义了拼团的生命周期状态
type GroupState string

const (
	GroupPendingPayment GroupState = "pending_payment" // 已创建，等待团长支付发布费
	GroupActive         GroupState = "active"          // 支付成功，正在拼团
	GroupCompleted      GroupState = "completed"       // 三份凭证审核通过，已成团
	GroupExpired        GroupState = "expired"         // 到期未成团
	GroupRefunded       GroupState = "refunded"        // 到期后发布费已退款
	GroupCancelled      GroupState = "cancelled"       // 预留状态，本核心不产生此流转
)

// IsTerminal 报告该状态是否为终态。
func (s GroupState) IsTerminal() bool {
	switch s {
	case GroupCompleted, GroupExpired, GroupRefunded, GroupCancelled:
		return true
	}
	return false
}

// MemberStatus 是参团凭证的审核状态
type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberApproved MemberStatus = "approved"
	MemberRejected MemberStatus = "rejected"
)

// MemberRole 区分团长和普通成员
type MemberRole string

const (
	RoleLeader MemberRole = "leader"
	RoleMember MemberRole = "member"
)

// OrderStatus 是发布费订单的支付状态，只允许单向流转
// pending -> paid -> refunded
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderRefunded OrderStatus = "refunded"
)

// RewardStatus 是奖励的发放状态
type RewardStatus string

const (
	RewardPending RewardStatus = "pending"
	RewardPaid    RewardStatus = "paid"
)
