// internal/service/groupbuy/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pinhub/internal/pkg/logger"
	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

// ServiceConfig 是 GroupService 需要的业务参数。
type ServiceConfig struct {
	BaseURL      string        // 对外可达地址，拼 notify/return URL 用
	GroupFee     float64       // 发布费
	GroupReward  float64       // 成团后每人奖励
	ExpiryWindow time.Duration // 激活后的有效时长
}

// GroupService 是拼团核心的应用服务，聚合写入全部经由它。
type GroupService struct {
	cfg      ServiceConfig
	groups   domain.GroupRepository
	orders   domain.OrderRepository
	members  domain.MemberRepository
	rewards  domain.RewardRepository
	gateway  port.PaymentGateway
	screener port.ProofScreener
	notifier port.LifecycleNotifier
}

// NewGroupService 创建拼团应用服务
func NewGroupService(
	cfg ServiceConfig,
	groups domain.GroupRepository,
	orders domain.OrderRepository,
	members domain.MemberRepository,
	rewards domain.RewardRepository,
	gateway port.PaymentGateway,
	screener port.ProofScreener,
	notifier port.LifecycleNotifier,
) *GroupService {
	return &GroupService{
		cfg:      cfg,
		groups:   groups,
		orders:   orders,
		members:  members,
		rewards:  rewards,
		gateway:  gateway,
		screener: screener,
		notifier: notifier,
	}
}

// CreateGroup 创建 pending_payment 拼团和它的发布费订单，
// 并返回签名后的支付表单。拼团在支付对账成功之前不对外可见。
func (s *GroupService) CreateGroup(ctx context.Context, identity *port.Identity, req *CreateGroupRequest) (*CreateGroupResult, error) {
	group, err := domain.NewGroup(req.Title, req.Description, req.TargetURL, identity.UserID, identity.Username)
	if err != nil {
		return nil, err
	}
	order, err := domain.NewPostOrder(group.PaymentOrderID, group.ID, identity.UserID, identity.Username, s.cfg.GroupFee)
	if err != nil {
		return nil, err
	}

	if err := s.groups.CreateWithOrder(ctx, group, order); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Group post fee: %s", group.Title)
	form, err := s.gateway.BuildPayForm(
		order.OrderID,
		subject,
		order.Amount,
		s.cfg.BaseURL+"/pay/notify",
		s.cfg.BaseURL+"/pay/return",
	)
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", group.ID).
		Str("order_id", order.OrderID).
		Str("leader", identity.Username).
		Msg("group created, awaiting payment")

	return &CreateGroupResult{GroupID: group.ID, OrderID: order.OrderID, PayForm: form}, nil
}

// SubmitProof 提交或重新提交参团凭证。
// (group, user) 唯一：已有记录时覆盖内容并回到 pending。
func (s *GroupService) SubmitProof(ctx context.Context, identity *port.Identity, req *SubmitProofRequest) (*MemberView, error) {
	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Status != domain.GroupActive {
		return nil, domain.ErrGroupNotActive
	}
	if group.PastExpiry(time.Now().UTC()) {
		return nil, domain.ErrGroupExpired
	}

	role := domain.RoleMember
	if identity.UserID == group.LeaderUserID {
		role = domain.RoleLeader
	}

	existing, err := s.members.FindByGroupAndUser(ctx, req.GroupID, identity.UserID)
	if err != nil && !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, err
	}

	// 新跟团成员需要名额，重新提交和团长不占新名额。
	if existing == nil && role == domain.RoleMember {
		joiners, err := s.members.CountJoiners(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		if joiners >= domain.MaxJoiners {
			return nil, domain.ErrGroupFull
		}
	}

	if ok := s.screen(ctx, req, role, identity.Username); !ok {
		return nil, domain.ErrInvalidInput("proof rejected by screening rule")
	}

	var member *domain.GroupMember
	if existing != nil {
		member = existing
		if err := member.Resubmit(req.ProofText, req.ProofURL); err != nil {
			return nil, err
		}
	} else {
		member, err = domain.NewGroupMember(req.GroupID, identity.UserID, identity.Username, role, req.ProofText, req.ProofURL)
		if err != nil {
			return nil, err
		}
	}

	if err := s.members.Save(ctx, member); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", req.GroupID).
		Str("user", identity.Username).
		Str("role", string(role)).
		Bool("resubmit", existing != nil).
		Msg("proof submitted")

	return toMemberView(member), nil
}

// screen 执行可配置的凭证筛查。引擎故障时放行并记日志，规则问题不应挡住用户。
func (s *GroupService) screen(ctx context.Context, req *SubmitProofRequest, role domain.MemberRole, username string) bool {
	if s.screener == nil {
		return true
	}
	pass, err := s.screener.Screen(port.ProofFact{
		Text:     req.ProofText,
		URL:      req.ProofURL,
		Role:     string(role),
		Username: username,
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("group_id", req.GroupID).Msg("proof screening failed, allowing submission")
		return true
	}
	return pass
}

// ReviewProof 记录管理员审核结论；通过后触发一次成团判定。
func (s *GroupService) ReviewProof(ctx context.Context, memberID int64, approve bool) (*MemberView, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	member.Review(approve, time.Now().UTC())
	if err := s.members.Save(ctx, member); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("member_id", memberID).
		Str("group_id", member.GroupID).
		Bool("approved", approve).
		Msg("proof reviewed")

	if approve {
		if _, err := s.MaybeComplete(ctx, member.GroupID); err != nil {
			// 审核已落库，成团判定失败只记日志，下一次审核会再触发。
			logger.Ctx(ctx).Error().Err(err).Str("group_id", member.GroupID).Msg("completion check failed")
		}
	}
	return toMemberView(member), nil
}

// MarkRewardPaid 记录一笔奖励已线下发放。
func (s *GroupService) MarkRewardPaid(ctx context.Context, rewardID int64) error {
	return s.rewards.MarkPaid(ctx, rewardID)
}

// ListActiveGroups 返回首页的 active 拼团列表。
func (s *GroupService) ListActiveGroups(ctx context.Context) ([]*GroupView, error) {
	groups, err := s.groups.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*GroupView, 0, len(groups))
	for _, g := range groups {
		approved, err := s.members.ListApproved(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, toGroupView(g, len(approved)))
	}
	return views, nil
}

// GetGroupDetail 返回拼团详情，含成员；已成团的附带奖励。
func (s *GroupService) GetGroupDetail(ctx context.Context, groupID string) (*GroupDetail, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	approved := 0
	memberViews := make([]*MemberView, 0, len(members))
	for _, m := range members {
		if m.Status == domain.MemberApproved {
			approved++
		}
		memberViews = append(memberViews, toMemberView(m))
	}

	detail := &GroupDetail{GroupView: *toGroupView(group, approved), Members: memberViews}

	if group.Status == domain.GroupCompleted {
		rewards, err := s.rewards.ListByGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		for _, r := range rewards {
			detail.Rewards = append(detail.Rewards, toRewardView(r))
		}
	}
	return detail, nil
}

// GetMyGroups 返回当前用户发布和参与的拼团。
func (s *GroupService) GetMyGroups(ctx context.Context, identity *port.Identity) (*MyGroupsView, error) {
	led, err := s.groups.ListByLeader(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	view := &MyGroupsView{Led: make([]*GroupView, 0, len(led)), Joined: []*MemberView{}}
	for _, g := range led {
		approved, err := s.members.ListApproved(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		view.Led = append(view.Led, toGroupView(g, len(approved)))
	}

	joined, err := s.members.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	for _, m := range joined {
		view.Joined = append(view.Joined, toMemberView(m))
	}
	return view, nil
}

// GetAdminStats 返回管理端概览：各状态拼团数、待审核凭证数、待发放奖励数。
func (s *GroupService) GetAdminStats(ctx context.Context) (*AdminStatsView, error) {
	counts, err := s.groups.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	pendingProofs, err := s.members.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	pendingRewards, err := s.rewards.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStatsView{
		GroupsByStatus: make(map[string]int64, len(counts)),
		PendingProofs:  len(pendingProofs),
		PendingRewards: len(pendingRewards),
	}
	for status, count := range counts {
		stats.GroupsByStatus[string(status)] = count
	}
	return stats, nil
}

// ListPendingProofs 返回全部待审核凭证（管理端）。
func (s *GroupService) ListPendingProofs(ctx context.Context) ([]*MemberView, error) {
	members, err := s.members.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	return views, nil
}

// ListPendingRewards 返回全部待发放奖励（管理端）。
func (s *GroupService) ListPendingRewards(ctx context.Context) ([]*RewardView, error) {
	rewards, err := s.rewards.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*RewardView, 0, len(rewards))
	for _, r := range rewards {
		views = append(views, toRewardView(r))
	}
	return views, nil
}
