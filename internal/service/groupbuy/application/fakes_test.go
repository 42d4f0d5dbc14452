package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

// fakeStore 是四个仓储接口的内存实现，模拟真实实现的
// 条件更新语义：状态不匹配时返回 domain.ErrStateConflict。
type fakeStore struct {
	mu      sync.Mutex
	groups  map[string]domain.Group
	orders  map[string]domain.PostOrder
	members map[string]domain.GroupMember // key: groupID+"/"+userID
	rewards []domain.Reward
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:  make(map[string]domain.Group),
		orders:  make(map[string]domain.PostOrder),
		members: make(map[string]domain.GroupMember),
	}
}

func memberKey(groupID, userID string) string { return groupID + "/" + userID }

func (s *fakeStore) CreateWithOrder(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = *group
	s.orders[order.OrderID] = *order
	return nil
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	copied := group
	return &copied, nil
}

func (s *fakeStore) ListActive(ctx context.Context) ([]*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Group
	for _, g := range s.groups {
		if g.Status == domain.GroupActive {
			copied := g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Group
	for _, g := range s.groups {
		if g.Status == domain.GroupActive && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
			copied := g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByLeader(ctx context.Context, userID string) ([]*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Group
	for _, g := range s.groups {
		if g.LeaderUserID == userID {
			copied := g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) CountByStatus(ctx context.Context) (map[domain.GroupState]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.GroupState]int64)
	for _, g := range s.groups {
		counts[g.Status]++
	}
	return counts, nil
}

func (s *fakeStore) ActivateWithPayment(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storedOrder, ok := s.orders[order.OrderID]
	if !ok || storedOrder.Status != domain.OrderPending {
		return domain.ErrStateConflict
	}
	storedGroup, ok := s.groups[group.ID]
	if !ok || storedGroup.Status != domain.GroupPendingPayment {
		return domain.ErrStateConflict
	}
	s.orders[order.OrderID] = *order
	s.groups[group.ID] = *group
	return nil
}

func (s *fakeStore) CompleteWithRewards(ctx context.Context, group *domain.Group, rewards []*domain.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.groups[group.ID]
	if !ok || stored.Status != domain.GroupActive {
		return domain.ErrStateConflict
	}
	s.groups[group.ID] = *group
	for _, reward := range rewards {
		if s.hasRewardLocked(reward.GroupID, reward.UserID) {
			continue
		}
		s.nextID++
		copied := *reward
		copied.ID = s.nextID
		s.rewards = append(s.rewards, copied)
	}
	return nil
}

func (s *fakeStore) hasRewardLocked(groupID, userID string) bool {
	for _, r := range s.rewards {
		if r.GroupID == groupID && r.UserID == userID {
			return true
		}
	}
	return false
}

func (s *fakeStore) Expire(ctx context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.groups[group.ID]
	if !ok || stored.Status != domain.GroupActive {
		return domain.ErrStateConflict
	}
	s.groups[group.ID] = *group
	return nil
}

func (s *fakeStore) MarkRefunded(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storedOrder, ok := s.orders[order.OrderID]
	if !ok || storedOrder.Status != domain.OrderPaid {
		return domain.ErrStateConflict
	}
	storedGroup, ok := s.groups[group.ID]
	if !ok || storedGroup.Status != domain.GroupExpired {
		return domain.ErrStateConflict
	}
	s.orders[order.OrderID] = *order
	s.groups[group.ID] = *group
	return nil
}

func (s *fakeStore) FindByOrderID(ctx context.Context, orderID string) (*domain.PostOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := order
	return &copied, nil
}

func (s *fakeStore) FindByGroupID(ctx context.Context, groupID string) (*domain.PostOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.GroupID == groupID {
			copied := order
			return &copied, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *fakeStore) SetRefundError(ctx context.Context, orderID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.RefundError = message
	s.orders[orderID] = order
	return nil
}

// fakeMembers 单独实现 MemberRepository，读写同一个 fakeStore。
type fakeMembers struct{ store *fakeStore }

func (f *fakeMembers) Save(ctx context.Context, member *domain.GroupMember) error {
	s := f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(member.GroupID, member.UserID)
	if existing, ok := s.members[key]; ok {
		member.ID = existing.ID
	} else {
		s.nextID++
		member.ID = s.nextID
	}
	s.members[key] = *member
	return nil
}

func (f *fakeMembers) FindByID(ctx context.Context, id int64) (*domain.GroupMember, error) {
	s := f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == id {
			copied := m
			return &copied, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func (f *fakeMembers) FindByGroupAndUser(ctx context.Context, groupID, userID string) (*domain.GroupMember, error) {
	s := f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey(groupID, userID)]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	copied := m
	return &copied, nil
}

func (f *fakeMembers) ListByGroup(ctx context.Context, groupID string) ([]*domain.GroupMember, error) {
	return f.listMembers(func(m domain.GroupMember) bool { return m.GroupID == groupID }), nil
}

func (f *fakeMembers) ListApproved(ctx context.Context, groupID string) ([]*domain.GroupMember, error) {
	return f.listMembers(func(m domain.GroupMember) bool {
		return m.GroupID == groupID && m.Status == domain.MemberApproved
	}), nil
}

func (f *fakeMembers) ListByUser(ctx context.Context, userID string) ([]*domain.GroupMember, error) {
	return f.listMembers(func(m domain.GroupMember) bool { return m.UserID == userID }), nil
}

func (f *fakeMembers) ListPending(ctx context.Context) ([]*domain.GroupMember, error) {
	return f.listMembers(func(m domain.GroupMember) bool { return m.Status == domain.MemberPending }), nil
}

func (f *fakeMembers) listMembers(match func(domain.GroupMember) bool) []*domain.GroupMember {
	s := f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.GroupMember
	for _, m := range s.members {
		if match(m) {
			copied := m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func (f *fakeMembers) CountJoiners(ctx context.Context, groupID string) (int, error) {
	s := f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.members {
		if m.GroupID == groupID && m.Role == domain.RoleMember {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) rewardsByGroup(groupID string) []domain.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Reward
	for _, r := range s.rewards {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

// fakeRewards 单独实现 RewardRepository，读写同一个 fakeStore。
type fakeRewards struct{ store *fakeStore }

func (f *fakeRewards) ListPending(ctx context.Context) ([]*domain.Reward, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []*domain.Reward
	for i := range f.store.rewards {
		if f.store.rewards[i].Status == domain.RewardPending {
			copied := f.store.rewards[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRewards) ListByGroup(ctx context.Context, groupID string) ([]*domain.Reward, error) {
	rewards := f.store.rewardsByGroup(groupID)
	out := make([]*domain.Reward, 0, len(rewards))
	for i := range rewards {
		copied := rewards[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRewards) MarkPaid(ctx context.Context, rewardID int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for i := range f.store.rewards {
		if f.store.rewards[i].ID == rewardID {
			if f.store.rewards[i].Status != domain.RewardPending {
				return domain.ErrStateConflict
			}
			f.store.rewards[i].Status = domain.RewardPaid
			return nil
		}
	}
	return domain.ErrStateConflict
}

// fakeGateway 实现 port.PaymentGateway。
type fakeGateway struct {
	mu          sync.Mutex
	verifyOK    bool
	refundErr   error
	refundCalls []string // trade_no
}

func (g *fakeGateway) BuildPayForm(orderID, subject string, amount float64, notifyURL, returnURL string) (*port.PayForm, error) {
	return &port.PayForm{
		Action: "https://gateway.example/submit.php",
		Params: map[string]string{
			"out_trade_no": orderID,
			"name":         subject,
			"money":        fmt.Sprintf("%.2f", amount),
			"notify_url":   notifyURL,
			"return_url":   returnURL,
		},
	}, nil
}

func (g *fakeGateway) VerifyNotify(params map[string]string) bool { return g.verifyOK }

func (g *fakeGateway) Refund(ctx context.Context, tradeNo string, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls = append(g.refundCalls, tradeNo)
	return g.refundErr
}

// fakeNotifier 记录发布的事件类型。
type fakeNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *fakeNotifier) record(kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *fakeNotifier) has(kind string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, k := range n.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (n *fakeNotifier) GroupActivated(ctx context.Context, event *domain.GroupActivated) error {
	n.record(domain.EventGroupActivated)
	return nil
}

func (n *fakeNotifier) GroupCompleted(ctx context.Context, event *domain.GroupCompletedEvent) error {
	n.record(domain.EventGroupCompleted)
	return nil
}

func (n *fakeNotifier) GroupExpired(ctx context.Context, event *domain.GroupExpiredEvent) error {
	n.record(domain.EventGroupExpired)
	return nil
}

func (n *fakeNotifier) GroupRefunded(ctx context.Context, event *domain.GroupRefundedEvent) error {
	n.record(domain.EventGroupRefunded)
	return nil
}

// fakeScreener 按固定结论筛查。
type fakeScreener struct {
	pass bool
	err  error
}

func (s *fakeScreener) Screen(fact port.ProofFact) (bool, error) { return s.pass, s.err }

// newTestService 组装一套全内存依赖的应用服务。
func newTestService(gateway *fakeGateway, screener port.ProofScreener) (*GroupService, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	service := NewGroupService(
		ServiceConfig{
			BaseURL:      "http://localhost:8080",
			GroupFee:     4,
			GroupReward:  2,
			ExpiryWindow: 24 * time.Hour,
		},
		store,
		store,
		&fakeMembers{store: store},
		&fakeRewards{store: store},
		gateway,
		screener,
		notifier,
	)
	return service, store, notifier
}

// seedActiveGroup 直接在存储里放一个已激活的拼团和已支付订单。
func seedActiveGroup(store *fakeStore, groupID string, expiresAt time.Time) {
	now := time.Now().UTC()
	activated := now.Add(-time.Hour)
	paid := activated
	store.groups[groupID] = domain.Group{
		ID:             groupID,
		Title:          "seed",
		TargetURL:      "https://example.com",
		LeaderUserID:   "leader",
		LeaderUsername: "leader",
		Status:         domain.GroupActive,
		PaymentOrderID: "ORD-" + groupID,
		PaymentTradeNo: "T-" + groupID,
		CreatedAt:      activated,
		ActivatedAt:    &activated,
		ExpiresAt:      &expiresAt,
	}
	store.orders["ORD-"+groupID] = domain.PostOrder{
		OrderID:   "ORD-" + groupID,
		GroupID:   groupID,
		UserID:    "leader",
		Username:  "leader",
		Amount:    4,
		Status:    domain.OrderPaid,
		TradeNo:   "T-" + groupID,
		CreatedAt: activated,
		PaidAt:    &paid,
	}
}

// seedApprovedMembers 放 n 条已审核通过的凭证，提交时间依次递增。
func seedApprovedMembers(store *fakeStore, groupID string, n int) {
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		store.nextID++
		userID := fmt.Sprintf("u%d", i+1)
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleLeader
			userID = "leader"
		}
		reviewed := base.Add(time.Duration(i)*time.Minute + 30*time.Second)
		store.members[memberKey(groupID, userID)] = domain.GroupMember{
			ID:          store.nextID,
			GroupID:     groupID,
			UserID:      userID,
			Username:    userID,
			Role:        role,
			Status:      domain.MemberApproved,
			ProofText:   "joined",
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			ReviewedAt:  &reviewed,
		}
	}
}
