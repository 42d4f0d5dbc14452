// internal/service/groupbuy/application/dto.go
package application

import (
	"time"

	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

// CreateGroupRequest 是发布拼团的入参。
type CreateGroupRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetURL   string `json:"target_url"`
}

// CreateGroupResult 返回新建的拼团和浏览器端要自动提交的支付表单。
type CreateGroupResult struct {
	GroupID string        `json:"group_id"`
	OrderID string        `json:"order_id"`
	PayForm *port.PayForm `json:"pay_form"`
}

// SubmitProofRequest 是提交参团凭证的入参。
type SubmitProofRequest struct {
	GroupID   string `json:"group_id"`
	ProofText string `json:"proof_text"`
	ProofURL  string `json:"proof_url"`
}

// MemberView 是凭证记录的对外视图。
type MemberView struct {
	ID          int64      `json:"id"`
	GroupID     string     `json:"group_id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	ProofText   string     `json:"proof_text"`
	ProofURL    string     `json:"proof_url"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// GroupView 是拼团的对外视图，列表和详情共用。
type GroupView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	TargetURL      string     `json:"target_url"`
	LeaderUsername string     `json:"leader_username"`
	Status         string     `json:"status"`
	ApprovedCount  int        `json:"approved_count"`
	Quorum         int        `json:"quorum"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// GroupDetail 在视图基础上附带成员和奖励。
type GroupDetail struct {
	GroupView
	Members []*MemberView `json:"members"`
	Rewards []*RewardView `json:"rewards,omitempty"`
}

// RewardView 是奖励记录的对外视图。
type RewardView struct {
	ID       int64   `json:"id"`
	GroupID  string  `json:"group_id"`
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

// AdminStatsView 是管理端概览数字。
type AdminStatsView struct {
	GroupsByStatus map[string]int64 `json:"groups_by_status"`
	PendingProofs  int              `json:"pending_proofs"`
	PendingRewards int              `json:"pending_rewards"`
}

// MyGroupsView 汇总当前用户的参与情况。
type MyGroupsView struct {
	Led    []*GroupView  `json:"led"`
	Joined []*MemberView `json:"joined"`
}

func toGroupView(g *domain.Group, approved int) *GroupView {
	return &GroupView{
		ID:             g.ID,
		Title:          g.Title,
		Description:    g.Description,
		TargetURL:      g.TargetURL,
		LeaderUsername: g.LeaderUsername,
		Status:         string(g.Status),
		ApprovedCount:  approved,
		Quorum:         domain.Quorum,
		CreatedAt:      g.CreatedAt,
		ExpiresAt:      g.ExpiresAt,
	}
}

func toMemberView(m *domain.GroupMember) *MemberView {
	return &MemberView{
		ID:          m.ID,
		GroupID:     m.GroupID,
		Username:    m.Username,
		Role:        string(m.Role),
		Status:      string(m.Status),
		ProofText:   m.ProofText,
		ProofURL:    m.ProofURL,
		SubmittedAt: m.SubmittedAt,
		ReviewedAt:  m.ReviewedAt,
	}
}

func toRewardView(r *domain.Reward) *RewardView {
	return &RewardView{
		ID:       r.ID,
		GroupID:  r.GroupID,
		Username: r.Username,
		Amount:   r.Amount,
		Status:   string(r.Status),
	}
}
