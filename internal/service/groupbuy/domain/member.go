// internal/service/groupbuy/domain/member.go
package domain

import (
	"strings"
	"time"
)

// GroupMember 是一条参团凭证记录，每个 (group, user) 至多一条。
// 重复提交会复用同一条记录并把状态重置为 pending。
type GroupMember struct {
	ID          int64
	GroupID     string
	UserID      string
	Username    string
	Role        MemberRole
	Status      MemberStatus
	ProofText   string
	ProofURL    string
	SubmittedAt time.Time
	ReviewedAt  *time.Time
}

// NewGroupMember 创建一条新的凭证记录。
func NewGroupMember(groupID, userID, username string, role MemberRole, proofText, proofURL string) (*GroupMember, error) {
	proofText = strings.TrimSpace(proofText)
	proofURL = strings.TrimSpace(proofURL)
	if proofText == "" && proofURL == "" {
		return nil, ErrInvalidInput("proof text or proof url is required")
	}
	if proofURL != "" && !IsValidHTTPURL(proofURL) {
		return nil, ErrInvalidInput("proof url must be a valid http(s) url")
	}
	return &GroupMember{
		GroupID:     groupID,
		UserID:      userID,
		Username:    username,
		Role:        role,
		Status:      MemberPending,
		ProofText:   proofText,
		ProofURL:    proofURL,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Resubmit 用新的凭证内容覆盖旧记录，并回到待审核状态。
func (m *GroupMember) Resubmit(proofText, proofURL string) error {
	proofText = strings.TrimSpace(proofText)
	proofURL = strings.TrimSpace(proofURL)
	if proofText == "" && proofURL == "" {
		return ErrInvalidInput("proof text or proof url is required")
	}
	if proofURL != "" && !IsValidHTTPURL(proofURL) {
		return ErrInvalidInput("proof url must be a valid http(s) url")
	}
	m.ProofText = proofText
	m.ProofURL = proofURL
	m.Status = MemberPending
	m.ReviewedAt = nil
	return nil
}

// Review 记录管理员的审核结论。
func (m *GroupMember) Review(approve bool, now time.Time) {
	if approve {
		m.Status = MemberApproved
	} else {
		m.Status = MemberRejected
	}
	m.ReviewedAt = &now
}
