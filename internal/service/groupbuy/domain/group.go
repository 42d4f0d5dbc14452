// internal/service/groupbuy/domain/group.go
package domain

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Quorum 是成团需要的审核通过凭证数。
const Quorum = 3

// MaxJoiners 是团长之外允许提交凭证的成员数。
const MaxJoiners = 2

// Group 是拼团聚合的根实体。
// 状态只能通过本文件中的流转方法修改，持久化层按当前状态做条件更新。
type Group struct {
	ID             string
	Title          string
	Description    string
	TargetURL      string // 站外拼单链接
	LeaderUserID   string
	LeaderUsername string
	Status         GroupState
	PaymentOrderID string
	PaymentTradeNo string
	CreatedAt      time.Time
	ActivatedAt    *time.Time
	ExpiresAt      *time.Time
	CompletedAt    *time.Time
	ExpiredAt      *time.Time
}

// NewGroup 是创建拼团的工厂函数，校验必填字段并生成 ID。
func NewGroup(title, description, targetURL, leaderUserID, leaderUsername string) (*Group, error) {
	title = strings.TrimSpace(title)
	targetURL = strings.TrimSpace(targetURL)
	if title == "" {
		return nil, ErrInvalidInput("title is required")
	}
	if leaderUserID == "" || leaderUsername == "" {
		return nil, ErrInvalidInput("leader identity is required")
	}
	if !IsValidHTTPURL(targetURL) {
		return nil, ErrInvalidInput("target url must be a valid http(s) url")
	}

	return &Group{
		ID:             NewGroupID(),
		Title:          title,
		Description:    strings.TrimSpace(description),
		TargetURL:      targetURL,
		LeaderUserID:   leaderUserID,
		LeaderUsername: leaderUsername,
		Status:         GroupPendingPayment,
		PaymentOrderID: NewOrderID(),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Activate 在支付成功后把拼团置为 active，并计算过期时间。
func (g *Group) Activate(tradeNo string, now time.Time, expiryWindow time.Duration) error {
	if g.Status != GroupPendingPayment {
		return ErrStateConflict
	}
	expires := now.Add(expiryWindow)
	g.Status = GroupActive
	g.PaymentTradeNo = tradeNo
	g.ActivatedAt = &now
	g.ExpiresAt = &expires
	return nil
}

// Complete 在满足法定人数后把拼团置为 completed。
func (g *Group) Complete(now time.Time) error {
	if g.Status != GroupActive {
		return ErrStateConflict
	}
	g.Status = GroupCompleted
	g.CompletedAt = &now
	return nil
}

// Expire 在到期未成团时把拼团置为 expired。
func (g *Group) Expire(now time.Time) error {
	if g.Status != GroupActive {
		return ErrStateConflict
	}
	g.Status = GroupExpired
	g.ExpiredAt = &now
	return nil
}

// MarkRefunded 在退款成功后把拼团置为 refunded。
func (g *Group) MarkRefunded() error {
	if g.Status != GroupExpired {
		return ErrStateConflict
	}
	g.Status = GroupRefunded
	return nil
}

// PastExpiry 报告拼团是否已过有效期。未激活的拼团永不过期。
func (g *Group) PastExpiry(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// IsValidHTTPURL 校验一个字符串是不是 http/https 链接。
func IsValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewGroupID 生成形如 GRPxxxxxxxx 的拼团 ID（毫秒时间戳 base36 + 随机后缀）。
func NewGroupID() string {
	return newPrefixedID("GRP", 4)
}

// NewOrderID 生成形如 ORDxxxxxxxx 的订单 ID。
func NewOrderID() string {
	return newPrefixedID("ORD", 6)
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func newPrefixedID(prefix string, randLen int) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, randLen)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return strings.ToUpper(fmt.Sprintf("%s%s%s", prefix, ts, suffix))
}
