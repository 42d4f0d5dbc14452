// internal/service/groupbuy/port/session.go
package port

import "context"

// Identity 是会话提供方给出的已认证身份快照。
// 本核心只消费它，登录、发令牌都在外部完成。
type Identity struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
}

// SessionService 按会话 ID 查询身份，未命中返回 (nil, nil)。
type SessionService interface {
	Lookup(ctx context.Context, sessionID string) (*Identity, error)
}
