// internal/service/groupbuy/infrastructure/adapter/session_redis_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"pinhub/internal/pkg/redis"
	"pinhub/internal/service/groupbuy/port"
)

const sessionKeyPrefix = "session:"

// RedisSessionAdapter 从 Redis 读取登录会话，实现 port.SessionService。
// 会话由外部登录服务写入，格式是 Identity 的 JSON。
type RedisSessionAdapter struct {
	client *redis.Client
}

// NewRedisSessionAdapter 创建 Redis 会话适配器
func NewRedisSessionAdapter(client *redis.Client) *RedisSessionAdapter {
	return &RedisSessionAdapter{client: client}
}

// Lookup 查询会话，key 不存在返回 (nil, nil)。
func (a *RedisSessionAdapter) Lookup(ctx context.Context, sessionID string) (*port.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}
	raw, err := a.client.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, "session lookup")
	}

	var identity port.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, pkgerrors.Wrap(err, "decode session payload")
	}
	if identity.UserID == "" {
		return nil, nil
	}
	return &identity, nil
}
