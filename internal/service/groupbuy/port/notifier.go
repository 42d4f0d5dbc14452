// internal/service/groupbuy/port/notifier.go
package port

import (
	"context"

	"pinhub/internal/service/groupbuy/domain"
)

// LifecycleNotifier 把拼团生命周期事件发布给下游（推送网关等）。
// 所有方法都是尽力而为：失败只记日志，绝不让业务写入回滚。
type LifecycleNotifier interface {
	GroupActivated(ctx context.Context, event *domain.GroupActivated) error
	GroupCompleted(ctx context.Context, event *domain.GroupCompletedEvent) error
	GroupExpired(ctx context.Context, event *domain.GroupExpiredEvent) error
	GroupRefunded(ctx context.Context, event *domain.GroupRefundedEvent) error
}
