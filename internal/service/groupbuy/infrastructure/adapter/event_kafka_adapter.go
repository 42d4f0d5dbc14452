// internal/service/groupbuy/infrastructure/adapter/event_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"pinhub/internal/pkg/mq"
	"pinhub/internal/service/groupbuy/domain"
)

// eventEnvelope 是 kafka 消息体：kind 用于消费侧分发，payload 是事件本身。
type eventEnvelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// KafkaLifecycleNotifier 把拼团生命周期事件写入 kafka，实现 port.LifecycleNotifier。
// 消息 key 用 groupID，保证同一拼团的事件落到同一分区、保持顺序。
type KafkaLifecycleNotifier struct {
	writer *kafka.Writer
}

// NewKafkaLifecycleNotifier 创建 kafka 事件通知适配器
func NewKafkaLifecycleNotifier(writer *kafka.Writer) *KafkaLifecycleNotifier {
	return &KafkaLifecycleNotifier{writer: writer}
}

func (n *KafkaLifecycleNotifier) publish(ctx context.Context, kind, groupID string, payload interface{}) error {
	value, err := json.Marshal(eventEnvelope{Kind: kind, Payload: payload})
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, n.writer, []byte(groupID), value)
}

func (n *KafkaLifecycleNotifier) GroupActivated(ctx context.Context, event *domain.GroupActivated) error {
	return n.publish(ctx, domain.EventGroupActivated, event.GroupID, event)
}

func (n *KafkaLifecycleNotifier) GroupCompleted(ctx context.Context, event *domain.GroupCompletedEvent) error {
	return n.publish(ctx, domain.EventGroupCompleted, event.GroupID, event)
}

func (n *KafkaLifecycleNotifier) GroupExpired(ctx context.Context, event *domain.GroupExpiredEvent) error {
	return n.publish(ctx, domain.EventGroupExpired, event.GroupID, event)
}

func (n *KafkaLifecycleNotifier) GroupRefunded(ctx context.Context, event *domain.GroupRefundedEvent) error {
	return n.publish(ctx, domain.EventGroupRefunded, event.GroupID, event)
}
