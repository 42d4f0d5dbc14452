package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pinhub/internal/service/groupbuy/domain"
)

func TestRunSweepExpiresAndRefunds(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, notifier := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(-time.Minute))
	seedApprovedMembers(store, "GRP1", 2) // 不足法定人数

	processed, err := service.RunSweep(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	group := store.groups["GRP1"]
	if group.Status != domain.GroupRefunded {
		t.Errorf("group status = %s, want refunded", group.Status)
	}
	order := store.orders["ORD-GRP1"]
	if order.Status != domain.OrderRefunded || order.RefundedAt == nil {
		t.Errorf("order status = %s", order.Status)
	}
	if len(gateway.refundCalls) != 1 || gateway.refundCalls[0] != "T-GRP1" {
		t.Errorf("refund calls = %v", gateway.refundCalls)
	}
	if !notifier.has(domain.EventGroupExpired) || !notifier.has(domain.EventGroupRefunded) {
		t.Error("expiry and refund events must both be published")
	}
}

func TestRunSweepSkipsUnexpiredGroups(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, _ := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(time.Hour))

	processed, err := service.RunSweep(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
	if store.groups["GRP1"].Status != domain.GroupActive {
		t.Error("unexpired group must stay active")
	}
}

// 过期瞬间刚好凑齐凭证：成团优先于过期。
func TestSweepPrefersCompletionOverExpiry(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, notifier := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(-time.Minute))
	seedApprovedMembers(store, "GRP1", 3)

	if _, err := service.RunSweep(context.Background(), time.Second); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	group := store.groups["GRP1"]
	if group.Status != domain.GroupCompleted {
		t.Fatalf("group status = %s, want completed", group.Status)
	}
	if len(gateway.refundCalls) != 0 {
		t.Error("completed group must not be refunded")
	}
	if len(store.rewardsByGroup("GRP1")) != domain.Quorum {
		t.Error("completion via sweep must create rewards")
	}
	if notifier.has(domain.EventGroupExpired) {
		t.Error("no expiry event when quorum is met")
	}
}

// 退款失败：拼团停在 expired，错误落到订单上，下一轮重试成功。
func TestSweepRefundFailureAndRetry(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true, refundErr: errors.New("gateway timeout")}
	service, store, notifier := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(-time.Minute))

	if _, err := service.RunSweep(context.Background(), time.Second); err != nil {
		t.Fatalf("first RunSweep: %v", err)
	}

	group := store.groups["GRP1"]
	if group.Status != domain.GroupExpired {
		t.Fatalf("group status = %s, want expired after failed refund", group.Status)
	}
	order := store.orders["ORD-GRP1"]
	if order.Status != domain.OrderPaid {
		t.Errorf("order status = %s, must stay paid", order.Status)
	}
	if order.RefundError == "" {
		t.Error("refund failure must be recorded on the order")
	}
	if notifier.has(domain.EventGroupRefunded) {
		t.Error("no refund event on failure")
	}

	// 网关恢复后，expired 的拼团不再进 ListExpiredActive，
	// 重试走 ExpireAndRefund 的 expired 分支。
	gateway.refundErr = nil
	if err := service.ExpireAndRefund(context.Background(), "GRP1", time.Second); err != nil {
		t.Fatalf("retry ExpireAndRefund: %v", err)
	}

	group = store.groups["GRP1"]
	order = store.orders["ORD-GRP1"]
	if group.Status != domain.GroupRefunded || order.Status != domain.OrderRefunded {
		t.Errorf("after retry: group=%s order=%s", group.Status, order.Status)
	}
	if order.RefundError != "" {
		t.Error("successful refund must clear refund_error")
	}
	if !notifier.has(domain.EventGroupRefunded) {
		t.Error("refund event missing after retry")
	}
}

// 订单从未支付过（active 状态异常残留）：只过期，不调退款。
func TestSweepSkipsRefundForUnpaidOrder(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, notifier := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(-time.Minute))

	order := store.orders["ORD-GRP1"]
	order.Status = domain.OrderPending
	order.PaidAt = nil
	store.orders["ORD-GRP1"] = order

	if _, err := service.RunSweep(context.Background(), time.Second); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	if store.groups["GRP1"].Status != domain.GroupExpired {
		t.Errorf("group status = %s, want expired", store.groups["GRP1"].Status)
	}
	if store.orders["ORD-GRP1"].Status != domain.OrderPending {
		t.Errorf("order status = %s, must stay pending", store.orders["ORD-GRP1"].Status)
	}
	if len(gateway.refundCalls) != 0 {
		t.Errorf("refund calls = %v, want none for unpaid order", gateway.refundCalls)
	}
	if !notifier.has(domain.EventGroupExpired) || notifier.has(domain.EventGroupRefunded) {
		t.Error("want expiry event only")
	}
}

// 对非 active、非 expired 的拼团，过期操作是无害的空操作。
func TestExpireAndRefundIgnoresSettledGroups(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, _ := newTestService(gateway, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(-time.Minute))

	group := store.groups["GRP1"]
	group.Status = domain.GroupCompleted
	store.groups["GRP1"] = group

	if err := service.ExpireAndRefund(context.Background(), "GRP1", time.Second); err != nil {
		t.Fatalf("ExpireAndRefund: %v", err)
	}
	if store.groups["GRP1"].Status != domain.GroupCompleted {
		t.Error("completed group must not be touched")
	}
	if len(gateway.refundCalls) != 0 {
		t.Error("completed group must not be refunded")
	}
}
