package application

import (
	"context"
	"testing"
	"time"

	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

func seedPendingGroup(t *testing.T, service *GroupService) *CreateGroupResult {
	t.Helper()
	identity := &port.Identity{UserID: "leader", Username: "leader"}
	result, err := service.CreateGroup(context.Background(), identity, &CreateGroupRequest{
		Title:     "Keyboard group buy",
		TargetURL: "https://example.com/item/1",
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return result
}

func notifyParams(orderID string) map[string]string {
	return map[string]string{
		"out_trade_no": orderID,
		"trade_no":     "2026001",
		"trade_status": "TRADE_SUCCESS",
		"money":        "4.00",
		"sign":         "irrelevant-for-fake",
	}
}

func TestHandleNotifyActivatesGroup(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, notifier := newTestService(gateway, nil)
	created := seedPendingGroup(t, service)

	outcome, err := service.HandleNotify(context.Background(), notifyParams(created.OrderID))
	if err != nil {
		t.Fatalf("HandleNotify: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	group := store.groups[created.GroupID]
	if group.Status != domain.GroupActive {
		t.Errorf("group status = %s, want active", group.Status)
	}
	if group.PaymentTradeNo != "2026001" {
		t.Errorf("trade_no = %s", group.PaymentTradeNo)
	}
	if group.ExpiresAt == nil || group.ActivatedAt == nil {
		t.Fatal("activation must set expires_at and activated_at")
	}
	if window := group.ExpiresAt.Sub(*group.ActivatedAt); window != 24*time.Hour {
		t.Errorf("expiry window = %s, want 24h", window)
	}

	order := store.orders[created.OrderID]
	if order.Status != domain.OrderPaid {
		t.Errorf("order status = %s, want paid", order.Status)
	}
	if !notifier.has(domain.EventGroupActivated) {
		t.Error("activation event was not published")
	}
}

// 同一笔通知重放任意次，激活只发生一次。
func TestHandleNotifyIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, _ := newTestService(gateway, nil)
	created := seedPendingGroup(t, service)

	first, _ := service.HandleNotify(context.Background(), notifyParams(created.OrderID))
	if first != OutcomeApplied {
		t.Fatalf("first outcome = %s", first)
	}
	firstExpiry := *store.groups[created.GroupID].ExpiresAt

	second, err := service.HandleNotify(context.Background(), notifyParams(created.OrderID))
	if err != nil {
		t.Fatalf("second HandleNotify: %v", err)
	}
	if second != OutcomeDuplicate {
		t.Errorf("second outcome = %s, want duplicate", second)
	}
	if !store.groups[created.GroupID].ExpiresAt.Equal(firstExpiry) {
		t.Error("replayed notify must not move the expiry window")
	}
}

func TestHandleNotifyRejections(t *testing.T) {
	tests := []struct {
		name    string
		verify  bool
		mutate  func(map[string]string)
		outcome NotifyOutcome
	}{
		{
			name:    "bad signature",
			verify:  false,
			mutate:  func(p map[string]string) {},
			outcome: OutcomeBadSignature,
		},
		{
			name:    "non success status",
			verify:  true,
			mutate:  func(p map[string]string) { p["trade_status"] = "WAIT_BUYER_PAY" },
			outcome: OutcomeIgnored,
		},
		{
			name:    "unknown order",
			verify:  true,
			mutate:  func(p map[string]string) { p["out_trade_no"] = "ORDMISSING" },
			outcome: OutcomeIgnored,
		},
		{
			name:    "amount mismatch",
			verify:  true,
			mutate:  func(p map[string]string) { p["money"] = "0.01" },
			outcome: OutcomeIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{verifyOK: tt.verify}
			service, store, notifier := newTestService(gateway, nil)
			created := seedPendingGroup(t, service)

			params := notifyParams(created.OrderID)
			tt.mutate(params)

			outcome, err := service.HandleNotify(context.Background(), params)
			if err != nil {
				t.Fatalf("HandleNotify: %v", err)
			}
			if outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", outcome, tt.outcome)
			}
			if store.groups[created.GroupID].Status != domain.GroupPendingPayment {
				t.Error("rejected notify must not change group state")
			}
			if notifier.has(domain.EventGroupActivated) {
				t.Error("rejected notify must not publish events")
			}
		})
	}
}
