package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

func TestCreateGroupBuildsPayForm(t *testing.T) {
	gateway := &fakeGateway{verifyOK: true}
	service, store, _ := newTestService(gateway, nil)

	identity := &port.Identity{UserID: "leader", Username: "alice"}
	result, err := service.CreateGroup(context.Background(), identity, &CreateGroupRequest{
		Title:     "Keyboard group buy",
		TargetURL: "https://example.com/item/1",
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if store.groups[result.GroupID].Status != domain.GroupPendingPayment {
		t.Error("new group must await payment")
	}
	if store.orders[result.OrderID].Amount != 4 {
		t.Errorf("order amount = %v, want configured fee", store.orders[result.OrderID].Amount)
	}
	if result.PayForm.Params["money"] != "4.00" {
		t.Errorf("pay form money = %s", result.PayForm.Params["money"])
	}
	if result.PayForm.Params["notify_url"] != "http://localhost:8080/pay/notify" {
		t.Errorf("notify_url = %s", result.PayForm.Params["notify_url"])
	}
	if result.PayForm.Params["return_url"] != "http://localhost:8080/pay/return" {
		t.Errorf("return_url = %s", result.PayForm.Params["return_url"])
	}
}

func TestSubmitProofRequiresActiveGroup(t *testing.T) {
	service, store, _ := newTestService(&fakeGateway{verifyOK: true}, nil)
	identity := &port.Identity{UserID: "u2", Username: "bob"}

	// pending_payment 的拼团不可见也不可参与。
	created := seedPendingGroup(t, service)
	_, err := service.SubmitProof(context.Background(), identity, &SubmitProofRequest{
		GroupID:   created.GroupID,
		ProofText: "joined",
	})
	if !errors.Is(err, domain.ErrGroupNotActive) {
		t.Errorf("error = %v, want ErrGroupNotActive", err)
	}

	// active 但已过期的拼团拒绝新凭证。
	seedActiveGroup(store, "GRP-OLD", time.Now().UTC().Add(-time.Minute))
	_, err = service.SubmitProof(context.Background(), identity, &SubmitProofRequest{
		GroupID:   "GRP-OLD",
		ProofText: "joined",
	})
	if !errors.Is(err, domain.ErrGroupExpired) {
		t.Errorf("error = %v, want ErrGroupExpired", err)
	}
}

func TestSubmitProofJoinerCap(t *testing.T) {
	service, store, _ := newTestService(&fakeGateway{verifyOK: true}, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(time.Hour))

	submit := func(userID string) error {
		_, err := service.SubmitProof(context.Background(), &port.Identity{UserID: userID, Username: userID}, &SubmitProofRequest{
			GroupID:   "GRP1",
			ProofText: "joined",
		})
		return err
	}

	if err := submit("u2"); err != nil {
		t.Fatalf("first joiner: %v", err)
	}
	if err := submit("u3"); err != nil {
		t.Fatalf("second joiner: %v", err)
	}
	if err := submit("u4"); !errors.Is(err, domain.ErrGroupFull) {
		t.Errorf("third joiner error = %v, want ErrGroupFull", err)
	}

	// 已占名额的成员重新提交不受上限影响，团长也不占跟团名额。
	if err := submit("u2"); err != nil {
		t.Errorf("resubmit: %v", err)
	}
	if err := submit("leader"); err != nil {
		t.Errorf("leader proof: %v", err)
	}

	leaderProof := store.members[memberKey("GRP1", "leader")]
	if leaderProof.Role != domain.RoleLeader {
		t.Errorf("leader role = %s", leaderProof.Role)
	}
}

func TestSubmitProofResubmitResetsReview(t *testing.T) {
	service, store, _ := newTestService(&fakeGateway{verifyOK: true}, nil)
	seedActiveGroup(store, "GRP1", time.Now().UTC().Add(time.Hour))
	identity := &port.Identity{UserID: "u2", Username: "bob"}

	view, err := service.SubmitProof(context.Background(), identity, &SubmitProofRequest{GroupID: "GRP1", ProofText: "v1"})
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if _, err := service.ReviewProof(context.Background(), view.ID, false); err != nil {
		t.Fatalf("ReviewProof: %v", err)
	}

	again, err := service.SubmitProof(context.Background(), identity, &SubmitProofRequest{GroupID: "GRP1", ProofText: "v2"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.ID != view.ID {
		t.Errorf("resubmit created a new record: %d != %d", again.ID, view.ID)
	}
	if again.Status != string(domain.MemberPending) || again.ProofText != "v2" {
		t.Errorf("after resubmit: status=%s text=%q", again.Status, again.ProofText)
	}
	if got := store.members[memberKey("GRP1", "u2")]; got.ReviewedAt != nil {
		t.Error("resubmit must clear reviewed_at")
	}
}

func TestSubmitProofScreening(t *testing.T) {
	seed := func(screener port.ProofScreener) (*GroupService, *fakeStore) {
		service, store, _ := newTestService(&fakeGateway{verifyOK: true}, screener)
		seedActiveGroup(store, "GRP1", time.Now().UTC().Add(time.Hour))
		return service, store
	}
	identity := &port.Identity{UserID: "u2", Username: "bob"}
	req := &SubmitProofRequest{GroupID: "GRP1", ProofText: "joined"}

	service, _ := seed(&fakeScreener{pass: false})
	if _, err := service.SubmitProof(context.Background(), identity, req); !domain.IsValidation(err) {
		t.Errorf("screened-out proof error = %v, want validation error", err)
	}

	// 规则引擎故障时放行。
	service, store := seed(&fakeScreener{pass: false, err: errors.New("engine down")})
	if _, err := service.SubmitProof(context.Background(), identity, req); err != nil {
		t.Errorf("engine failure must not block submission: %v", err)
	}
	if _, ok := store.members[memberKey("GRP1", "u2")]; !ok {
		t.Error("proof was not saved")
	}
}
