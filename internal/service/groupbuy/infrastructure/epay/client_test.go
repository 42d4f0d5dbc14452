package epay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"pinhub/internal/pkg/httpclient"
)

func newTestClient(t *testing.T, refundURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		MerchantID:  "1000",
		MerchantKey: "testkey",
		PayURL:      "https://gateway.example/submit.php",
		RefundURL:   refundURL,
	}, httpclient.NewClient(otel.Tracer("test")))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{PayURL: "https://gateway.example"}, httpclient.NewClient(otel.Tracer("test")))
	if err == nil {
		t.Fatal("NewClient accepted empty merchant credentials")
	}
}

func TestBuildPayForm(t *testing.T) {
	client := newTestClient(t, "")

	form, err := client.BuildPayForm("ORD123", "Group post fee: Test", 4, "http://localhost/pay/notify", "http://localhost/pay/return")
	if err != nil {
		t.Fatalf("BuildPayForm: %v", err)
	}
	if form.Action != "https://gateway.example/submit.php" {
		t.Errorf("Action = %s", form.Action)
	}
	if form.Params["money"] != "4.00" {
		t.Errorf("money = %s, want 4.00", form.Params["money"])
	}
	if form.Params["sign_type"] != "MD5" {
		t.Errorf("sign_type = %s, want MD5", form.Params["sign_type"])
	}
	// notify_url 和 return_url 也参与签名，这里对除 URL 外固定的字段做向量校验。
	if !Verify(form.Params, "testkey") {
		t.Error("pay form params do not verify against the merchant key")
	}
}

func TestRefund(t *testing.T) {
	tests := []struct {
		name     string
		response string
		status   int
		wantErr  string
	}{
		{name: "success", response: `{"code":1,"msg":"ok"}`, status: http.StatusOK},
		{name: "rejected", response: `{"code":0,"msg":"insufficient balance"}`, status: http.StatusOK, wantErr: "insufficient balance"},
		{name: "non json body", response: `<html>maintenance</html>`, status: http.StatusOK, wantErr: "non_json_response"},
		{name: "http error", response: `oops`, status: http.StatusBadGateway, wantErr: "refund call failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotForm map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				gotForm = map[string]string{
					"pid":      r.Form.Get("pid"),
					"key":      r.Form.Get("key"),
					"trade_no": r.Form.Get("trade_no"),
					"money":    r.Form.Get("money"),
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			err := client.Refund(context.Background(), "2026001", 4)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Refund: %v", err)
				}
				if gotForm["pid"] != "1000" || gotForm["key"] != "testkey" || gotForm["trade_no"] != "2026001" || gotForm["money"] != "4" {
					t.Errorf("refund form = %v", gotForm)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Refund error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRefundRequiresTradeNo(t *testing.T) {
	client := newTestClient(t, "https://gateway.example/api.php")
	if err := client.Refund(context.Background(), "", 4); err == nil {
		t.Error("Refund accepted an empty trade_no")
	}
}
