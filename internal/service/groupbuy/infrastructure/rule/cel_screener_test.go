package rule

import (
	"testing"

	"pinhub/internal/service/groupbuy/port"
)

func TestDefaultRule(t *testing.T) {
	screener, err := NewCelProofScreener("")
	if err != nil {
		t.Fatalf("NewCelProofScreener: %v", err)
	}

	pass, err := screener.Screen(port.ProofFact{Text: "joined the deal"})
	if err != nil || !pass {
		t.Errorf("text-only proof: pass=%v err=%v", pass, err)
	}
	pass, err = screener.Screen(port.ProofFact{})
	if err != nil || pass {
		t.Errorf("empty proof: pass=%v err=%v", pass, err)
	}
}

func TestCustomRule(t *testing.T) {
	screener, err := NewCelProofScreener(`url.startsWith("https://") || role == "leader"`)
	if err != nil {
		t.Fatalf("NewCelProofScreener: %v", err)
	}

	tests := []struct {
		name string
		fact port.ProofFact
		want bool
	}{
		{name: "https url", fact: port.ProofFact{URL: "https://example.com/x"}, want: true},
		{name: "http url", fact: port.ProofFact{URL: "http://example.com/x"}, want: false},
		{name: "leader without url", fact: port.ProofFact{Role: "leader"}, want: true},
		{name: "member without url", fact: port.ProofFact{Role: "member", Text: "joined"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, err := screener.Screen(tt.fact)
			if err != nil {
				t.Fatalf("Screen: %v", err)
			}
			if pass != tt.want {
				t.Errorf("Screen() = %v, want %v", pass, tt.want)
			}
		})
	}
}

func TestInvalidRules(t *testing.T) {
	if _, err := NewCelProofScreener(`text +`); err == nil {
		t.Error("syntactically invalid rule must fail at construction")
	}
	if _, err := NewCelProofScreener(`text`); err == nil {
		t.Error("non-bool rule must fail at construction")
	}
}
