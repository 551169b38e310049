package rules

import (
	"fmt"
	"testing"

	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/transaction"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
	if hits := engine.Match(&domain.TransactionRecord{}); hits != nil {
		t.Errorf("expected no hits from empty engine, got %v", hits)
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.RuleConfig{
		ID:         "test-rule-001",
		Name:       "Test Rule",
		Expression: "amount > 100.0",
		Weight:     10,
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	tests := []struct {
		name string
		rule *domain.RuleConfig
	}{
		{"syntax", &domain.RuleConfig{ID: "bad", Expression: "this is not valid CEL !!!"}},
		{"string output", &domain.RuleConfig{ID: "str", Expression: "currency"}},
		{"unknown variable", &domain.RuleConfig{ID: "var", Expression: "debtor_id == \"x\""}},
		{"missing id", &domain.RuleConfig{Expression: "has_amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := engine.ValidateRule(tt.rule); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := engine.ValidateRule(nil); err == nil {
		t.Error("expected error for nil rule")
	}
	if engine.RulesCount() != 0 {
		t.Errorf("validation must not load rules, got %d", engine.RulesCount())
	}
}

func TestMatchHighValue(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.RuleConfig{
		ID:         "high-value-001",
		Name:       "High Value Transfer",
		Expression: `has_amount && amount > 10000.0 && currency == "USD"`,
		Weight:     30,
		Reason:     "High value USD transfer",
		Enabled:    true,
	})

	low := &domain.TransactionRecord{Amount: domain.AmountOf("500"), Currency: "usd"}
	if hits := engine.Match(low); len(hits) != 0 {
		t.Errorf("expected no hits for low value, got %v", hits)
	}

	high := &domain.TransactionRecord{Amount: domain.AmountOf("15000.00"), Currency: "usd"}
	hits := engine.Match(high)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].RuleID != "high-value-001" || hits[0].Weight != 30 || hits[0].Reason != "High value USD transfer" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}

	malformed := &domain.TransactionRecord{Amount: domain.AmountOf("lots"), Currency: "USD"}
	if hits := engine.Match(malformed); len(hits) != 0 {
		t.Errorf("expected no hits for unparseable amount, got %v", hits)
	}
}

func TestMatchReasonDefaultsToName(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.RuleConfig{
		ID:         "crypto",
		Name:       "Crypto in description",
		Expression: `tx.description.contains("btc")`,
		Weight:     15,
		Enabled:    true,
	})

	hits := engine.Match(&domain.TransactionRecord{Description: "send btc"})
	if len(hits) != 1 || hits[0].Reason != "Crypto in description" {
		t.Errorf("expected name as reason, got %v", hits)
	}
}

func TestMatchOrderIsDeterministic(t *testing.T) {
	engine, _ := NewEngine(3)
	defer engine.Close()

	for i := 9; i >= 0; i-- {
		engine.LoadRule(&domain.RuleConfig{
			ID:         fmt.Sprintf("rule-%d", i),
			Expression: "status == \"pending\"",
			Weight:     1,
			Reason:     fmt.Sprintf("reason %d", i),
			Enabled:    true,
		})
	}

	rec := &domain.TransactionRecord{Status: " Pending "}
	for run := 0; run < 5; run++ {
		hits := engine.Match(rec)
		if len(hits) != 10 {
			t.Fatalf("expected 10 hits, got %d", len(hits))
		}
		for i, h := range hits {
			if want := fmt.Sprintf("rule-%d", i); h.RuleID != want {
				t.Fatalf("run %d: hit %d is %s, want %s", run, i, h.RuleID, want)
			}
		}
	}
}

func TestNumericExpression(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.RuleConfig{
		ID:         "numeric",
		Expression: "sender == recipient ? 1.0 : 0.0",
		Weight:     5,
		Enabled:    true,
	})

	if hits := engine.Match(&domain.TransactionRecord{Sender: "a", Recipient: "b"}); len(hits) != 0 {
		t.Errorf("expected no hit, got %v", hits)
	}
	if hits := engine.Match(&domain.TransactionRecord{Sender: "a", Recipient: "a"}); len(hits) != 1 {
		t.Errorf("expected 1 hit, got %v", hits)
	}
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.RuleConfig{ID: "old", Expression: "has_amount", Enabled: true})

	err := engine.ReloadRules([]*domain.RuleConfig{
		{ID: "a", Expression: "has_amount", Enabled: true},
		{ID: "b", Expression: "has_amount", Enabled: false},
	})
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	loaded := engine.GetLoadedRules()
	if len(loaded) != 1 || loaded[0].ID != "a" {
		t.Errorf("expected only rule a, got %v", loaded)
	}

	// a broken rule keeps the previous set
	err = engine.ReloadRules([]*domain.RuleConfig{{ID: "broken", Expression: "!!!", Enabled: true}})
	if err == nil {
		t.Fatal("expected reload error")
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected previous rules kept, got %d", engine.RulesCount())
	}
}

func TestEngineFeedsValidator(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.RuleConfig{
		ID:         "no-id",
		Expression: `transaction_id == ""`,
		Weight:     20,
		Reason:     "Operator: missing reference",
		Enabled:    true,
	})

	v := transaction.NewValidator(engine)
	res := v.Validate(domain.TransactionRecord{})

	// 75 from missing fields + 20 from the operator rule
	if res.RiskScore != 95 {
		t.Errorf("expected 95, got %d", res.RiskScore)
	}
	last := res.Reasons[len(res.Reasons)-1]
	if last != "Operator: missing reference" {
		t.Errorf("expected operator reason last, got %q", last)
	}
}

func TestActivation(t *testing.T) {
	vars := Activation(&domain.TransactionRecord{
		Amount:   domain.AmountOf(" 12.50 "),
		Currency: " eur",
		Status:   "COMPLETED",
	})

	if vars["amount"] != 12.5 {
		t.Errorf("expected amount 12.5, got %v", vars["amount"])
	}
	if vars["has_amount"] != true {
		t.Error("expected has_amount")
	}
	if vars["currency"] != "EUR" {
		t.Errorf("expected EUR, got %v", vars["currency"])
	}
	if vars["status"] != "completed" {
		t.Errorf("expected completed, got %v", vars["status"])
	}
	tx, ok := vars["tx"].(map[string]any)
	if !ok || tx["currency"] != "EUR" {
		t.Errorf("expected tx map mirror, got %v", vars["tx"])
	}
}
