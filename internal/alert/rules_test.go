package alert

import (
	"testing"
	"time"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("temperature>30:10m, ph<7.6:5m ,salinity>=36")
	if err != nil {
		t.Fatalf("ParseRules returned error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	want := []Rule{
		{Probe: "temperature", Operator: ">", Threshold: 30, Duration: 10 * time.Minute},
		{Probe: "ph", Operator: "<", Threshold: 7.6, Duration: 5 * time.Minute},
		{Probe: "salinity", Operator: ">=", Threshold: 36, Duration: 0},
	}
	for i, w := range want {
		if rules[i] != w {
			t.Errorf("rule %d = %+v, want %+v", i, rules[i], w)
		}
	}
}

func TestParseRulesEmpty(t *testing.T) {
	for _, spec := range []string{"", "   ", ","} {
		rules, err := ParseRules(spec)
		if err != nil {
			t.Errorf("ParseRules(%q) returned error: %v", spec, err)
		}
		if len(rules) != 0 {
			t.Errorf("ParseRules(%q) = %v, want none", spec, rules)
		}
	}
}

func TestParseRulesInvalid(t *testing.T) {
	cases := []string{
		"temperature=30",     // unsupported operator
		"temperature>thirty", // non-numeric threshold
		"temperature>30:ten", // bad duration
		">30",                // missing probe name
	}
	for _, spec := range cases {
		if _, err := ParseRules(spec); err == nil {
			t.Errorf("ParseRules(%q) succeeded, want error", spec)
		}
	}
}

func TestEvaluateCondition(t *testing.T) {
	cases := []struct {
		value     float64
		op        string
		threshold float64
		want      bool
	}{
		{31, ">", 30, true},
		{30, ">", 30, false},
		{30, ">=", 30, true},
		{7.5, "<", 7.6, true},
		{7.6, "<=", 7.6, true},
		{7.7, "<=", 7.6, false},
		{1, "!", 0, false},
	}
	for _, c := range cases {
		if got := evaluateCondition(c.value, c.op, c.threshold); got != c.want {
			t.Errorf("evaluateCondition(%v, %q, %v) = %v, want %v", c.value, c.op, c.threshold, got, c.want)
		}
	}
}
