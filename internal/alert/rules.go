package alert

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule is one probe threshold, e.g. temperature>30:10m means "alarm when
// the temperature probe reads above 30 continuously for ten minutes".
type Rule struct {
	Probe     string
	Operator  string
	Threshold float64
	Duration  time.Duration
}

// ParseRules parses a comma-separated rule list from the environment:
//
//	ALERT_RULES="temperature>30:10m,ph<7.6:5m,salinity>=36"
//
// The duration suffix is optional; without it the rule triggers on the
// first breaching poll.
func ParseRules(spec string) ([]Rule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var rules []Rule
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		rule, err := parseRule(part)
		if err != nil {
			return nil, fmt.Errorf("invalid alert rule %q: %w", part, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseRule(s string) (Rule, error) {
	var rule Rule

	body := s
	if idx := strings.LastIndex(s, ":"); idx > 0 {
		dur, err := time.ParseDuration(s[idx+1:])
		if err != nil {
			return rule, fmt.Errorf("bad duration: %w", err)
		}
		rule.Duration = dur
		body = s[:idx]
	}

	// Two-character operators first so ">=" doesn't parse as ">".
	for _, op := range []string{">=", "<=", ">", "<"} {
		idx := strings.Index(body, op)
		if idx <= 0 {
			continue
		}

		threshold, err := strconv.ParseFloat(strings.TrimSpace(body[idx+len(op):]), 64)
		if err != nil {
			return rule, fmt.Errorf("bad threshold: %w", err)
		}

		rule.Probe = strings.TrimSpace(body[:idx])
		rule.Operator = op
		rule.Threshold = threshold
		return rule, nil
	}

	return rule, fmt.Errorf("no operator found (expected >, <, >= or <=)")
}
