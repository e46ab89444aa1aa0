package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/notification"
)

// Notifier delivers alarm transitions to the operator.
type Notifier interface {
	SendProbeTriggered(alert *notification.ProbeAlert) error
	SendProbeCleared(alert *notification.ProbeAlert) error
}

// Evaluator checks live snapshots against the configured probe thresholds
// and drives the CLEAR → PENDING_ALARM → ALARMING state machine for each
// rule. A rule triggers only after its breach has persisted for the rule's
// duration, which filters the single-sample spikes probes produce while
// being cleaned or calibrated.
type Evaluator struct {
	rules    []Rule
	states   StateStore
	notifier Notifier
	host     string
}

// NewEvaluator creates an evaluator for one controller host.
func NewEvaluator(rules []Rule, states StateStore, notifier Notifier, host string) *Evaluator {
	return &Evaluator{rules: rules, states: states, notifier: notifier, host: host}
}

// EvaluateSnapshot evaluates every rule against the snapshot's latest
// record. Per-rule failures are reported but do not stop the other rules.
func (e *Evaluator) EvaluateSnapshot(ctx context.Context, snap *controller.Snapshot) error {
	if len(e.rules) == 0 {
		return nil
	}

	latest, ok := snap.Latest()
	if !ok {
		return nil
	}

	for _, rule := range e.rules {
		value, found := findReading(&latest, rule.Probe)
		if !found {
			continue
		}

		if err := e.evaluateRule(ctx, rule, value); err != nil {
			fmt.Printf("Failed to evaluate alert rule for %s: %v\n", rule.Probe, err)
		}
	}
	return nil
}

func (e *Evaluator) evaluateRule(ctx context.Context, rule Rule, value float64) error {
	breached := evaluateCondition(value, rule.Operator, rule.Threshold)

	state, err := e.states.GetState(ctx, e.host, rule.Probe)
	if err != nil {
		return err
	}

	now := time.Now()
	if breached {
		return e.handleBreach(ctx, rule, value, state, now)
	}
	return e.handleNoBreach(ctx, rule, state, now)
}

func (e *Evaluator) handleBreach(ctx context.Context, rule Rule, value float64, state *AlarmState, now time.Time) error {
	switch state.Status {
	case AlarmStateClear:
		// New breach detected
		newState := &AlarmState{
			Status:          AlarmStatePending,
			BreachStartTime: now,
			LastChecked:     now,
			BreachValue:     value,
		}
		if rule.Duration == 0 {
			return e.triggerAlarm(ctx, rule, value, newState, now)
		}
		return e.states.SetState(ctx, e.host, rule.Probe, newState)

	case AlarmStatePending:
		if now.Sub(state.BreachStartTime) >= rule.Duration {
			return e.triggerAlarm(ctx, rule, value, state, now)
		}
		state.LastChecked = now
		state.BreachValue = value
		return e.states.SetState(ctx, e.host, rule.Probe, state)

	case AlarmStateActive:
		// Alarm already active, update last checked
		state.LastChecked = now
		return e.states.SetState(ctx, e.host, rule.Probe, state)
	}

	return nil
}

func (e *Evaluator) handleNoBreach(ctx context.Context, rule Rule, state *AlarmState, now time.Time) error {
	switch state.Status {
	case AlarmStateClear:
		return nil

	case AlarmStatePending:
		// Breach ended before the alarm triggered
		return e.states.DeleteState(ctx, e.host, rule.Probe)

	case AlarmStateActive:
		return e.clearAlarm(ctx, rule, state, now)
	}

	return nil
}

func (e *Evaluator) triggerAlarm(ctx context.Context, rule Rule, value float64, state *AlarmState, now time.Time) error {
	fmt.Printf("🚨 ALARM TRIGGERED: %s on %s (value=%.2f, threshold=%s%.2f)\n",
		rule.Probe, e.host, value, rule.Operator, rule.Threshold)

	state.Status = AlarmStateActive
	state.LastChecked = now
	state.BreachValue = value
	if err := e.states.SetState(ctx, e.host, rule.Probe, state); err != nil {
		return err
	}

	if e.notifier == nil {
		return nil
	}
	return e.notifier.SendProbeTriggered(&notification.ProbeAlert{
		Host:      e.host,
		Probe:     rule.Probe,
		Operator:  rule.Operator,
		Value:     value,
		Threshold: rule.Threshold,
		Duration:  rule.Duration,
		StartTime: state.BreachStartTime,
	})
}

func (e *Evaluator) clearAlarm(ctx context.Context, rule Rule, state *AlarmState, now time.Time) error {
	fmt.Printf("✅ ALARM CLEARED: %s on %s\n", rule.Probe, e.host)

	if err := e.states.DeleteState(ctx, e.host, rule.Probe); err != nil {
		return err
	}

	if e.notifier == nil {
		return nil
	}
	return e.notifier.SendProbeCleared(&notification.ProbeAlert{
		Host:      e.host,
		Probe:     rule.Probe,
		Operator:  rule.Operator,
		Value:     state.BreachValue,
		Threshold: rule.Threshold,
		Duration:  now.Sub(state.BreachStartTime),
		StartTime: state.BreachStartTime,
	})
}

func findReading(rec *controller.Record, probe string) (float64, bool) {
	for _, rd := range rec.Readings {
		if strings.EqualFold(rd.Name, probe) && rd.Value.Finite() {
			return float64(rd.Value), true
		}
	}
	return 0, false
}

func evaluateCondition(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}
