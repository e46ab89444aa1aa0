package alert

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/notification"
)

type fakeNotifier struct {
	triggered []*notification.ProbeAlert
	cleared   []*notification.ProbeAlert
}

func (f *fakeNotifier) SendProbeTriggered(a *notification.ProbeAlert) error {
	f.triggered = append(f.triggered, a)
	return nil
}

func (f *fakeNotifier) SendProbeCleared(a *notification.ProbeAlert) error {
	f.cleared = append(f.cleared, a)
	return nil
}

func snapshotReading(probe string, value float64) *controller.Snapshot {
	return &controller.Snapshot{Records: []controller.Record{{
		Time: time.Now(),
		Readings: []controller.Reading{
			{Name: probe, Type: "probe", Value: controller.Value(value)},
		},
	}}}
}

func TestEvaluatorImmediateTrigger(t *testing.T) {
	rules := []Rule{{Probe: "temperature", Operator: ">", Threshold: 30}}
	states := NewMemoryStateStore()
	notifier := &fakeNotifier{}
	ev := NewEvaluator(rules, states, notifier, "reef")

	if err := ev.EvaluateSnapshot(context.Background(), snapshotReading("temperature", 31.2)); err != nil {
		t.Fatalf("EvaluateSnapshot returned error: %v", err)
	}

	if len(notifier.triggered) != 1 {
		t.Fatalf("triggered %d alerts, want 1", len(notifier.triggered))
	}
	alert := notifier.triggered[0]
	if alert.Probe != "temperature" || alert.Value != 31.2 || alert.Host != "reef" {
		t.Errorf("alert = %+v", alert)
	}

	state, _ := states.GetState(context.Background(), "reef", "temperature")
	if state.Status != AlarmStateActive {
		t.Errorf("state = %q, want %q", state.Status, AlarmStateActive)
	}
}

func TestEvaluatorDurationRule(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{{Probe: "ph", Operator: "<", Threshold: 7.6, Duration: 5 * time.Minute}}
	states := NewMemoryStateStore()
	notifier := &fakeNotifier{}
	ev := NewEvaluator(rules, states, notifier, "reef")

	// First breaching sample arms the alarm but does not trigger it.
	if err := ev.EvaluateSnapshot(ctx, snapshotReading("ph", 7.4)); err != nil {
		t.Fatalf("EvaluateSnapshot returned error: %v", err)
	}
	if len(notifier.triggered) != 0 {
		t.Fatalf("alarm triggered before the breach duration elapsed")
	}
	state, _ := states.GetState(ctx, "reef", "ph")
	if state.Status != AlarmStatePending {
		t.Fatalf("state = %q, want %q", state.Status, AlarmStatePending)
	}

	// Backdate the breach start past the rule duration; the next breaching
	// sample must trigger.
	state.BreachStartTime = time.Now().Add(-6 * time.Minute)
	states.SetState(ctx, "reef", "ph", state)

	if err := ev.EvaluateSnapshot(ctx, snapshotReading("ph", 7.3)); err != nil {
		t.Fatalf("EvaluateSnapshot returned error: %v", err)
	}
	if len(notifier.triggered) != 1 {
		t.Fatalf("triggered %d alerts, want 1", len(notifier.triggered))
	}
}

func TestEvaluatorPendingClearsWithoutAlert(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{{Probe: "ph", Operator: "<", Threshold: 7.6, Duration: 5 * time.Minute}}
	states := NewMemoryStateStore()
	notifier := &fakeNotifier{}
	ev := NewEvaluator(rules, states, notifier, "reef")

	ev.EvaluateSnapshot(ctx, snapshotReading("ph", 7.4))
	ev.EvaluateSnapshot(ctx, snapshotReading("ph", 7.9))

	if len(notifier.triggered) != 0 || len(notifier.cleared) != 0 {
		t.Errorf("a transient breach sent notifications: %d triggered, %d cleared",
			len(notifier.triggered), len(notifier.cleared))
	}
	state, _ := states.GetState(ctx, "reef", "ph")
	if state.Status != AlarmStateClear {
		t.Errorf("state = %q, want %q", state.Status, AlarmStateClear)
	}
}

func TestEvaluatorActiveAlarmClears(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{{Probe: "temperature", Operator: ">", Threshold: 30}}
	states := NewMemoryStateStore()
	notifier := &fakeNotifier{}
	ev := NewEvaluator(rules, states, notifier, "reef")

	ev.EvaluateSnapshot(ctx, snapshotReading("temperature", 31))
	if len(notifier.triggered) != 1 {
		t.Fatalf("triggered %d alerts, want 1", len(notifier.triggered))
	}

	ev.EvaluateSnapshot(ctx, snapshotReading("temperature", 29))
	if len(notifier.cleared) != 1 {
		t.Fatalf("cleared %d alerts, want 1", len(notifier.cleared))
	}
	state, _ := states.GetState(ctx, "reef", "temperature")
	if state.Status != AlarmStateClear {
		t.Errorf("state = %q, want %q", state.Status, AlarmStateClear)
	}
}

func TestEvaluatorIgnoresNonFiniteAndMissingProbes(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{{Probe: "temperature", Operator: ">", Threshold: 30}}
	states := NewMemoryStateStore()
	notifier := &fakeNotifier{}
	ev := NewEvaluator(rules, states, notifier, "reef")

	// A disconnected probe reads NaN; the rule must not fire or clear on it.
	nan := &controller.Snapshot{Records: []controller.Record{{
		Time: time.Now(),
		Readings: []controller.Reading{
			{Name: "temperature", Type: "probe", Value: controller.Value(math.NaN())},
		},
	}}}
	if err := ev.EvaluateSnapshot(ctx, nan); err != nil {
		t.Fatalf("EvaluateSnapshot returned error: %v", err)
	}

	// A snapshot without the probe at all is likewise a no-op.
	if err := ev.EvaluateSnapshot(ctx, snapshotReading("ph", 8.1)); err != nil {
		t.Fatalf("EvaluateSnapshot returned error: %v", err)
	}

	if len(notifier.triggered) != 0 {
		t.Errorf("triggered %d alerts on unusable readings, want 0", len(notifier.triggered))
	}
}
