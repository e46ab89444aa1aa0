package stream

import (
	"math"
	"testing"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
)

func TestSnapshotMessageSurvivesNaNReadings(t *testing.T) {
	// Disconnected probes put NaN into snapshots; the message must still
	// encode, since encoding/json rejects raw NaN floats.
	snap := &controller.Snapshot{
		Records: []controller.Record{{
			Date: "2026-08-28 12:00:00",
			Readings: []controller.Reading{
				{Name: "temperature", Type: "probe", Value: 25.4},
				{Name: "salinity", Type: "probe", Value: controller.Value(math.NaN())},
			},
		}},
	}

	polledAt := time.Date(2026, 8, 28, 12, 0, 30, 0, time.UTC)
	data, err := EncodeSnapshotMessage(NewSnapshotMessage("reef", polledAt, snap))
	if err != nil {
		t.Fatalf("EncodeSnapshotMessage returned error: %v", err)
	}

	msg, err := DecodeSnapshotMessage(data)
	if err != nil {
		t.Fatalf("DecodeSnapshotMessage returned error: %v", err)
	}

	if msg.Host != "reef" || !msg.PolledAt.Equal(polledAt) {
		t.Errorf("header = %q %s, want reef %s", msg.Host, msg.PolledAt, polledAt)
	}
	readings := msg.Records[0].Readings
	if float64(readings[0].Value) != 25.4 {
		t.Errorf("temperature = %v, want 25.4", float64(readings[0].Value))
	}
	if !math.IsNaN(float64(readings[1].Value)) {
		t.Errorf("salinity = %v, want NaN preserved", float64(readings[1].Value))
	}
}

func TestDecodeSnapshotMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshotMessage([]byte("not json")); err == nil {
		t.Fatal("DecodeSnapshotMessage accepted garbage")
	}
}
