package stream

import (
	"encoding/json"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
)

// SnapshotMessage is the wire format for one published live snapshot.
type SnapshotMessage struct {
	Host     string                    `json:"host"`
	PolledAt time.Time                 `json:"polled_at"`
	Records  []controller.Record       `json:"records"`
	Outlets  []controller.OutletRecord `json:"outlets"`
}

// NewSnapshotMessage wraps a controller snapshot for publishing.
func NewSnapshotMessage(host string, polledAt time.Time, snap *controller.Snapshot) *SnapshotMessage {
	return &SnapshotMessage{
		Host:     host,
		PolledAt: polledAt,
		Records:  snap.Records,
		Outlets:  snap.Outlets,
	}
}

// EncodeSnapshotMessage encodes a SnapshotMessage to JSON
func EncodeSnapshotMessage(msg *SnapshotMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeSnapshotMessage decodes JSON to SnapshotMessage
func DecodeSnapshotMessage(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
