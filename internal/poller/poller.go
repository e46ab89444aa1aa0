package poller

import (
	"context"
	"log"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
	"github.com/IchiThe2nd/aidivalogger/internal/mapping"
	"github.com/IchiThe2nd/aidivalogger/internal/stream"
)

// Source is the slice of the controller client the poller needs.
type Source interface {
	FetchCurrent(ctx context.Context, minimal bool) (*controller.Snapshot, error)
}

// Store is the slice of the store client the poller needs.
type Store interface {
	WritePoints(ctx context.Context, points []influx.Point) error
}

// Publisher pushes encoded snapshots to the stream.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Alerter evaluates a snapshot against the configured alarm rules.
type Alerter interface {
	EvaluateSnapshot(ctx context.Context, snap *controller.Snapshot) error
}

// Poller performs one live poll per tick: fetch the minimal current
// snapshot, write it as points, and hand it to the optional stream and
// alert collaborators. The reconciler may be writing history concurrently;
// both sides rely on the store's point-level dedup, so no coordination is
// needed here.
type Poller struct {
	src   Source
	store Store
	host  string

	// Optional collaborators, wired by the caller when configured.
	Publisher Publisher
	Alerts    Alerter
}

// New creates a poller for one controller host.
func New(src Source, store Store, host string) *Poller {
	return &Poller{src: src, store: store, host: host}
}

// Tick runs one poll. Failures are logged and dropped: the next scheduled
// tick proceeds regardless, per-tick errors never propagate.
func (p *Poller) Tick(ctx context.Context) {
	snap, err := p.src.FetchCurrent(ctx, true)
	if err != nil {
		log.Printf("Poll failed: %v", err)
		return
	}
	if len(snap.Records) == 0 && len(snap.Outlets) == 0 {
		log.Printf("Poll: controller returned no data")
		return
	}

	polledAt := time.Now()

	points := mapping.SnapshotPoints(snap, p.host, polledAt)
	if err := p.store.WritePoints(ctx, points); err != nil {
		log.Printf("Poll write failed (%d points): %v", len(points), err)
	}

	if p.Publisher != nil {
		data, err := stream.EncodeSnapshotMessage(stream.NewSnapshotMessage(p.host, polledAt, snap))
		if err != nil {
			log.Printf("Poll snapshot encode failed: %v", err)
		} else if err := p.Publisher.Publish(ctx, p.host, data); err != nil {
			log.Printf("Poll snapshot publish failed: %v", err)
		}
	}

	if p.Alerts != nil {
		if err := p.Alerts.EvaluateSnapshot(ctx, snap); err != nil {
			log.Printf("Poll alert evaluation failed: %v", err)
		}
	}
}
