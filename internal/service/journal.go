// Package service contains the long-running components built around the
// engine: the event journal, the snapshot loop, the quote service, and the
// journal archiver.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/curvelabs/bondengine/internal/domain"
)

const (
	// EventChannel is the Pub/Sub channel committed events are published to.
	EventChannel = "events"
	// EventStream is the durable stream committed events are appended to.
	EventStream = "events:journal"
)

// Journal is the engine's event sink. It assigns each committed event a
// unique ID and a monotonic sequence number, appends it to the durable
// store, and fans it out over the signal bus for live consumers.
//
// Sinks must not influence whether an operation commits, so every failure
// here is logged and swallowed. The sequence number still advances; a gap in
// the stored journal marks a write that was lost.
type Journal struct {
	store  domain.EventStore
	bus    domain.SignalBus
	logger *slog.Logger

	mu      sync.Mutex
	nextSeq uint64
}

// NewJournal creates a Journal, resuming the sequence counter from the last
// persisted event. The store and bus are both optional; a nil store makes the
// journal fan-out only.
func NewJournal(ctx context.Context, store domain.EventStore, bus domain.SignalBus, logger *slog.Logger) (*Journal, error) {
	j := &Journal{
		store:  store,
		bus:    bus,
		logger: logger,
	}
	if store != nil {
		last, err := store.LastSeq(ctx)
		if err != nil {
			return nil, err
		}
		j.nextSeq = last
	}
	return j, nil
}

// Emit implements domain.EventSink.
func (j *Journal) Emit(ctx context.Context, evt domain.Event) {
	j.mu.Lock()
	j.nextSeq++
	evt.Seq = j.nextSeq
	j.mu.Unlock()

	evt.ID = uuid.NewString()

	if j.store != nil {
		if err := j.store.Append(ctx, evt); err != nil {
			j.logger.Error("journal append failed",
				slog.Uint64("seq", evt.Seq),
				slog.String("kind", string(evt.Kind)),
				slog.Any("error", err))
		}
	}

	if j.bus == nil {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		j.logger.Error("journal marshal failed",
			slog.Uint64("seq", evt.Seq),
			slog.Any("error", err))
		return
	}
	if err := j.bus.Publish(ctx, EventChannel, payload); err != nil {
		j.logger.Warn("journal publish failed",
			slog.Uint64("seq", evt.Seq),
			slog.Any("error", err))
	}
	if err := j.bus.StreamAppend(ctx, EventStream, payload); err != nil {
		j.logger.Warn("journal stream append failed",
			slog.Uint64("seq", evt.Seq),
			slog.Any("error", err))
	}
}

// LastSeq returns the sequence number of the most recently emitted event.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq
}

// MultiSink fans one committed event out to several sinks in order.
type MultiSink []domain.EventSink

// Emit implements domain.EventSink.
func (m MultiSink) Emit(ctx context.Context, evt domain.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, evt)
		}
	}
}

// Compile-time interface checks.
var (
	_ domain.EventSink = (*Journal)(nil)
	_ domain.EventSink = (MultiSink)(nil)
)
