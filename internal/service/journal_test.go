package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

type fakeEventStore struct {
	lastSeq  uint64
	appended []domain.Event
}

func (f *fakeEventStore) Append(_ context.Context, evt domain.Event) error {
	f.appended = append(f.appended, evt)
	return nil
}

func (f *fakeEventStore) ListRange(_ context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, evt := range f.appended {
		if evt.Seq > afterSeq && len(out) < limit {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (f *fakeEventStore) LastSeq(context.Context) (uint64, error) {
	return f.lastSeq, nil
}

func (f *fakeEventStore) DeleteThrough(_ context.Context, seq uint64) (int64, error) {
	var kept []domain.Event
	var deleted int64
	for _, evt := range f.appended {
		if evt.Seq <= seq {
			deleted++
			continue
		}
		kept = append(kept, evt)
	}
	f.appended = kept
	return deleted, nil
}

type fakeBus struct {
	published [][]byte
	streamed  [][]byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	f.streamed = append(f.streamed, payload)
	return nil
}

func (f *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestJournalAssignsSequenceAndFansOut(t *testing.T) {
	ctx := context.Background()
	store := &fakeEventStore{lastSeq: 41}
	bus := &fakeBus{}

	j, err := NewJournal(ctx, store, bus, slog.Default())
	require.NoError(t, err)

	j.Emit(ctx, domain.Event{Kind: domain.EventPurchased, Actor: "alice"})
	j.Emit(ctx, domain.Event{Kind: domain.EventSold, Actor: "bob"})

	require.Len(t, store.appended, 2)
	assert.Equal(t, uint64(42), store.appended[0].Seq)
	assert.Equal(t, uint64(43), store.appended[1].Seq)
	assert.NotEmpty(t, store.appended[0].ID)
	assert.NotEqual(t, store.appended[0].ID, store.appended[1].ID)
	assert.Equal(t, uint64(43), j.LastSeq())

	require.Len(t, bus.published, 2)
	require.Len(t, bus.streamed, 2)

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(bus.published[0], &decoded))
	assert.Equal(t, domain.EventPurchased, decoded.Kind)
	assert.Equal(t, domain.Account("alice"), decoded.Actor)
}

func TestJournalWithoutStoreStartsAtOne(t *testing.T) {
	ctx := context.Background()
	bus := &fakeBus{}
	j, err := NewJournal(ctx, nil, bus, slog.Default())
	require.NoError(t, err)

	j.Emit(ctx, domain.Event{Kind: domain.EventBondCreated})
	assert.Equal(t, uint64(1), j.LastSeq())
	assert.Len(t, bus.published, 1)
}

func TestMultiSinkDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	a := sinkFunc(func(domain.Event) { order = append(order, "a") })
	b := sinkFunc(func(domain.Event) { order = append(order, "b") })

	MultiSink{a, nil, b}.Emit(ctx, domain.Event{})
	assert.Equal(t, []string{"a", "b"}, order)
}

type sinkFunc func(domain.Event)

func (f sinkFunc) Emit(_ context.Context, evt domain.Event) { f(evt) }
