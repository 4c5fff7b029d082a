package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

type fakeBlobWriter struct {
	objects map[string][]byte
}

func (f *fakeBlobWriter) Put(_ context.Context, path string, data []byte, _ string) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[path] = data
	return nil
}

func TestArchiverSealsFullSegmentsOnly(t *testing.T) {
	ctx := context.Background()
	store := &fakeEventStore{}
	for seq := uint64(1); seq <= 25; seq++ {
		store.appended = append(store.appended, domain.Event{Seq: seq, Kind: domain.EventPurchased})
	}
	blobs := &fakeBlobWriter{}

	a := NewArchiver(store, blobs, nil, 10, 0, slog.Default())
	sealed, err := a.ArchiveOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sealed)

	// Two full segments uploaded, five trailing events left in the store.
	assert.Contains(t, blobs.objects, "journal/segment-000000000001-000000000010.jsonl")
	assert.Contains(t, blobs.objects, "journal/segment-000000000011-000000000020.jsonl")
	require.Len(t, store.appended, 5)
	assert.Equal(t, uint64(21), store.appended[0].Seq)

	// Segment payload is one JSON object per line.
	seg := blobs.objects["journal/segment-000000000001-000000000010.jsonl"]
	lines := bytes.Split(bytes.TrimSpace(seg), []byte("\n"))
	assert.Len(t, lines, 10)
}

func TestArchiverNoFullSegmentIsANoOp(t *testing.T) {
	store := &fakeEventStore{appended: []domain.Event{{Seq: 1}}}
	blobs := &fakeBlobWriter{}

	a := NewArchiver(store, blobs, nil, 10, 0, slog.Default())
	sealed, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sealed)
	assert.Empty(t, blobs.objects)
	assert.Len(t, store.appended, 1)
}
