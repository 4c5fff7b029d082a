package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/curvelabs/bondengine/internal/domain"
)

// archiveLock names the distributed lock held while archiving.
const archiveLock = "journal-archive"

// Archiver seals full journal segments into JSONL objects in blob storage
// and trims the archived rows from the primary store. Only whole segments
// are sealed; the tail of the journal stays queryable in the database.
type Archiver struct {
	events      domain.EventStore
	blobs       domain.BlobWriter
	locks       domain.LockManager
	segmentSize int
	interval    time.Duration
	logger      *slog.Logger
}

// NewArchiver creates an Archiver. The lock manager is optional.
func NewArchiver(
	events domain.EventStore,
	blobs domain.BlobWriter,
	locks domain.LockManager,
	segmentSize int,
	interval time.Duration,
	logger *slog.Logger,
) *Archiver {
	if segmentSize <= 0 {
		segmentSize = 1000
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		events:      events,
		blobs:       blobs,
		locks:       locks,
		segmentSize: segmentSize,
		interval:    interval,
		logger:      logger,
	}
}

// Run archives sealed segments every interval until the context is
// cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("archiver started",
		slog.Int("segment_size", a.segmentSize),
		slog.Duration("interval", a.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sealed, err := a.ArchiveOnce(ctx)
			if err != nil {
				a.logger.Error("archive pass failed", slog.Any("error", err))
				continue
			}
			if sealed > 0 {
				a.logger.Info("archived journal segments", slog.Int("segments", sealed))
			}
		}
	}
}

// ArchiveOnce seals every full segment currently in the store and returns
// how many segments were written. A partial trailing segment is left in
// place for the next pass.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, archiveLock, a.interval)
		if errors.Is(err, domain.ErrLockHeld) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer unlock()
	}

	sealed := 0
	for {
		// The oldest remaining events always start the next segment; rows
		// below are deleted as each segment is sealed.
		events, err := a.events.ListRange(ctx, 0, a.segmentSize)
		if err != nil {
			return sealed, err
		}
		if len(events) < a.segmentSize {
			return sealed, nil
		}

		first, last := events[0].Seq, events[len(events)-1].Seq
		path := segmentPath(first, last)

		payload, err := marshalJSONL(events)
		if err != nil {
			return sealed, fmt.Errorf("service: marshal segment %s: %w", path, err)
		}
		if err := a.blobs.Put(ctx, path, payload, "application/x-ndjson"); err != nil {
			return sealed, err
		}

		if _, err := a.events.DeleteThrough(ctx, last); err != nil {
			return sealed, err
		}
		sealed++
	}
}

// segmentPath builds the object key for a sealed segment, zero-padded so
// lexicographic listing matches sequence order.
//
//	journal/segment-000000001001-000000002000.jsonl
func segmentPath(first, last uint64) string {
	return fmt.Sprintf("journal/segment-%012d-%012d.jsonl", first, last)
}

// marshalJSONL serialises events as newline-delimited JSON, one compact
// object per line.
func marshalJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, evt := range events {
		if err := enc.Encode(evt); err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
