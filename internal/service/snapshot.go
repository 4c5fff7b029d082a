package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
)

// snapshotLock names the distributed lock held while persisting, so only one
// instance writes a snapshot at a time.
const snapshotLock = "snapshot"

// Snapshotter periodically persists the engine's full state to the stores and
// rebuilds it from them at startup. The journal is the source of truth for
// history; snapshots exist so a restart does not need a full replay.
type Snapshotter struct {
	engine   *engine.Engine
	bonds    domain.BondStore
	accounts domain.AccountStore
	params   domain.ParamStore
	locks    domain.LockManager
	interval time.Duration
	logger   *slog.Logger
}

// NewSnapshotter creates a Snapshotter. The lock manager is optional; without
// it, persistence runs unguarded (fine for a single instance).
func NewSnapshotter(
	eng *engine.Engine,
	bonds domain.BondStore,
	accounts domain.AccountStore,
	params domain.ParamStore,
	locks domain.LockManager,
	interval time.Duration,
	logger *slog.Logger,
) *Snapshotter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Snapshotter{
		engine:   eng,
		bonds:    bonds,
		accounts: accounts,
		params:   params,
		locks:    locks,
		interval: interval,
		logger:   logger,
	}
}

// Rehydrate loads the last persisted snapshot into the engine. A store that
// has never been written to is not an error; the engine simply starts empty.
func (s *Snapshotter) Rehydrate(ctx context.Context) error {
	feeBps, stopped, err := s.params.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("no snapshot to rehydrate, starting empty")
		return nil
	}
	if err != nil {
		return err
	}

	bonds, err := s.bonds.List(ctx)
	if err != nil {
		return err
	}
	withdrawable, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}

	if err := s.engine.Restore(domain.Snapshot{
		Bonds:                 bonds,
		Withdrawable:          withdrawable,
		NetworkFeeBasisPoints: feeBps,
		Stopped:               stopped,
	}); err != nil {
		return err
	}
	s.logger.Info("rehydrated engine state",
		slog.Int("bonds", len(bonds)),
		slog.Int("accounts", len(withdrawable)))
	return nil
}

// Run persists a snapshot every interval until the context is cancelled,
// then writes one final snapshot on the way out.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("snapshotter started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.persist(shutdownCtx); err != nil {
				s.logger.Error("final snapshot failed", slog.Any("error", err))
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.persist(ctx); err != nil {
				s.logger.Error("snapshot failed", slog.Any("error", err))
			}
		}
	}
}

func (s *Snapshotter) persist(ctx context.Context) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, snapshotLock, s.interval)
		if errors.Is(err, domain.ErrLockHeld) {
			return nil
		}
		if err != nil {
			return err
		}
		defer unlock()
	}

	snap := s.engine.Snapshot()

	if err := s.bonds.UpsertBatch(ctx, snap.Bonds); err != nil {
		return err
	}
	if err := s.accounts.UpsertBatch(ctx, snap.Withdrawable); err != nil {
		return err
	}
	if err := s.params.Save(ctx, snap.NetworkFeeBasisPoints, snap.Stopped); err != nil {
		return err
	}

	s.logger.Debug("snapshot persisted",
		slog.Int("bonds", len(snap.Bonds)),
		slog.Int("accounts", len(snap.Withdrawable)))
	return nil
}
