package xmpsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rawpick/internal/cullstate"
	"rawpick/internal/fileutil"
	"rawpick/internal/logging"
	"rawpick/internal/rawerr"
)

// Syncer moves cull state between the store and on-disk sidecars. Flushes for
// the same asset are serialized; distinct assets may flush in parallel.
type Syncer struct {
	store  *cullstate.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer builds a syncer over store.
func NewSyncer(store *cullstate.Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Syncer{
		store:  store,
		logger: logging.WithComponent(logger, "xmpsync"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// LoadAll reads every existing sidecar and merges its decisions into the
// store. Sidecar values win over defaults. Returns how many sidecars
// contributed; a single unreadable sidecar is logged and skipped, never
// fatal.
func (s *Syncer) LoadAll(ctx context.Context) (int, error) {
	loaded := 0
	for _, asset := range s.store.Catalog().Assets {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		sidecar := asset.SidecarPath()
		if !fileutil.Exists(sidecar) {
			continue
		}
		record, err := ReadSidecar(sidecar)
		if err != nil {
			s.logger.Warn("skipping unreadable sidecar",
				logging.String(logging.FieldAsset, asset.Path),
				logging.Error(err),
			)
			continue
		}
		if record.Picked == nil && record.Rating == nil && record.Label == nil {
			continue
		}
		if err := s.store.ApplySidecar(asset.Path, record.Picked, record.Rating, record.Label); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// Flush writes the current cull state for one asset if it is dirty. The
// dirty flag clears only after the write lands; a failed write keeps the
// state dirty for retry.
func (s *Syncer) Flush(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := s.store.Get(path)
	if err != nil {
		return err
	}
	if !state.Dirty {
		return nil
	}
	asset, ok := s.store.Catalog().Lookup(path)
	if !ok {
		return rawerr.Wrap(rawerr.ErrInvalidValue, "xmpsync", "flush", "asset not in catalog: "+path, nil)
	}

	lock := s.assetLock(path)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: an earlier flush may already have landed this
	// revision.
	state, err = s.store.Get(path)
	if err != nil {
		return err
	}
	if !state.Dirty {
		return nil
	}
	if err := WriteSidecar(asset.SidecarPath(), state); err != nil {
		s.logger.Error("sidecar flush failed; decisions stay pending",
			logging.String(logging.FieldAsset, path),
			logging.Error(err),
		)
		return err
	}
	s.store.MarkFlushed(path, state.Revision)
	s.logger.Debug("sidecar flushed",
		logging.String(logging.FieldAsset, path),
		logging.Int("rating", state.Rating),
		logging.Bool("picked", state.Picked),
	)
	return nil
}

// FlushAll writes every dirty entry, continuing past per-asset failures and
// returning them joined.
func (s *Syncer) FlushAll(ctx context.Context) error {
	var errs []error
	for _, entry := range s.store.Dirty() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Flush(ctx, entry.Asset.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnsureSidecar writes the sidecar for path regardless of the dirty flag,
// used by export to guarantee the copied RAW travels with its decisions.
func (s *Syncer) EnsureSidecar(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	state, err := s.store.Get(path)
	if err != nil {
		return "", err
	}
	asset, ok := s.store.Catalog().Lookup(path)
	if !ok {
		return "", rawerr.Wrap(rawerr.ErrInvalidValue, "xmpsync", "ensure sidecar", "asset not in catalog: "+path, nil)
	}
	sidecar := asset.SidecarPath()

	lock := s.assetLock(path)
	lock.Lock()
	defer lock.Unlock()

	if !state.Dirty && fileutil.Exists(sidecar) {
		return sidecar, nil
	}
	if err := WriteSidecar(sidecar, state); err != nil {
		return "", err
	}
	s.store.MarkFlushed(path, state.Revision)
	return sidecar, nil
}

func (s *Syncer) assetLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}
