package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"rawpick/internal/config"
	"rawpick/internal/cullstate"
	"rawpick/internal/fileutil"
	"rawpick/internal/imagecache"
	"rawpick/internal/logging"
	"rawpick/internal/overlay"
	"rawpick/internal/rawdecode"
	"rawpick/internal/rawerr"
	"rawpick/internal/scanner"
	"rawpick/internal/sessionstore"
	"rawpick/internal/workers"
	"rawpick/internal/xmpsync"
)

const lockFileName = ".rawpick.lock"

// View is the read-only state returned after each intent.
type View struct {
	Index  int
	Total  int
	Asset  scanner.PhotoAsset
	State  cullstate.State
	Picked int
}

// Session is the explicit context object for one open folder. All intent
// processing happens on the caller's goroutine; background completions
// arrive on Events().
type Session struct {
	ID     string
	Root   string
	cfg    *config.Config
	logger *slog.Logger

	catalog *scanner.Catalog
	store   *cullstate.Store
	syncer  *xmpsync.Syncer
	cache   *imagecache.Cache
	pool    *workers.Pool
	journal *sessionstore.Store
	lock    *flock.Flock
	watcher *fsnotify.Watcher

	events chan Event

	cursor         int
	prefetchCancel context.CancelFunc

	closeOnce sync.Once
	watchDone chan struct{}
}

// Options carry optional collaborators into Open.
type Options struct {
	// Journal, when set, records recent folders and decision history.
	Journal *sessionstore.Store
	Logger  *slog.Logger
}

// Open locks root against concurrent sessions, scans it, merges existing
// sidecar decisions, and starts the background machinery.
func Open(ctx context.Context, cfg *config.Config, root string, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "session")

	lock := flock.New(filepath.Join(root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "session", "lock", root, err)
	}
	if !ok {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "session", "lock",
			fmt.Sprintf("%s is already open in another rawpick instance", root), nil)
	}

	sess, err := open(ctx, cfg, root, opts, logger, lock)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return sess, nil
}

func open(ctx context.Context, cfg *config.Config, root string, opts Options, logger *slog.Logger, lock *flock.Flock) (*Session, error) {
	catalog, err := scanner.New(scanner.WithOrientationReader(rawdecode.Orientation)).Scan(root)
	if err != nil {
		return nil, err
	}

	store := cullstate.NewStore(catalog)
	syncer := xmpsync.NewSyncer(store, logger)
	if _, err := syncer.LoadAll(ctx); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, id))

	pool := workers.NewPool(cfg.Workers.Count, logger)
	if err := pool.Start(ctx); err != nil {
		return nil, err
	}

	cache := imagecache.New(imagecache.Options{
		BudgetBytes: cfg.MemoryBudgetBytes(),
		Pool:        pool,
		Zebra: overlay.ZebraThresholds{
			Highlight: uint8(cfg.Overlay.ZebraHighlight),
			Shadow:    uint8(cfg.Overlay.ZebraShadow),
		},
		ToneMap: overlay.ToneMapParams{
			Gamma:         cfg.Overlay.HDRGamma,
			LocalContrast: cfg.Overlay.HDRLocalContrast,
		},
		HistogramBins: cfg.Overlay.HistogramBins,
		Logger:        logger,
	})

	sess := &Session{
		ID:        id,
		Root:      root,
		cfg:       cfg,
		logger:    logger,
		catalog:   catalog,
		store:     store,
		syncer:    syncer,
		cache:     cache,
		pool:      pool,
		journal:   opts.Journal,
		lock:      lock,
		events:    make(chan Event, 64),
		watchDone: make(chan struct{}),
	}

	if sess.journal != nil {
		if err := sess.journal.TouchRecentFolder(ctx, root); err != nil {
			logger.Warn("recent folder not recorded", logging.Error(err))
		}
		sess.recoverJournal(ctx)
	}

	if err := sess.startWatcher(); err != nil {
		logger.Warn("sidecar watch unavailable", logging.Error(err))
		close(sess.watchDone)
	}

	logger.Info("session opened",
		logging.Int("assets", catalog.Len()),
		logging.String("root", root),
	)
	return sess, nil
}

// recoverJournal re-applies journaled decisions newer than what the sidecars
// carry, for assets whose sidecar never got written. Recovered decisions are
// dirty so the next flush persists them properly.
func (s *Session) recoverJournal(ctx context.Context) {
	latest, err := s.journal.LatestDecisions(ctx, s.Root)
	if err != nil {
		s.logger.Warn("journal recovery skipped", logging.Error(err))
		return
	}
	recovered := 0
	for path, decision := range latest {
		asset, ok := s.catalog.Lookup(path)
		if !ok {
			continue
		}
		if fileutil.Exists(asset.SidecarPath()) {
			continue
		}
		if decision.Picked {
			if err := s.store.SetPicked(path, true); err != nil {
				continue
			}
		}
		if decision.Rating > 0 {
			_ = s.store.SetRating(path, decision.Rating)
		}
		if decision.Label != cullstate.LabelNone {
			_ = s.store.SetLabel(path, decision.Label)
		}
		if decision.Picked || decision.Rating > 0 || decision.Label != cullstate.LabelNone {
			recovered++
		}
	}
	if recovered > 0 {
		s.logger.Info("recovered unflushed decisions from journal",
			logging.Int("assets", recovered),
		)
	}
}

// Apply processes one intent synchronously and returns the updated view.
func (s *Session) Apply(ctx context.Context, intent Intent) (View, error) {
	if s.catalog.Len() == 0 {
		return View{}, rawerr.Wrap(rawerr.ErrInvalidValue, "session", "apply", "folder holds no photos", nil)
	}
	current := s.catalog.Assets[s.cursor]

	switch intent.Kind {
	case IntentNavigateNext:
		return s.navigate(ctx, s.cursor+1)
	case IntentNavigatePrev:
		return s.navigate(ctx, s.cursor-1)
	case IntentNavigateTo:
		return s.navigate(ctx, intent.Index)
	case IntentTogglePick:
		if _, err := s.store.TogglePick(current.Path); err != nil {
			return s.View(), err
		}
	case IntentSetPicked:
		if err := s.store.SetPicked(current.Path, intent.Picked); err != nil {
			return s.View(), err
		}
	case IntentSetRating:
		if err := s.store.SetRating(current.Path, intent.Rating); err != nil {
			return s.View(), err
		}
	case IntentToggleRating:
		if _, err := s.store.ToggleRating(current.Path, intent.Rating); err != nil {
			return s.View(), err
		}
	case IntentSetLabel:
		if err := s.store.SetLabel(current.Path, intent.Label); err != nil {
			return s.View(), err
		}
	case IntentToggleLabel:
		state, err := s.store.Get(current.Path)
		if err != nil {
			return s.View(), err
		}
		label := intent.Label
		if state.Label == label {
			label = cullstate.LabelNone
		}
		if err := s.store.SetLabel(current.Path, label); err != nil {
			return s.View(), err
		}
	case IntentSave:
		s.flushAllAsync()
	default:
		return s.View(), rawerr.Wrap(rawerr.ErrInvalidValue, "session", "apply", fmt.Sprintf("unknown intent %d", intent.Kind), nil)
	}

	s.journalCurrent(ctx, current.Path)
	return s.View(), nil
}

// navigate moves the cursor, flushing the photo being left behind when it is
// dirty and warming neighbors of the new position.
func (s *Session) navigate(ctx context.Context, to int) (View, error) {
	if to < 0 {
		to = 0
	}
	if max := s.catalog.Len() - 1; to > max {
		to = max
	}
	if to == s.cursor {
		return s.View(), nil
	}

	leaving := s.catalog.Assets[s.cursor]
	if state, err := s.store.Get(leaving.Path); err == nil && state.Dirty {
		s.flushAsync(leaving.Path)
	}

	s.cursor = to
	s.prefetchNeighbors(ctx)
	return s.View(), nil
}

// prefetchNeighbors warms assets around the cursor at low priority. Moving
// again cancels warmups that are no longer adjacent.
func (s *Session) prefetchNeighbors(ctx context.Context) {
	if s.prefetchCancel != nil {
		s.prefetchCancel()
	}
	prefetchCtx, cancel := context.WithCancel(ctx)
	s.prefetchCancel = cancel

	var paths []string
	for d := 1; d <= s.cfg.Cache.PrefetchAhead; d++ {
		if i := s.cursor + d; i < s.catalog.Len() {
			paths = append(paths, s.catalog.Assets[i].Path)
		}
	}
	for d := 1; d <= s.cfg.Cache.PrefetchBehind; d++ {
		if i := s.cursor - d; i >= 0 {
			paths = append(paths, s.catalog.Assets[i].Path)
		}
	}
	s.cache.Prefetch(prefetchCtx, imagecache.KindHalf, paths...)
}

func (s *Session) flushAsync(path string) {
	s.pool.Submit(workers.Task{
		Key:      "flush\x00" + path,
		Priority: workers.PriorityCurrent,
		Run: func(ctx context.Context) {
			if err := s.syncer.Flush(ctx, path); err != nil {
				s.emit(Event{Kind: EventFlushFailed, Path: path, Err: err})
				return
			}
			s.emit(Event{Kind: EventFlushed, Path: path})
		},
	})
}

func (s *Session) flushAllAsync() {
	for _, entry := range s.store.Dirty() {
		s.flushAsync(entry.Asset.Path)
	}
}

func (s *Session) journalCurrent(ctx context.Context, path string) {
	if s.journal == nil {
		return
	}
	state, err := s.store.Get(path)
	if err != nil {
		return
	}
	if err := s.journal.RecordDecision(ctx, s.ID, s.Root, path, state); err != nil {
		s.logger.Warn("decision not journaled",
			logging.String(logging.FieldAsset, path),
			logging.Error(err),
		)
	}
}

// View returns the current read-only view without applying an intent.
func (s *Session) View() View {
	if s.catalog.Len() == 0 {
		return View{}
	}
	asset := s.catalog.Assets[s.cursor]
	state, _ := s.store.Get(asset.Path)
	return View{
		Index:  s.cursor,
		Total:  s.catalog.Len(),
		Asset:  asset,
		State:  state,
		Picked: len(s.store.FilterPicked()),
	}
}

// Store exposes the cull state store for export and rendering layers.
func (s *Session) Store() *cullstate.Store { return s.store }

// Syncer exposes sidecar persistence for the export engine.
func (s *Session) Syncer() *xmpsync.Syncer { return s.syncer }

// Cache exposes the image cache for rendering layers.
func (s *Session) Cache() *imagecache.Cache { return s.cache }

// Catalog exposes the scanned catalog.
func (s *Session) Catalog() *scanner.Catalog { return s.catalog }

// Events delivers background completions. Consumed by the same loop that
// calls Apply so single-writer ordering holds.
func (s *Session) Events() <-chan Event { return s.events }

// SaveAll flushes every dirty decision synchronously.
func (s *Session) SaveAll(ctx context.Context) error {
	return s.syncer.FlushAll(ctx)
}

// Close flushes outstanding decisions, stops the background machinery, and
// releases the folder lock.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.prefetchCancel != nil {
			s.prefetchCancel()
		}
		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
			<-s.watchDone
		}
		if err := s.syncer.FlushAll(ctx); err != nil {
			errs = append(errs, err)
		}
		s.pool.Stop()
		close(s.events)
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
		s.logger.Info("session closed")
	})
	return errors.Join(errs...)
}

func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
		// A stalled consumer must not wedge the worker pool.
		s.logger.Warn("event dropped", logging.Int("kind", int(event.Kind)))
	}
}

// startWatcher follows external sidecar edits, merging changed decisions
// into the store when the in-memory copy is clean.
func (s *Session) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.Root); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		defer close(s.watchDone)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleWatchEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("sidecar watch error", logging.Error(err))
			}
		}
	}()
	return nil
}

func (s *Session) handleWatchEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".xmp") {
		return
	}
	rawPath, ok := s.assetForSidecar(event.Name)
	if !ok {
		return
	}
	record, err := xmpsync.ReadSidecar(event.Name)
	if err != nil {
		s.logger.Warn("changed sidecar unreadable",
			logging.String(logging.FieldAsset, rawPath),
			logging.Error(err),
		)
		return
	}
	if record.Picked == nil && record.Rating == nil && record.Label == nil {
		return
	}
	// The dirty check and the merge must be one store operation: an intent
	// applied between them would otherwise be clobbered by the external
	// values and then flushed as the user's own.
	applied, err := s.store.ApplySidecarIfClean(rawPath, record.Picked, record.Rating, record.Label)
	if err != nil || !applied {
		return
	}
	s.emit(Event{Kind: EventSidecarChanged, Path: rawPath})
}

func (s *Session) assetForSidecar(sidecar string) (string, bool) {
	for _, asset := range s.catalog.Assets {
		if asset.SidecarPath() == sidecar {
			return asset.Path, true
		}
	}
	return "", false
}
