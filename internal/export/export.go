package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rawpick/internal/cullstate"
	"rawpick/internal/fileutil"
	"rawpick/internal/logging"
	"rawpick/internal/rawerr"
	"rawpick/internal/scanner"
	"rawpick/internal/xmpsync"
)

// Outcome classifies what happened to one file of one exported item.
type Outcome string

const (
	OutcomeCopied    Outcome = "copied"
	OutcomeUpToDate  Outcome = "up-to-date"
	OutcomeNoPairing Outcome = "no pairing, skipped"
	OutcomeFailed    Outcome = "failed"
)

// FileResult records the fate of a single file copy.
type FileResult struct {
	Source  string
	Dest    string
	Outcome Outcome
	Err     error
}

// Item is the manifest entry for one picked asset.
type Item struct {
	Asset   scanner.PhotoAsset
	Raw     FileResult
	Sidecar FileResult
	JPEG    FileResult
}

// Failed reports whether any file of the item failed.
func (it Item) Failed() bool {
	return it.Raw.Outcome == OutcomeFailed ||
		it.Sidecar.Outcome == OutcomeFailed ||
		it.JPEG.Outcome == OutcomeFailed
}

// Manifest is the report of one export run. It is transient: callers render
// or log it, nothing persists it past the run.
type Manifest struct {
	RunID    string
	RawDir   string
	JPEGDir  string
	Started  time.Time
	Finished time.Time
	Items    []Item
	Pruned   []string
}

// Failures counts items with at least one failed file.
func (m *Manifest) Failures() int {
	n := 0
	for _, item := range m.Items {
		if item.Failed() {
			n++
		}
	}
	return n
}

// Options tune one export run.
type Options struct {
	// RawDir and JPEGDir override the default output folders created under
	// the session root.
	RawDir  string
	JPEGDir string
	// RawFolderName and JPEGFolderName name the default folders.
	RawFolderName  string
	JPEGFolderName string
	// Prune removes destination files whose source is no longer picked.
	Prune bool
	// Concurrency bounds parallel item copies. Zero or negative means 1.
	Concurrency int
	// MinFreeBytes is headroom required beyond the picked payload.
	MinFreeBytes int64
	// OnItem, when set, receives each completed item. Called from worker
	// goroutines as items finish.
	OnItem func(Item)
}

// StatfsFunc reports free bytes for the filesystem holding path.
type StatfsFunc func(path string) (uint64, error)

// Engine runs exports against one session's cull decisions.
type Engine struct {
	store  *cullstate.Store
	sync   *xmpsync.Syncer
	logger *slog.Logger
	statfs StatfsFunc
}

// NewEngine builds an export engine. syncer may be nil when the caller
// guarantees sidecars are already flushed.
func NewEngine(store *cullstate.Store, syncer *xmpsync.Syncer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:  store,
		sync:   syncer,
		logger: logging.WithComponent(logger, "export"),
		statfs: freeBytes,
	}
}

// SetStatfs overrides the free-space probe. Tests use it to simulate full
// disks.
func (e *Engine) SetStatfs(fn StatfsFunc) {
	if fn != nil {
		e.statfs = fn
	}
}

// Export copies every picked asset. Items are processed in scan order; item
// work may run in parallel across distinct assets. Cancellation stops before
// the next item starts and leaves no partially copied files.
func (e *Engine) Export(ctx context.Context, opts Options) (*Manifest, error) {
	picked := e.store.FilterPicked()
	root := e.store.Catalog().Root

	rawDir := opts.RawDir
	if rawDir == "" {
		name := opts.RawFolderName
		if name == "" {
			name = "_selected_raw"
		}
		rawDir = filepath.Join(root, name)
	}
	jpegDir := opts.JPEGDir
	if jpegDir == "" {
		name := opts.JPEGFolderName
		if name == "" {
			name = "_selected_jpeg"
		}
		jpegDir = filepath.Join(root, name)
	}

	manifest := &Manifest{
		RunID:   uuid.NewString(),
		RawDir:  rawDir,
		JPEGDir: jpegDir,
		Started: time.Now(),
	}
	logger := e.logger.With(logging.String(logging.FieldRunID, manifest.RunID))
	logger.Info("export starting",
		logging.Int("picked", len(picked)),
		logging.String("raw_dir", rawDir),
		logging.String("jpeg_dir", jpegDir),
	)

	for _, dir := range []string{rawDir, jpegDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return manifest, rawerr.Wrap(rawerr.ErrIOFailure, "export", "create output folder", dir, err)
		}
	}
	if err := e.checkFreeSpace(rawDir, picked, opts.MinFreeBytes); err != nil {
		return manifest, err
	}
	// Collision guard: two sources must never land under one destination
	// name within a run.
	claimed := make(map[string]string, len(picked))
	for _, asset := range picked {
		base := filepath.Base(asset.Path)
		if prior, ok := claimed[base]; ok {
			return manifest, rawerr.Wrap(rawerr.ErrNameCollision, "export", "plan",
				fmt.Sprintf("%s and %s both export as %s", prior, asset.Path, base), nil)
		}
		claimed[base] = asset.Path
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]Item, len(picked))
	started := make([]bool, len(picked))
	var group errgroup.Group
	group.SetLimit(concurrency)

	// Items in flight run to completion even on cancel so nothing is left
	// half copied; the cancel takes effect before the next item starts.
	itemCtx := context.WithoutCancel(ctx)
	for i, asset := range picked {
		i, asset := i, asset
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			items[i] = e.exportItem(itemCtx, asset, rawDir, jpegDir)
			if opts.OnItem != nil {
				opts.OnItem(items[i])
			}
			return nil
		})
	}
	_ = group.Wait()
	cancelled := ctx.Err()
	for i := range items {
		if started[i] {
			manifest.Items = append(manifest.Items, items[i])
		}
	}

	if opts.Prune && cancelled == nil {
		manifest.Pruned = e.prune(logger, rawDir, jpegDir, picked)
	}

	manifest.Finished = time.Now()
	logger.Info("export finished",
		logging.Int("items", len(manifest.Items)),
		logging.Int("failures", manifest.Failures()),
		logging.Int("pruned", len(manifest.Pruned)),
	)
	return manifest, cancelled
}

func (e *Engine) exportItem(ctx context.Context, asset scanner.PhotoAsset, rawDir, jpegDir string) Item {
	item := Item{Asset: asset}
	item.Raw = e.copyOne(asset.Path, filepath.Join(rawDir, filepath.Base(asset.Path)))

	sidecar := asset.SidecarPath()
	if e.sync != nil {
		ensured, err := e.sync.EnsureSidecar(ctx, asset.Path)
		if err != nil {
			item.Sidecar = FileResult{Source: sidecar, Outcome: OutcomeFailed, Err: err}
			return item
		}
		sidecar = ensured
	}
	if fileutil.Exists(sidecar) {
		item.Sidecar = e.copyOne(sidecar, filepath.Join(rawDir, filepath.Base(sidecar)))
	} else {
		item.Sidecar = FileResult{Source: sidecar, Outcome: OutcomeUpToDate}
	}

	if asset.JPEGPath == "" {
		item.JPEG = FileResult{Outcome: OutcomeNoPairing}
	} else {
		item.JPEG = e.copyOne(asset.JPEGPath, filepath.Join(jpegDir, filepath.Base(asset.JPEGPath)))
	}
	return item
}

// copyOne lands src at dst atomically. Destinations already holding the same
// content are left alone; stale content from an earlier run is refreshed.
func (e *Engine) copyOne(src, dst string) FileResult {
	result := FileResult{Source: src, Dest: dst}
	if fileutil.Exists(dst) {
		same, err := fileutil.SameContents(src, dst)
		if err == nil && same {
			result.Outcome = OutcomeUpToDate
			return result
		}
	}
	if err := fileutil.CopyFileAtomic(src, dst); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = rawerr.Wrap(rawerr.ErrIOFailure, "export", "copy", filepath.Base(src), err)
		e.logger.Warn("item copy failed",
			logging.String("source", src),
			logging.Error(err),
		)
		return result
	}
	result.Outcome = OutcomeCopied
	return result
}

// prune removes destination files whose stem is no longer picked, mirroring
// the output folders to the current selection.
func (e *Engine) prune(logger *slog.Logger, rawDir, jpegDir string, picked []scanner.PhotoAsset) []string {
	keep := make(map[string]bool, len(picked))
	keepJPEG := make(map[string]bool, len(picked))
	for _, asset := range picked {
		keep[asset.Stem()] = true
		if asset.JPEGPath != "" {
			keepJPEG[asset.Stem()] = true
		}
	}

	var pruned []string
	pruned = append(pruned, pruneDir(logger, rawDir, keep)...)
	pruned = append(pruned, pruneDir(logger, jpegDir, keepJPEG)...)
	sort.Strings(pruned)
	return pruned
}

func pruneDir(logger *slog.Logger, dir string, keep map[string]bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("prune skipped; cannot list folder",
			logging.String("path", dir),
			logging.Error(err),
		)
		return nil
	}
	var pruned []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if keep[stem] {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.Warn("prune failed",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		pruned = append(pruned, path)
	}
	return pruned
}

func (e *Engine) checkFreeSpace(dir string, picked []scanner.PhotoAsset, minFree int64) error {
	var payload int64
	for _, asset := range picked {
		payload += asset.Size
	}
	free, err := e.statfs(dir)
	if err != nil {
		// A filesystem that cannot report free space still gets a best-effort
		// export.
		e.logger.Warn("free-space probe failed", logging.Error(err))
		return nil
	}
	needed := payload + minFree
	if int64(free) < needed {
		return rawerr.Wrap(rawerr.ErrIOFailure, "export", "preflight",
			fmt.Sprintf("need %d bytes free, have %d", needed, free), nil)
	}
	return nil
}
