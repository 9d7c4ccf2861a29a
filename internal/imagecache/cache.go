package imagecache

import (
	"container/list"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"rawpick/internal/logging"
	"rawpick/internal/overlay"
	"rawpick/internal/rawdecode"
	"rawpick/internal/workers"
)

// Kind selects which decode of an asset to cache.
type Kind int

const (
	// KindFull is the full-resolution preview.
	KindFull Kind = iota
	// KindHalf is the half-size preview used while navigating quickly.
	KindHalf
	// KindThumb is the embedded thumbnail.
	KindThumb
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindHalf:
		return "half"
	case KindThumb:
		return "thumb"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// OverlayKind selects a derived overlay product.
type OverlayKind int

const (
	OverlayZebra OverlayKind = iota
	OverlayToneMap
	OverlayHistogram
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayZebra:
		return "zebra"
	case OverlayToneMap:
		return "tonemap"
	case OverlayHistogram:
		return "histogram"
	default:
		return fmt.Sprintf("overlay(%d)", int(k))
	}
}

// DecodeFunc fills a cache miss for one asset at one kind.
type DecodeFunc func(path string, kind Kind) (*rawdecode.DecodedImage, error)

func defaultDecode(path string, kind Kind) (*rawdecode.DecodedImage, error) {
	switch kind {
	case KindHalf:
		return rawdecode.DecodeHalf(path)
	case KindThumb:
		img, err := rawdecode.ExtractThumb(path)
		if err != nil {
			return nil, err
		}
		return rawdecode.FromImage(img), nil
	default:
		return rawdecode.Decode(path)
	}
}

// Options configure a Cache. The zero value is usable for tests.
type Options struct {
	// BudgetBytes bounds the total cost of cached entries. Zero or negative
	// disables eviction.
	BudgetBytes int64
	// Decode overrides the decoder; nil uses the rawdecode package.
	Decode DecodeFunc
	// Pool, when set, runs Prefetch work in the background.
	Pool *workers.Pool

	Zebra         overlay.ZebraThresholds
	ToneMap       overlay.ToneMapParams
	HistogramBins int

	Logger *slog.Logger
}

type entry struct {
	key   string
	asset string
	kind  Kind
	image bool
	cost  int64
	value any
	elem  *list.Element
}

// Cache is a byte-budgeted LRU over decoded previews and overlay products.
// Concurrent Gets for the same key coalesce into a single decode.
type Cache struct {
	opts   Options
	decode DecodeFunc
	logger *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recent
	used    int64
}

// New builds a cache from opts.
func New(opts Options) *Cache {
	if opts.Decode == nil {
		opts.Decode = defaultDecode
	}
	if opts.Zebra == (overlay.ZebraThresholds{}) {
		opts.Zebra = overlay.DefaultZebraThresholds()
	}
	if opts.ToneMap == (overlay.ToneMapParams{}) {
		opts.ToneMap = overlay.DefaultToneMapParams()
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		opts:    opts,
		decode:  opts.Decode,
		logger:  logging.WithComponent(logger, "imagecache"),
		entries: make(map[string]*entry),
		lru:     list.New(),
	}
}

func imageKey(path string, kind Kind) string {
	return path + "\x00img\x00" + kind.String()
}

func overlayKey(path string, kind Kind, ov OverlayKind) string {
	return path + "\x00ovl\x00" + kind.String() + "\x00" + ov.String()
}

func assetPrefix(path string) string {
	return path + "\x00"
}

func overlayPrefix(path string, kind Kind) string {
	return path + "\x00ovl\x00" + kind.String() + "\x00"
}

// Get returns the decoded preview for path at kind, decoding on miss.
func (c *Cache) Get(ctx context.Context, path string, kind Kind) (*rawdecode.DecodedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := imageKey(path, kind)
	if v, ok := c.lookup(key); ok {
		return v.(*rawdecode.DecodedImage), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		decoded, err := c.decode(path, kind)
		if err != nil {
			return nil, err
		}
		c.insert(&entry{key: key, asset: path, kind: kind, image: true, cost: decoded.SizeBytes(), value: decoded})
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rawdecode.DecodedImage), nil
}

// ZebraMask returns the clip mask for path at kind, computing and caching it
// on miss.
func (c *Cache) ZebraMask(ctx context.Context, path string, kind Kind) (*overlay.Mask, error) {
	v, err := c.getOverlay(ctx, path, kind, OverlayZebra)
	if err != nil {
		return nil, err
	}
	return v.(*overlay.Mask), nil
}

// ToneMap returns the faux-HDR buffer for path at kind.
func (c *Cache) ToneMap(ctx context.Context, path string, kind Kind) (*image.NRGBA, error) {
	v, err := c.getOverlay(ctx, path, kind, OverlayToneMap)
	if err != nil {
		return nil, err
	}
	return v.(*image.NRGBA), nil
}

// Histogram returns per-channel histogram data for path at kind.
func (c *Cache) Histogram(ctx context.Context, path string, kind Kind) (*overlay.HistogramData, error) {
	v, err := c.getOverlay(ctx, path, kind, OverlayHistogram)
	if err != nil {
		return nil, err
	}
	return v.(*overlay.HistogramData), nil
}

func (c *Cache) getOverlay(ctx context.Context, path string, kind Kind, ov OverlayKind) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := overlayKey(path, kind, ov)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		decoded, err := c.Get(ctx, path, kind)
		if err != nil {
			return nil, err
		}
		var value any
		var cost int64
		switch ov {
		case OverlayZebra:
			mask := overlay.ZebraMask(decoded.Pixels, c.opts.Zebra)
			value, cost = mask, int64(len(mask.Highlight)+len(mask.Shadow))
		case OverlayToneMap:
			mapped := overlay.ToneMap(decoded.Pixels, c.opts.ToneMap)
			value, cost = mapped, int64(len(mapped.Pix))
		case OverlayHistogram:
			hist := overlay.Histogram(decoded.Pixels, c.opts.HistogramBins)
			value, cost = hist, int64(hist.Bins)*8*4
		default:
			return nil, fmt.Errorf("unknown overlay kind %d", int(ov))
		}
		c.insert(&entry{key: key, asset: path, kind: kind, cost: cost, value: value})
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Prefetch queues low-priority warmups for the given assets. No-op without a
// pool. Tasks check ctx before decoding so a superseded prefetch costs
// nothing.
func (c *Cache) Prefetch(ctx context.Context, kind Kind, paths ...string) {
	if c.opts.Pool == nil {
		return
	}
	for _, path := range paths {
		path := path
		key := imageKey(path, kind)
		if _, ok := c.lookup(key); ok {
			continue
		}
		c.opts.Pool.Submit(workers.Task{
			Key:      "prefetch\x00" + key,
			Priority: workers.PriorityPrefetch,
			Run: func(runCtx context.Context) {
				if ctx.Err() != nil || runCtx.Err() != nil {
					return
				}
				if _, err := c.Get(ctx, path, kind); err != nil {
					c.logger.Debug("prefetch skipped",
						logging.String("path", path),
						logging.Error(err),
					)
				}
			},
		})
	}
}

// Invalidate drops every cached entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removePrefixLocked(assetPrefix(path))
}

// UsedBytes reports the summed cost of cached entries.
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether the preview for path at kind is resident.
func (c *Cache) Contains(path string, kind Kind) bool {
	_, ok := c.lookup(imageKey(path, kind))
	return ok
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(ent.elem)
	return ent.value, true
}

func (c *Cache) insert(ent *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[ent.key]; ok {
		c.removeLocked(old)
	}
	ent.elem = c.lru.PushFront(ent)
	c.entries[ent.key] = ent
	c.used += ent.cost
	c.evictLocked()
}

// evictLocked walks the LRU tail until the budget holds. Evicting a decoded
// image also drops the overlays derived from that image so they cannot
// outlive their source; other kinds of the same asset keep their own LRU
// positions.
func (c *Cache) evictLocked() {
	if c.opts.BudgetBytes <= 0 {
		return
	}
	for c.used > c.opts.BudgetBytes {
		back := c.lru.Back()
		if back == nil {
			return
		}
		victim := back.Value.(*entry)
		if victim.image {
			c.removePrefixLocked(overlayPrefix(victim.asset, victim.kind))
		}
		c.removeLocked(victim)
	}
}

func (c *Cache) removePrefixLocked(prefix string) {
	for key, ent := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(ent)
		}
	}
}

func (c *Cache) removeLocked(ent *entry) {
	if ent.elem != nil {
		c.lru.Remove(ent.elem)
		ent.elem = nil
	}
	delete(c.entries, ent.key)
	c.used -= ent.cost
}
