package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/google/renameio/v2"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Clip cache defaults.
const (
	DefaultClipLimit  = 64
	DefaultClipMaxAge = 30 * 24 * time.Hour
)

const (
	clipExt     = ".wav"
	fixedPrefix = "fixed-"
)

// ClipConfig bounds a ClipCache. An empty Dir keeps clips in memory only;
// a zero MaxAge never sweeps the disk.
type ClipConfig struct {
	Dir     string
	Persist bool
	Limit   int
	MaxAge  time.Duration
}

// ClipCache holds synthesized clips for one voice.
//
// Two kinds of line are spoken. Fixed lines (pause, resume, warnings, voice
// toggles) are pinned once warmed and never evicted. Recipe messages come
// from a catalog that can be reloaded, so they sit in an LRU capped at
// Limit and their files are swept once untouched for MaxAge.
//
// On disk each voice has its own directory under Dir; pinned clips are
// named "fixed-<key>.wav" and recipe clips "<key>.wav".
type ClipCache struct {
	mu     sync.Mutex
	pinned map[string][]byte
	recent *lru.Cache
	hits   int64
	misses int64

	dir     string
	persist bool
	maxAge  time.Duration
	log     *logger.Logger
}

// NewClipCache creates the cache for voice.
func NewClipCache(voice string, cfg ClipConfig, log *logger.Logger) *ClipCache {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultClipLimit
	}
	c := &ClipCache{
		pinned:  make(map[string][]byte),
		recent:  lru.New(limit),
		persist: cfg.Persist,
		maxAge:  cfg.MaxAge,
		log:     log,
	}
	c.recent.OnEvicted = func(key lru.Key, _ any) {
		c.log.Debug("clips: evicted %s from memory", key)
	}
	if cfg.Dir != "" {
		c.dir = filepath.Join(cfg.Dir, voiceDir(voice))
		if c.persist {
			if err := os.MkdirAll(c.dir, 0o755); err != nil {
				log.Error("clips: creating %s: %v", c.dir, err)
			}
		}
	}
	return c
}

// voiceDir turns a voice name into a safe directory name.
func voiceDir(voice string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, voice)
	if name == "" {
		return "default"
	}
	return name
}

// clipKey identifies a line regardless of spacing.
func clipKey(text string) string {
	h := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(h[:16])
}

// Get returns the clip for text from memory, then disk.
func (c *ClipCache) Get(text string) ([]byte, bool) {
	key := clipKey(text)

	c.mu.Lock()
	if clip, ok := c.pinned[key]; ok {
		c.hits++
		c.mu.Unlock()
		return clip, true
	}
	if v, ok := c.recent.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return v.([]byte), true
	}
	c.mu.Unlock()

	if c.dir != "" {
		if clip, ok := c.readFile(fixedPrefix + key); ok {
			c.mu.Lock()
			c.pinned[key] = clip
			c.hits++
			c.mu.Unlock()
			return clip, true
		}
		if clip, ok := c.readFile(key); ok {
			c.touch(key)
			c.mu.Lock()
			c.recent.Add(key, clip)
			c.hits++
			c.mu.Unlock()
			return clip, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.log.Debug("clips: miss: %s", truncate(text, 40))
	return nil, false
}

// Pin stores the clip for a fixed line.
func (c *ClipCache) Pin(text string, clip []byte) {
	key := clipKey(text)
	c.mu.Lock()
	c.pinned[key] = clip
	c.recent.Remove(key)
	c.mu.Unlock()
	c.writeFile(fixedPrefix+key, clip)
}

// Put stores the clip for a recipe line. A line already pinned stays
// pinned.
func (c *ClipCache) Put(text string, clip []byte) {
	key := clipKey(text)
	c.mu.Lock()
	if _, ok := c.pinned[key]; ok {
		c.pinned[key] = clip
		c.mu.Unlock()
		c.writeFile(fixedPrefix+key, clip)
		return
	}
	c.recent.Add(key, clip)
	c.mu.Unlock()
	c.writeFile(key, clip)
}

// Has reports whether a clip for text is in memory or on disk.
func (c *ClipCache) Has(text string) bool {
	key := clipKey(text)
	c.mu.Lock()
	_, pinned := c.pinned[key]
	_, recent := c.recent.Get(key)
	c.mu.Unlock()
	if pinned || recent {
		return true
	}
	return c.exists(fixedPrefix+key) || c.exists(key)
}

// IsPinned reports whether text has a pinned clip in memory or on disk.
func (c *ClipCache) IsPinned(text string) bool {
	key := clipKey(text)
	c.mu.Lock()
	_, ok := c.pinned[key]
	c.mu.Unlock()
	return ok || c.exists(fixedPrefix+key)
}

// Len returns the number of clips held in memory.
func (c *ClipCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pinned) + c.recent.Len()
}

// Stats returns hit and miss counts.
func (c *ClipCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Sweep deletes recipe clips on disk not used within MaxAge and returns
// how many went. Pinned clips are kept.
func (c *ClipCache) Sweep(now time.Time) (int, error) {
	if c.dir == "" || !c.persist || c.maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, clipExt) || strings.HasPrefix(name, fixedPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= c.maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// ── disk ─────────────────────────────────────────────────────────

func (c *ClipCache) path(name string) string {
	return filepath.Join(c.dir, name+clipExt)
}

func (c *ClipCache) readFile(name string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(name))
	return data, err == nil
}

func (c *ClipCache) exists(name string) bool {
	if c.dir == "" {
		return false
	}
	_, err := os.Stat(c.path(name))
	return err == nil
}

// writeFile replaces the clip atomically; readers never see a partial WAV.
func (c *ClipCache) writeFile(name string, clip []byte) {
	if c.dir == "" || !c.persist {
		return
	}
	if err := renameio.WriteFile(c.path(name), clip, 0o644); err != nil {
		c.log.Error("clips: writing %s: %v", name, err)
	}
}

// touch marks a recipe clip as used so Sweep keeps it.
func (c *ClipCache) touch(key string) {
	if !c.persist {
		return
	}
	now := time.Now()
	_ = os.Chtimes(c.path(key), now, now)
}
