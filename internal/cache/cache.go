// Package cache implements the content-addressed memoization layer in
// front of the extraction core: a directory of files named by key hash,
// each a JSON-encoded result (no binary framing) plus a small sidecar of
// creation timestamp and size, with age/size eviction on Set and
// single-flight coalescing of concurrent writers for the same key
// (spec.md §4.7, §5, §9).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Stats is the response shape for Cache.Stats.
type Stats struct {
	TotalFiles     int     `json:"total_files"`
	TotalBytes     int64   `json:"total_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	OldestAgeDays  float64 `json:"oldest_age_days"`
	NewestAgeDays  float64 `json:"newest_age_days"`
}

// ClearResult is the response shape for Cache.Clear.
type ClearResult struct {
	RemovedFiles int   `json:"removed_files"`
	FreedBytes   int64 `json:"freed_bytes"`
}

// Cache is the directory-backed content-addressed cache. Each key is
// written at most once concurrently: subsequent concurrent requesters
// for the same key await the first (single-flight), matching spec.md
// §5's "each key writable by at most one concurrent extraction".
type Cache struct {
	dir         string
	maxAgeDays  int
	maxSizeMB   int

	mu      sync.Mutex // guards inflight
	inflight map[string]*sync.WaitGroup
}

// New returns a Cache rooted at dir (created if absent), evicting
// entries older than maxAgeDays or once the directory exceeds
// maxSizeMB, whichever trips first.
func New(dir string, maxAgeDays, maxSizeMB int) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerrors.Cache("failed to create cache directory: " + err.Error())
	}
	return &Cache{
		dir:        dir,
		maxAgeDays: maxAgeDays,
		maxSizeMB:  maxSizeMB,
		inflight:   make(map[string]*sync.WaitGroup),
	}, nil
}

// sidecar is the small metadata record stored alongside each cached
// result file.
type sidecar struct {
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Key computes the content-addressed cache key: a hash of either the
// input bytes or (path, mtime, size), XORed with a hash of the config.
func Key(data []byte, path string, mtime time.Time, size int64, cfg *extraction.Config) (string, error) {
	h := sha256.New()
	if data != nil {
		h.Write(data)
	} else {
		fmt.Fprintf(h, "%s|%d|%d", path, mtime.UnixNano(), size)
	}
	inputSum := h.Sum(nil)

	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", kerrors.Serialization("failed to marshal config for cache key: " + err.Error())
	}
	cfgSum := sha256.Sum256(cfgBytes)

	out := make([]byte, len(inputSum))
	for i := range out {
		out[i] = inputSum[i] ^ cfgSum[i%len(cfgSum)]
	}
	return hex.EncodeToString(out), nil
}

func (c *Cache) resultPath(key string) string  { return filepath.Join(c.dir, key+".bin") }
func (c *Cache) sidecarPath(key string) string { return filepath.Join(c.dir, key+".meta.json") }

// Get returns the cached result for key, or (nil, nil) on a miss.
func (c *Cache) Get(key string) (*result.ExtractionResult, error) {
	data, err := ioutil.ReadFile(c.resultPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kerrors.Cache("failed to read cache entry: " + err.Error())
	}

	var res result.ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, kerrors.Cache("failed to decode cache entry: " + err.Error())
	}
	return &res, nil
}

// Set stores result under key, then evicts by age/size, single-flighted
// per key so concurrent writers for the same key coalesce into one
// write (later writers wait for the in-flight write, then return nil
// without writing their own result).
func (c *Cache) Set(key string, res *result.ExtractionResult) error {
	c.mu.Lock()
	if wg, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		wg.Wait()
		return nil
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.inflight[key] = wg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		wg.Done()
	}()

	data, err := json.Marshal(res)
	if err != nil {
		return kerrors.Serialization("failed to encode result for cache: " + err.Error())
	}

	if err := ioutil.WriteFile(c.resultPath(key), data, 0o644); err != nil {
		return kerrors.Cache("failed to write cache entry: " + err.Error())
	}

	sc := sidecar{CreatedAt: time.Now(), Size: int64(len(data))}
	scBytes, _ := json.Marshal(sc)
	if err := ioutil.WriteFile(c.sidecarPath(key), scBytes, 0o644); err != nil {
		return kerrors.Cache("failed to write cache sidecar: " + err.Error())
	}

	return c.evict()
}

// entryInfo is a parsed directory entry used for eviction and stats.
type entryInfo struct {
	key       string
	createdAt time.Time
	size      int64
}

func (c *Cache) entries() ([]entryInfo, error) {
	files, err := ioutil.ReadDir(c.dir)
	if err != nil {
		return nil, kerrors.Cache("failed to list cache directory: " + err.Error())
	}

	var out []entryInfo
	for _, f := range files {
		name := f.Name()
		const suffix = ".meta.json"
		if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		key := name[:len(name)-len(suffix)]
		data, err := ioutil.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		var sc sidecar
		if err := json.Unmarshal(data, &sc); err != nil {
			continue
		}
		out = append(out, entryInfo{key: key, createdAt: sc.CreatedAt, size: sc.Size})
	}
	return out, nil
}

// evict removes oldest-first entries once the directory exceeds
// maxAgeDays or maxSizeMB, whichever limit trips first.
func (c *Cache) evict() error {
	entries, err := c.entries()
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].createdAt.Before(entries[j].createdAt) })

	var total int64
	for _, e := range entries {
		total += e.size
	}
	maxBytes := int64(c.maxSizeMB) * 1024 * 1024
	maxAge := time.Duration(c.maxAgeDays) * 24 * time.Hour
	now := time.Now()

	for _, e := range entries {
		overAge := c.maxAgeDays > 0 && now.Sub(e.createdAt) > maxAge
		overSize := c.maxSizeMB > 0 && total > maxBytes
		if !overAge && !overSize {
			break
		}
		if err := c.remove(e.key); err != nil {
			return err
		}
		total -= e.size
	}
	return nil
}

func (c *Cache) remove(key string) error {
	_ = os.Remove(c.resultPath(key))
	_ = os.Remove(c.sidecarPath(key))
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear() (*ClearResult, error) {
	entries, err := c.entries()
	if err != nil {
		return nil, err
	}
	res := &ClearResult{}
	for _, e := range entries {
		res.RemovedFiles++
		res.FreedBytes += e.size
		if err := c.remove(e.key); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Stats reports aggregate cache occupancy.
func (c *Cache) Stats() (*Stats, error) {
	entries, err := c.entries()
	if err != nil {
		return nil, err
	}

	s := &Stats{TotalFiles: len(entries)}
	if len(entries) == 0 {
		return s, nil
	}

	now := time.Now()
	oldest, newest := entries[0].createdAt, entries[0].createdAt
	for _, e := range entries {
		s.TotalBytes += e.size
		if e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
		if e.createdAt.After(newest) {
			newest = e.createdAt
		}
	}
	s.OldestAgeDays = now.Sub(oldest).Hours() / 24
	s.NewestAgeDays = now.Sub(newest).Hours() / 24

	maxBytes := int64(c.maxSizeMB) * 1024 * 1024
	if maxBytes > s.TotalBytes {
		s.AvailableBytes = maxBytes - s.TotalBytes
	}
	return s, nil
}
