package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSizeLimit is the per-cache byte budget when none is configured.
const DefaultSizeLimit = 10 << 30 // 10 GiB

// statsLogInterval controls how often a hit-count milestone triggers a stats
// log line.
const statsLogInterval = 100

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id          TEXT PRIMARY KEY,
	size        INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	last_access INTEGER NOT NULL,
	expires_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_entries_last_access ON entries (last_access);
`

// Stats is an observability snapshot of one cache.
type Stats struct {
	// Hits and Misses count lookups since process start.
	Hits   int64
	Misses int64

	// HitRatio is Hits/(Hits+Misses), or 0 when no lookups have occurred.
	HitRatio float64

	// Volume is the number of stored entries.
	Volume int64

	// SizeBytes is the total on-disk size of the cache's storage, computed
	// by walking the namespace directory. Expensive; diagnostics only.
	SizeBytes int64
}

// Codec serialises cache values. Each concrete cache supplies its own codec
// so the generic engine stays byte-oriented.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Option configures a Cache.
type Option func(*settings)

type settings struct {
	sizeLimit int64
	expiry    time.Duration
}

// WithSizeLimit sets the byte budget that triggers least-recently-used
// eviction. Defaults to [DefaultSizeLimit].
func WithSizeLimit(bytes int64) Option {
	return func(s *settings) {
		s.sizeLimit = bytes
	}
}

// WithExpiry sets a time-to-live for entries, enforced by [Cache.ClearExpired].
// Zero (the default) means entries never expire on their own and are only
// LRU-evicted under the size budget.
func WithExpiry(d time.Duration) Option {
	return func(s *settings) {
		s.expiry = d
	}
}

// Cache is a durable key→value store with hit/miss accounting and LRU
// eviction under a byte budget. Values live as individual blob files; a
// SQLite index tracks size, recency, and expiry per entry.
//
// Get and Set are safe for concurrent use from multiple requests. Writes to
// the same key are serialised; reads and writes on different keys proceed
// concurrently. Reads never observe a partially-written value because blobs
// are written to a temporary file and renamed into place.
type Cache[K Key, V any] struct {
	namespace string
	dir       string
	blobDir   string
	db        *sql.DB
	codec     Codec[V]
	sizeLimit int64
	expiry    time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	// evictMu serialises eviction sweeps so two concurrent Sets do not race
	// over the same victims.
	evictMu sync.Mutex

	keyLocks sync.Map // id string → *sync.Mutex
}

// New opens (or creates) a cache under baseDir/namespace. Each cache kind
// must use a distinct namespace so two caches never collide on disk even if
// their hash values coincide.
func New[K Key, V any](baseDir, namespace string, codec Codec[V], opts ...Option) (*Cache[K, V], error) {
	s := settings{sizeLimit: DefaultSizeLimit}
	for _, o := range opts {
		o(&s)
	}
	if s.sizeLimit <= 0 {
		return nil, fmt.Errorf("cache: size limit must be positive, got %d", s.sizeLimit)
	}

	dir := filepath.Join(baseDir, namespace)
	blobDir := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", blobDir, err)
	}

	dsn := filepath.Join(dir, "index.db") + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}

	return &Cache[K, V]{
		namespace: namespace,
		dir:       dir,
		blobDir:   blobDir,
		db:        db,
		codec:     codec,
		sizeLimit: s.sizeLimit,
		expiry:    s.expiry,
	}, nil
}

// Close releases the index database handle.
func (c *Cache[K, V]) Close() error {
	return c.db.Close()
}

// Get returns the stored value for key, or ok=false on a miss. Storage
// failures and corrupt entries are treated as misses — the cache is a
// performance optimisation, not a correctness dependency — with the broken
// entry dropped so the next Set can repopulate it.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V
	id := key.ID()

	var expiresAt sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT expires_at FROM entries WHERE id = ?`, id,
	).Scan(&expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.miss()
		return zero, false
	case err != nil:
		slog.Warn("cache index lookup failed, treating as miss",
			"namespace", c.namespace, "err", err)
		c.miss()
		return zero, false
	}
	if expiresAt.Valid && expiresAt.Int64 < time.Now().UnixMilli() {
		c.drop(ctx, id)
		c.miss()
		return zero, false
	}

	data, err := os.ReadFile(c.blobPath(id))
	if err != nil {
		// Index row without a readable blob: drop and recompute.
		slog.Warn("cache blob unreadable, dropping entry",
			"namespace", c.namespace, "id", shortID(id), "err", err)
		c.drop(ctx, id)
		c.miss()
		return zero, false
	}

	value, err := c.codec.Decode(data)
	if err != nil {
		slog.Warn("cache entry corrupt, dropping",
			"namespace", c.namespace, "id", shortID(id), "err", err)
		c.drop(ctx, id)
		c.miss()
		return zero, false
	}

	// Touch recency; best effort.
	if _, err := c.db.ExecContext(ctx,
		`UPDATE entries SET last_access = ? WHERE id = ?`,
		time.Now().UnixMilli(), id,
	); err != nil {
		slog.Warn("cache recency update failed", "namespace", c.namespace, "err", err)
	}

	c.hit()
	return value, true
}

// Set serialises and durably stores value under key, overwriting any prior
// value (last write wins), then evicts least-recently-used entries if the
// byte budget is exceeded.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V) error {
	id := key.ID()
	data, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("cache: encode value for %s: %w", shortID(id), err)
	}

	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	// Atomic blob write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(c.blobDir, "write-*")
	if err != nil {
		return fmt.Errorf("cache: create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: close blob: %w", err)
	}
	if err := os.Rename(tmpName, c.blobPath(id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: finalise blob: %w", err)
	}

	now := time.Now().UnixMilli()
	var expiresAt any
	if c.expiry > 0 {
		expiresAt = now + c.expiry.Milliseconds()
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO entries (id, size, created_at, last_access, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   size = excluded.size,
		   created_at = excluded.created_at,
		   last_access = excluded.last_access,
		   expires_at = excluded.expires_at`,
		id, len(data), now, now, expiresAt,
	); err != nil {
		return fmt.Errorf("cache: index entry: %w", err)
	}

	slog.Debug("cached entry", "namespace", c.namespace, "id", shortID(id), "bytes", len(data))

	return c.evict(ctx)
}

// Stats returns the current hit/miss counters, entry volume, and on-disk
// size. Size is computed by walking the namespace directory and summing
// file sizes, so it includes the index database; call it from diagnostics
// paths, not per request.
func (c *Cache[K, V]) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total)
	}

	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries`,
	).Scan(&st.Volume); err != nil {
		return st, fmt.Errorf("cache: count entries: %w", err)
	}

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.SizeBytes += info.Size()
		return nil
	})
	if err != nil {
		return st, fmt.Errorf("cache: walk storage: %w", err)
	}
	return st, nil
}

// ClearExpired drops entries whose expiry has passed. Caches configured
// without an expiry (the production defaults) have nothing to clear.
func (c *Cache[K, V]) ClearExpired(ctx context.Context) error {
	if c.expiry == 0 {
		return nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id FROM entries WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache: query expired: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("cache: scan expired: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache: iterate expired: %w", err)
	}
	for _, id := range ids {
		c.drop(ctx, id)
	}
	return nil
}

// evict removes least-recently-accessed entries until total stored bytes fit
// the budget again.
func (c *Cache[K, V]) evict(ctx context.Context) error {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	var total int64
	if err := c.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM entries`,
	).Scan(&total); err != nil {
		return fmt.Errorf("cache: sum sizes: %w", err)
	}
	if total <= c.sizeLimit {
		return nil
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, size FROM entries ORDER BY last_access ASC`,
	)
	if err != nil {
		return fmt.Errorf("cache: query eviction candidates: %w", err)
	}
	defer rows.Close()

	type victim struct {
		id   string
		size int64
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.size); err != nil {
			return fmt.Errorf("cache: scan eviction candidate: %w", err)
		}
		victims = append(victims, v)
		total -= v.size
		if total <= c.sizeLimit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache: iterate eviction candidates: %w", err)
	}

	for _, v := range victims {
		c.drop(ctx, v.id)
		slog.Info("evicted cache entry",
			"namespace", c.namespace, "id", shortID(v.id), "bytes", v.size)
	}
	return nil
}

// drop removes one entry's index row and blob; best effort.
func (c *Cache[K, V]) drop(ctx context.Context, id string) {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		slog.Warn("cache index delete failed", "namespace", c.namespace, "err", err)
	}
	if err := os.Remove(c.blobPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cache blob delete failed", "namespace", c.namespace, "err", err)
	}
}

func (c *Cache[K, V]) blobPath(id string) string {
	return filepath.Join(c.blobDir, id+".bin")
}

// lockFor returns the per-key mutex for id, creating it on first use. Locks
// are retained for the process lifetime; the map is bounded by the number of
// distinct keys written.
func (c *Cache[K, V]) lockFor(id string) *sync.Mutex {
	actual, _ := c.keyLocks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (c *Cache[K, V]) hit() {
	if n := c.hits.Add(1); n%statsLogInterval == 0 {
		misses := c.misses.Load()
		total := n + misses
		slog.Info("cache stats",
			"namespace", c.namespace,
			"hits", n,
			"misses", misses,
			"hit_ratio", fmt.Sprintf("%.2f", float64(n)/float64(total)),
		)
	}
}

func (c *Cache[K, V]) miss() {
	c.misses.Add(1)
}

// shortID truncates a cache identifier for log lines.
func shortID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "…"
}
