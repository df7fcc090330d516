package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/iliyamo/salon-management/internal/config"
	"github.com/iliyamo/salon-management/internal/kvstore"
	"github.com/iliyamo/salon-management/internal/metrics"
	"github.com/iliyamo/salon-management/internal/model"
)

// SalonSearcher runs the listing query against the relational store.
type SalonSearcher interface {
	Search(ctx context.Context, f model.SalonFilter) ([]model.Salon, int64, error)
}

// DirectoryCache is the read-through cache in front of the salon listing.
// Entries live under one namespace prefix and the whole namespace is flushed
// on every salon write, so a key never has to be matched back to the rows it
// covers.  A flush racing a miss can leave one stale entry for at most TTL.
type DirectoryCache struct {
	store   kvstore.Store
	source  SalonSearcher
	cfg     config.DirectoryCacheConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewDirectoryCache(store kvstore.Store, source SalonSearcher, cfg config.DirectoryCacheConfig,
	logger *slog.Logger, m *metrics.Metrics) *DirectoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryCache{store: store, source: source, cfg: cfg, logger: logger.With("component", "directory-cache"), metrics: m}
}

// Key derives the cache key of an already normalized filter: the prefix
// followed by the SHA-256 of the field=value pairs sorted by field name.
func (c *DirectoryCache) Key(f model.SalonFilter) string {
	fields := f.Fields()
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return c.cfg.Prefix + hex.EncodeToString(sum[:])
}

// Normalize applies the configured pagination bounds and canonical casing.
func (c *DirectoryCache) Normalize(f model.SalonFilter) model.SalonFilter {
	return f.Normalize(c.cfg.DefaultLimit, c.cfg.MaxLimit)
}

// Query answers a listing request.  With Refresh set the namespace is
// flushed first.  Cache faults never fail the request: a read error falls
// through to the relational query and a write error is only logged.
func (c *DirectoryCache) Query(ctx context.Context, filter model.SalonFilter) (*model.SalonPage, error) {
	f := c.Normalize(filter)
	if !c.cfg.Enabled {
		return c.load(ctx, f)
	}
	if f.Refresh {
		c.Invalidate(ctx)
		c.metrics.CacheResult(metrics.CacheBypassed)
	}

	key := c.Key(f)
	raw, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheResult(metrics.CacheError)
		c.logger.Warn("cache read failed, querying store", slog.String("key", key), slog.Any("error", err))
		return c.load(ctx, f)
	case found:
		var page model.SalonPage
		if err := json.Unmarshal([]byte(raw), &page); err == nil {
			c.metrics.CacheResult(metrics.CacheHit)
			return &page, nil
		}
		c.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	}
	c.metrics.CacheResult(metrics.CacheMiss)

	page, err := c.load(ctx, f)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(page); err == nil {
		if err := c.store.Set(ctx, key, string(body), c.cfg.TTL); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return page, nil
}

func (c *DirectoryCache) load(ctx context.Context, f model.SalonFilter) (*model.SalonPage, error) {
	rows, total, err := c.source.Search(ctx, f)
	if err != nil {
		return nil, storeErr("search salons", err)
	}
	page := model.NewSalonPage(rows, total, f)
	return &page, nil
}

// Invalidate drops every entry in the namespace.  Failures are logged and
// counted; stale entries then expire on their own within one TTL.
func (c *DirectoryCache) Invalidate(ctx context.Context) {
	if !c.cfg.Enabled {
		return
	}
	n, err := c.store.DeleteByPrefix(ctx, c.cfg.Prefix)
	if err != nil {
		c.metrics.FlushFailed()
		c.logger.Error("directory cache flush failed", slog.String("prefix", c.cfg.Prefix), slog.Any("error", err))
		return
	}
	c.logger.Debug("directory cache flushed", slog.Int("keys", n))
}
