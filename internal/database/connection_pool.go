package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sync"
	"time"

	"ingestion-gateway/internal/utils"
)

// ConnectionPool caches one *sql.DB per distinct credential, so requests that
// forward the same credential share a driver-level pool. Callers never close
// the returned handle; CloseAll releases everything on shutdown.
type ConnectionPool struct {
	connector *Connector
	open      func(ctx context.Context, credential string) (*sql.DB, error)
	pools     map[string]*sql.DB
	mutex     sync.Mutex
}

// NewConnectionPool creates a new ConnectionPool instance
func NewConnectionPool(connector *Connector) *ConnectionPool {
	return &ConnectionPool{
		connector: connector,
		open:      connector.Open,
		pools:     make(map[string]*sql.DB),
	}
}

func (cp *ConnectionPool) Dialect() Dialect {
	return cp.connector.Dialect()
}

// poolKey fingerprints the credential so raw secrets are not kept as map keys.
// File-backed stores ignore credentials and share one handle.
func (cp *ConnectionPool) poolKey(credential string) string {
	if credential == "" || cp.connector.Dialect().Name == SQLite.Name {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}

// Acquire returns a live connection for credential, reconnecting when the
// cached one no longer answers a ping. The mutex guards only the map; pings
// and dials run without it.
func (cp *ConnectionPool) Acquire(ctx context.Context, credential string) (*sql.DB, error) {
	key := cp.poolKey(credential)

	cp.mutex.Lock()
	cached := cp.pools[key]
	cp.mutex.Unlock()

	if cached != nil {
		err := cached.PingContext(ctx)
		if err == nil {
			return cached, nil
		}
		if ctx.Err() != nil {
			return nil, utils.NewConnectivityError(ctx.Err(), "ping cached connection")
		}
		cp.evict(key, cached)
	}

	db, err := cp.open(ctx, credential)
	if err != nil {
		return nil, err
	}

	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	if current, exists := cp.pools[key]; exists {
		// Lost the race to a concurrent open for the same key
		db.Close()
		return current, nil
	}
	cp.pools[key] = db
	return db, nil
}

// evict drops db from the cache unless another caller already replaced it.
func (cp *ConnectionPool) evict(key string, db *sql.DB) {
	cp.mutex.Lock()
	if cp.pools[key] == db {
		delete(cp.pools, key)
	}
	cp.mutex.Unlock()
	db.Close()
}

// CloseAll closes all connections in the pool
func (cp *ConnectionPool) CloseAll() error {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	var lastErr error
	for key, db := range cp.pools {
		if err := db.Close(); err != nil {
			lastErr = err
		}
		delete(cp.pools, key)
	}
	return lastErr
}

// ConnectionStats contains connection pool statistics
type ConnectionStats struct {
	OpenConnections int           `json:"openConnections"`
	InUse           int           `json:"inUse"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"waitCount"`
	WaitDuration    time.Duration `json:"waitDuration"`
}

// Stats aggregates sql.DBStats across all cached handles.
func (cp *ConnectionPool) Stats() ConnectionStats {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	var stats ConnectionStats
	for _, db := range cp.pools {
		s := db.Stats()
		stats.OpenConnections += s.OpenConnections
		stats.InUse += s.InUse
		stats.Idle += s.Idle
		stats.WaitCount += s.WaitCount
		stats.WaitDuration += s.WaitDuration
	}
	return stats
}
