// Package metrics provides Prometheus metrics for the backend API
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStatsCollector collects database connection statistics. The
// backend holds two handles to the same database, a pgx pool for the
// auth repositories and a sql.DB for the sqlx ones; both are sampled.
type DBStatsCollector struct {
	pgxPool *pgxpool.Pool
	sqlDB   *sql.DB
	logger  *slog.Logger
	stopCh  chan struct{}
}

// NewDBStatsCollector creates a new database stats collector
func NewDBStatsCollector(pgxPool *pgxpool.Pool, sqlDB *sql.DB, logger *slog.Logger) *DBStatsCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBStatsCollector{
		pgxPool: pgxPool,
		sqlDB:   sqlDB,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting database statistics at regular intervals
func (c *DBStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	c.logger.Info("database stats collector started", slog.Duration("interval", interval))
}

// Stop stops the database stats collector
func (c *DBStatsCollector) Stop() {
	close(c.stopCh)
	c.logger.Info("database stats collector stopped")
}

// collect gathers connection statistics across both handles
func (c *DBStatsCollector) collect() {
	var open, inUse, idle, maxOpen int64

	if c.pgxPool != nil {
		stat := c.pgxPool.Stat()
		open += int64(stat.TotalConns())
		inUse += int64(stat.AcquiredConns())
		idle += int64(stat.IdleConns())
		maxOpen += int64(stat.MaxConns())
	}

	if c.sqlDB != nil {
		stats := c.sqlDB.Stats()
		open += int64(stats.OpenConnections)
		inUse += int64(stats.InUse)
		idle += int64(stats.Idle)
		maxOpen += int64(stats.MaxOpenConnections)
	}

	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
	DBConnectionsMaxOpen.Set(float64(maxOpen))
}

// RecordQueryDuration records the duration of a database query
func RecordQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// TimeQuery is a helper function to time database queries
// Usage: defer metrics.TimeQuery("select_order")()
func TimeQuery(operation string) func() {
	start := time.Now()
	return func() {
		RecordQueryDuration(operation, time.Since(start))
	}
}

// PingDatabase checks database connectivity and records the result
func PingDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	start := time.Now()
	err := pool.Ping(ctx)
	RecordQueryDuration("ping", time.Since(start))
	return err
}
