package storedex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storedex/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver           string
	addrs            []string
	username         string
	password         string
	db               int
	readinessTimeout time.Duration

	pageSize        int
	slugAttempts    int
	indexTimeout    time.Duration
	rebuildInterval time.Duration

	defaultLimit       int
	maxLimit           int
	defaultMaxDistance float64

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithMemory keeps all data in process memory. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverMemory
		c.addrs = nil
	})
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithUsername sets the ACL user for Redis/Valkey. The password comes from
// WithRedis or WithValkey.
func WithUsername(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = name
	})
}

// WithDB selects the logical database on Redis/Valkey.
func WithDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = n
	})
}

// WithReadinessTimeout bounds the startup connectivity wait. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithPageSize sets the listing page size. Default: 6.
func WithPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = n
	})
}

// WithSlugAttempts bounds how many slug candidates a write tries before ErrConflict.
// Default: 5.
func WithSlugAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.slugAttempts = n
	})
}

// WithIndexTimeout bounds the index update that follows each persisted write.
// Default: 5s.
func WithIndexTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexTimeout = d
	})
}

// WithRebuildInterval rebuilds the indexes from the store every d until Close,
// repairing writes whose index update failed. Zero disables it (default).
func WithRebuildInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.rebuildInterval = d
	})
}

// WithSearchLimits sets the result-count default and cap for text and radius
// queries, plus the radius in meters used when a query passes zero.
// Defaults: 10, 50, 10000.
func WithSearchLimits(defaultLimit, maxLimit int, defaultMaxDistance float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
		c.defaultMaxDistance = defaultMaxDistance
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
