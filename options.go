package platform

import "runtime"

// config holds the values every Option mutates before NewFacade builds its
// Registry, TallyTable and Binding factory.
type config struct {
	shardCount               int
	threadCacheEnabled       bool
	defaultEstimateThreshold uint64
	logger                   Logger
}

func defaultConfig() config {
	return config{
		shardCount:               runtime.GOMAXPROCS(0),
		threadCacheEnabled:       true,
		defaultEstimateThreshold: DefaultEstimateThreshold,
		logger:                   defaultLoggerInstance,
	}
}

// Option configures a Facade at construction. Following the functional
// options idiom, NewFacade(backend, opts...) applies each in order.
type Option func(*config)

// WithShardCount overrides the number of per-client tally shards. Values
// <= 0 are ignored (the default, GOMAXPROCS, applies instead).
func WithShardCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.shardCount = n
		}
	}
}

// WithThreadCacheEnabled sets the initial global thread-cache override
// (§6's setThreadCacheEnabled starting value).
func WithThreadCacheEnabled(enabled bool) Option {
	return func(c *config) {
		c.threadCacheEnabled = enabled
	}
}

// WithDefaultEstimateThreshold overrides the per-shard estimate-update
// threshold newly registered clients start with.
func WithDefaultEstimateThreshold(threshold uint64) Option {
	return func(c *config) {
		if threshold > 0 {
			c.defaultEstimateThreshold = threshold
		}
	}
}

// WithLogger overrides the Logger this Facade's registry logs failures
// through.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
