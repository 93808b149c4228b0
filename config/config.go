// Package config loads the engine's flags/environment the same way the
// teacher does (flag package, an optional PORT env override), extended
// with the worker-count, pool-variant, and timeout knobs SPEC_FULL.md §2.1
// and §6.2 add.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// PoolVariant selects which of the two connection-pool implementations
// spec.md §4.7 describes a running engine uses.
type PoolVariant string

const (
	// PoolVariantMutex is Variant A: one global mutex-guarded slab.
	PoolVariantMutex PoolVariant = "mutex"
	// PoolVariantPerCPU is Variant B: per-CPU lock-free slabs plus a
	// shared fallback.
	PoolVariantPerCPU PoolVariant = "percpu"
)

// Config holds all engine configuration.
type Config struct {
	Port int
	Env  string

	// Workers is the number of worker loops (spec.md §4.2: "one per
	// core, typically"). Defaults to runtime.NumCPU().
	Workers int
	Pool    PoolVariant

	// MutexPoolCapacity sizes Variant A's single slab (spec.md §4.7:
	// "16,384 records").
	MutexPoolCapacity int
	// PerCPUSlabSize and SharedSlabSize size Variant B's per-worker and
	// fallback slabs (spec.md §4.7: "512 records" per CPU).
	PerCPUSlabSize int
	SharedSlabSize int

	RequestTimeoutMS   int
	KeepAliveTimeoutMS int
}

// New loads configuration from flags, then applies PORT/WORKERS/POOL
// environment overrides in the teacher's "flags first, then override from
// env" order (config/config.go), extended since this engine has more than
// one env var worth honouring.
func New() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.StringVar(&cfg.Env, "env", "production", "Environment (development/production)")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "number of worker loops, one per pinned core")
	poolFlag := flag.String("pool", string(PoolVariantMutex), "connection pool variant: mutex|percpu")
	flag.IntVar(&cfg.MutexPoolCapacity, "mutex-pool-capacity", 16384, "Variant A slab capacity")
	flag.IntVar(&cfg.PerCPUSlabSize, "percpu-slab-size", 512, "Variant B per-CPU slab capacity")
	flag.IntVar(&cfg.SharedSlabSize, "shared-slab-size", 4096, "Variant B shared fallback slab capacity")
	flag.IntVar(&cfg.RequestTimeoutMS, "request-timeout-ms", 5000, "request read timeout in milliseconds")
	flag.IntVar(&cfg.KeepAliveTimeoutMS, "keepalive-timeout-ms", 10000, "keep-alive idle timeout in milliseconds")

	flag.Parse()
	cfg.Pool = PoolVariant(*poolFlag)

	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Port = n
		}
	}
	if workers := os.Getenv("WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if variant := os.Getenv("POOL"); variant != "" {
		cfg.Pool = PoolVariant(variant)
	}

	return cfg
}

// Addr formats the listen address as ":<port>".
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
