// Package app wires the listener, route table, connection pool, and
// worker fleet together and owns the process's signal-driven shutdown, the
// same responsibilities the teacher's App carried (app/app.go) but over
// internal/worker's per-core loops instead of a single shared
// core.Engine.
package app

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fastcore/config"
	"github.com/searchktools/fastcore/internal/connrec"
	"github.com/searchktools/fastcore/internal/gctune"
	"github.com/searchktools/fastcore/internal/metrics"
	"github.com/searchktools/fastcore/internal/pool"
	"github.com/searchktools/fastcore/internal/route"
	"github.com/searchktools/fastcore/internal/worker"
)

// App is the top-level process: it binds the listener, primes the route
// table, spawns one worker per configured core, and drives shutdown from
// OS signals.
type App struct {
	cfg     *config.Config
	sink    *metrics.Sink
	routes  *route.Table
	stop    *atomic.Bool
	workers []*worker.Worker
	wg      sync.WaitGroup
}

// New constructs an App from cfg. The listener is not bound until Run.
func New(cfg *config.Config) *App {
	return &App{
		cfg:    cfg,
		sink:   metrics.New(),
		routes: route.Default(),
		stop:   new(atomic.Bool),
	}
}

// Metrics returns the engine's fire-and-forget metrics sink, for a caller
// that wants to expose it (e.g. a debug endpoint) without this package
// depending on one.
func (a *App) Metrics() *metrics.Sink {
	return a.sink
}

// Run binds the listener, spawns the worker fleet, and blocks until a
// shutdown signal is received and every worker has drained.
func (a *App) Run() error {
	ignoreSIGPIPE()
	gctune.Apply(gctune.HighThroughput())

	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("app: expected a TCP listener")
	}
	lf, err := tcpLn.File()
	if err != nil {
		ln.Close()
		return fmt.Errorf("app: dup listener fd: %w", err)
	}
	// The *net.TCPListener and its dup'd *os.File both still own this fd
	// at the kernel level; the workers operate on the raw descriptor and
	// never go through the net package again.
	lfd := int(lf.Fd())
	if err := unix.SetNonblock(lfd, true); err != nil {
		ln.Close()
		return fmt.Errorf("app: set listener non-blocking: %w", err)
	}

	numWorkers := a.cfg.Workers
	if numWorkers < 1 {
		numWorkers = 1
	}

	connPool := a.buildPool(numWorkers)

	for i := 0; i < numWorkers; i++ {
		wc := worker.DefaultConfig(i, i)
		wc.RequestTimeout = msToDuration(a.cfg.RequestTimeoutMS)
		wc.KeepAliveTimeout = msToDuration(a.cfg.KeepAliveTimeoutMS)

		w, err := worker.New(wc, lfd, connPool(i), a.routes, a.sink, a.stop)
		if err != nil {
			// A worker that cannot build its poller is skipped; the
			// others still serve.
			log.Printf("app: worker %d not started: %v", i, err)
			continue
		}
		a.workers = append(a.workers, w)

		a.wg.Add(1)
		go func(w *worker.Worker) {
			defer a.wg.Done()
			w.Run()
		}(w)
	}

	if len(a.workers) == 0 {
		ln.Close()
		return fmt.Errorf("app: no worker could be started")
	}

	log.Printf("fastcore listening on %s [%s], %d worker(s), pool=%s", a.cfg.Addr(), a.cfg.Env, len(a.workers), a.cfg.Pool)

	a.awaitSignal()
	a.stop.Store(true)
	a.wg.Wait()

	return ln.Close()
}

// buildPool returns, for the configured variant, a function mapping a
// worker index to the ConnPool that worker should claim from. Variant A
// shares one pool across every worker; Variant B gives each worker its
// own per-CPU slab view into one shared *pool.PerCPUPool.
func (a *App) buildPool(numWorkers int) func(i int) worker.ConnPool {
	switch a.cfg.Pool {
	case config.PoolVariantPerCPU:
		shared := pool.NewPerCPUPool[connrec.Conn](numWorkers, a.cfg.PerCPUSlabSize, a.cfg.SharedSlabSize)
		return func(i int) worker.ConnPool {
			return worker.NewPerCPUConnPool(shared, i)
		}
	default:
		shared := worker.NewMutexConnPool(a.cfg.MutexPoolCapacity)
		return func(int) worker.ConnPool {
			return shared
		}
	}
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("signal received: %v, draining workers...", sig)
}

// ignoreSIGPIPE matches spec.md §6's "SIGPIPE is ignored": a write to a
// peer that already reset the connection would otherwise terminate the
// process before the write path gets a chance to observe the error and
// drive the connection to CLOSING.
func ignoreSIGPIPE() {
	signal.Ignore(syscall.SIGPIPE)
}
