/*
Package fastcore is a high-throughput, static-route HTTP/1.x serving
engine built directly on epoll (Linux) and kqueue (BSD/macOS): one
goroutine per core, each driving its own edge-triggered, one-shot
demultiplexer, its own timer heap, and (in the per-CPU pool variant) its
own connection slab, with no locking between workers on the hot path.

It answers exactly four static JSON routes — /bonuses, /settings, /games,
/health — over GET only. There is no dynamic routing, no request body
support, and no protocol upgrades; the entire design is optimized for the
narrow, latency-sensitive shape of a static-payload API edge.

Architecture

  - internal/poller: the edge-triggered, one-shot I/O multiplexer
    abstraction, with epoll and kqueue backends.
  - internal/timerheap: a slab-backed binary min-heap for request and
    keep-alive timeouts, with O(log n) removal via an intrusive index.
  - internal/pool: two connection-pool variants — a global mutex-guarded
    slab (Variant A) and a per-CPU lock-free slab set with a shared
    fallback (Variant B).
  - internal/connrec: the per-flow connection record and its five-state
    machine (FREE/READING/WRITING/KEEP_ALIVE/CLOSING).
  - internal/httpparse: a minimal incremental HTTP/1.x request-line and
    header parser.
  - internal/scan: byte-class validation and delimiter search for URLs,
    done with per-byte table lookups (no SIMD instructions).
  - internal/route: the immutable path-to-payload lookup table.
  - internal/handler: the synchronous request-handling policy.
  - internal/metrics: a fire-and-forget counter/histogram sink.
  - internal/worker: the per-core event loop tying all of the above
    together — accept, read, write, and timer-expiry paths.
  - app + config + cmd/fastcore: process wiring, signal handling, and the
    CLI entrypoint.

Quick start

	cfg := config.New()
	a := app.New(cfg)
	if err := a.Run(); err != nil {
	    log.Fatal(err)
	}

Concurrency model

Each worker is single-threaded internally and owns its poller, timer
heap, and (Variant B) local slab exclusively; the only state shared
across workers is the listening socket, the immutable route table, and —
in Variant A — the pool's mutex. See internal/worker for the event-loop
detail.
*/
package fastcore
