// Package worker implements one core's share of the connection population:
// the event loop, accept/read/write paths, and timer-driven expiry spec.md
// §4.2-§4.5 describe. It generalizes the teacher's single shared
// Engine.Run loop (core/engine.go) into N independent instances, each
// owning its own poller, timer heap, and (in the per-CPU pool variant) its
// own connection slab, with no locking between workers save the shared
// pool mutex Variant A still uses.
package worker

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fastcore/internal/connrec"
	"github.com/searchktools/fastcore/internal/handler"
	"github.com/searchktools/fastcore/internal/httpparse"
	"github.com/searchktools/fastcore/internal/metrics"
	"github.com/searchktools/fastcore/internal/poller"
	"github.com/searchktools/fastcore/internal/route"
	"github.com/searchktools/fastcore/internal/timerheap"
)

// acceptDroppedPath is the synthetic metrics key for connections dropped
// at accept time because the pool was exhausted (spec.md §4.3).
const acceptDroppedPath = "_accept_dropped"

// timerSlabCapacity matches the 16,384-node sizing spec.md §3/§4.8
// recommends for the per-worker timer heap's free-list.
const timerSlabCapacity = 16384

// Worker drives one poller/timer-heap/pool triple. Every field below is
// touched by exactly one goroutine (this worker's Run loop) once
// construction finishes; no internal locking is needed, matching spec.md
// §5's single-threaded-per-worker model.
type Worker struct {
	cfg Config

	poll       poller.Poller
	timers     *timerheap.Heap
	pool       ConnPool
	routes     *route.Table
	sink       *metrics.Sink
	listenerFD int

	conns    map[int]*connrec.Conn
	releases map[int]func()

	stop *atomic.Bool
}

// New constructs a Worker bound to listenerFD, with its own poller and
// timer heap, drawing connection records from pool.
func New(cfg Config, listenerFD int, connPool ConnPool, routes *route.Table, sink *metrics.Sink, stop *atomic.Bool) (*Worker, error) {
	p, err := poller.NewPoller()
	if err != nil {
		return nil, err
	}
	if err := p.AddListener(listenerFD); err != nil {
		p.Close()
		return nil, err
	}

	return &Worker{
		cfg:        cfg,
		poll:       p,
		timers:     timerheap.New(timerSlabCapacity),
		pool:       connPool,
		routes:     routes,
		sink:       sink,
		listenerFD: listenerFD,
		conns:      make(map[int]*connrec.Conn),
		releases:   make(map[int]func()),
		stop:       stop,
	}, nil
}

// Run executes the 5-step iteration from spec.md §4.2 until the stop flag
// is observed, then drains in-flight work and tears down. It locks the
// calling goroutine to its OS thread for the lifetime of the loop so
// applyAffinity's CPU pin actually sticks.
func (w *Worker) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.poll.Close()

	w.applyAffinity()

	for {
		if w.stop.Load() {
			w.shutdown()
			return
		}

		now := time.Now()
		ms, infinite := w.timers.NextTimeout(now)
		waitMs := ms
		if infinite {
			waitMs = -1
		}

		events, err := w.poll.Wait(waitMs)
		if err != nil {
			log.Printf("worker %d: poll wait error: %v", w.cfg.ID, err)
			continue
		}

		w.timers.ProcessExpired(time.Now())

		for _, ev := range events {
			if ev.FD == w.listenerFD {
				w.accept()
				continue
			}
			w.dispatch(ev)
		}
	}
}

// shutdown implements the cancellation contract from spec.md §5: complete
// the current batch (already done by the time Run calls this), then close
// every open connection without writing a response, and tear down the
// poller and timer heap. Responses are idempotent static payloads, so a
// client retry on the reset connection is harmless.
func (w *Worker) shutdown() {
	for fd, conn := range w.conns {
		w.cancelTimer(conn)
		w.poll.Remove(fd)
		unix.Close(fd)
		if release := w.releases[fd]; release != nil {
			release()
		}
	}
	w.conns = nil
	w.releases = nil
}

func (w *Worker) accept() {
	for i := 0; i < w.cfg.AcceptBatchCap; i++ {
		nfd, err := platformAccept(w.listenerFD)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			log.Printf("worker %d: accept error: %v", w.cfg.ID, err)
			return
		}

		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		unix.SetsockoptInt(nfd, unix.SOL_SOCKET, unix.SO_SNDBUF, w.cfg.SendRecvBufHint)
		unix.SetsockoptInt(nfd, unix.SOL_SOCKET, unix.SO_RCVBUF, w.cfg.SendRecvBufHint)

		conn, release, ok := w.pool.Claim()
		if !ok {
			unix.Close(nfd)
			if w.sink != nil {
				w.sink.RecordRequest(acceptDroppedPath, 503)
			}
			continue
		}

		conn.SetFD(nfd)
		conn.InitParser()
		conn.OnExpire = w.closeConn

		if err := w.poll.ArmRead(nfd); err != nil {
			release()
			unix.Close(nfd)
			continue
		}

		node, err := w.timers.Add(conn, w.cfg.RequestTimeout)
		if err != nil {
			w.poll.Remove(nfd)
			release()
			unix.Close(nfd)
			continue
		}
		conn.TimerRef = node

		w.conns[nfd] = conn
		w.releases[nfd] = release
	}
}

func (w *Worker) dispatch(ev poller.Event) {
	conn, ok := w.conns[ev.FD]
	if !ok {
		return
	}
	if ev.Err {
		w.closeConn(conn)
		return
	}

	switch conn.State {
	case connrec.KEEPALIVE:
		// spec.md §4.1: KEEP_ALIVE + readable => READING, with the
		// matching timer swap (cancel keep-alive, arm request).
		w.cancelTimer(conn)
		conn.State = connrec.READING
		node, err := w.timers.Add(conn, w.cfg.RequestTimeout)
		if err != nil {
			w.closeConn(conn)
			return
		}
		conn.TimerRef = node
		w.doRead(conn)
	case connrec.READING:
		w.doRead(conn)
	case connrec.WRITING:
		w.doWrite(conn)
	}
}

// doRead implements spec.md §4.4: repeated reads until would-block, peer
// close, or the attempt cap, feeding each freshly-read chunk straight to
// the parser (which buffers internally across calls). conn.ReadBuf is
// reused as a per-syscall transfer scratch, not a cumulative request
// buffer: the parser's own internal fragment buffer (httpparse/parser.go)
// is what carries unparsed bytes forward between Feed calls, so ReadLen is
// reset after every successful feed and the real cumulative-size cap is
// tracked against conn.Parser.BytesRead, independent of the 4096-byte
// transfer buffer's size.
func (w *Worker) doRead(conn *connrec.Conn) {
	for attempts := 0; attempts < w.cfg.ReadAttemptCap; attempts++ {
		n, err := unix.Read(conn.FD, conn.ReadBuf[:])
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			w.closeConn(conn)
			return
		}
		if n == 0 {
			// Peer closed.
			w.closeConn(conn)
			return
		}

		conn.ReadLen = n
		chunk := conn.ReadBuf[:n]

		_, perr := conn.Parser.Feed(chunk)
		conn.ReadLen = 0

		if conn.Parser.BytesRead > int64(w.cfg.MaxRequestSize) {
			// Oversize request (spec.md §4.4/§8: 8192 bytes accepted,
			// 8193 rejected), regardless of whether the parser itself
			// signalled completion or an error on this same chunk.
			w.abort(conn)
			return
		}

		if perr != nil {
			if perr == httpparse.ErrPaused {
				w.completeRequest(conn)
				return
			}
			// ErrInvalid, ErrUpgrade, or any other parser error is a
			// silent abort per spec.md §4.4.
			w.abort(conn)
			return
		}
	}

	// Would-block or attempt cap reached with headers still incomplete:
	// re-arm for readability and wait for the next wake.
	if err := w.poll.ArmRead(conn.FD); err != nil {
		w.closeConn(conn)
	}
}

// completeRequest handles the transition out of the read path once the
// parser has signalled headers-complete.
func (w *Worker) completeRequest(conn *connrec.Conn) {
	if conn.Parser.ContentLength != 0 {
		// Bodies are never accepted by this engine (spec.md §6).
		w.abort(conn)
		return
	}

	w.cancelTimer(conn)
	handler.Serve(conn, w.routes, w.sink)
	w.doWrite(conn)
}

// doWrite implements spec.md §4.5: a vectored write of the header/body
// pair, resuming from BytesSent on a partial write.
func (w *Worker) doWrite(conn *connrec.Conn) {
	header := conn.HeaderBuf[:conn.HeaderLen]
	body := conn.BodySegment
	total := len(header) + len(body)
	if total > w.cfg.MaxResponseSize {
		w.closeConn(conn)
		return
	}

	for attempts := 0; attempts < w.cfg.WriteAttemptCap; attempts++ {
		iovs := writeSegments(conn.BytesSent, header, body)
		if iovs == nil {
			w.finishWrite(conn)
			return
		}

		n, err := platformWritev(conn.FD, iovs)
		if err != nil {
			if err == unix.EAGAIN {
				if err := w.poll.ArmWrite(conn.FD); err != nil {
					w.closeConn(conn)
				}
				return
			}
			w.closeConn(conn)
			return
		}

		conn.BytesSent += n
		if conn.BytesSent >= total {
			w.finishWrite(conn)
			return
		}
	}

	// Attempt cap reached without completion: re-arm for writability,
	// matching "remain WRITING, re-arm demultiplexer" from spec.md §4.1.
	if err := w.poll.ArmWrite(conn.FD); err != nil {
		w.closeConn(conn)
	}
}

// writeSegments slices (header, body) down to what remains unsent, per
// sent bytes already counted in BytesSent, and returns nil once both
// segments have been fully consumed.
func writeSegments(sent int, header, body []byte) [][]byte {
	if sent < len(header) {
		if len(body) == 0 {
			return [][]byte{header[sent:]}
		}
		return [][]byte{header[sent:], body}
	}
	bodyOffset := sent - len(header)
	if bodyOffset >= len(body) {
		return nil
	}
	return [][]byte{body[bodyOffset:]}
}

func (w *Worker) finishWrite(conn *connrec.Conn) {
	if !conn.KeepAlive {
		w.closeConn(conn)
		return
	}

	conn.InitParser()
	conn.ReadLen = 0
	conn.BytesSent = 0
	conn.State = connrec.KEEPALIVE

	if err := w.poll.ArmRead(conn.FD); err != nil {
		w.closeConn(conn)
		return
	}

	w.cancelTimer(conn)
	node, err := w.timers.Add(conn, w.cfg.KeepAliveTimeout)
	if err != nil {
		w.closeConn(conn)
		return
	}
	conn.TimerRef = node
}

func (w *Worker) abort(conn *connrec.Conn) {
	conn.State = connrec.CLOSING
	w.closeConn(conn)
}

func (w *Worker) cancelTimer(conn *connrec.Conn) {
	if conn.TimerRef != nil {
		w.timers.Remove(conn.TimerRef)
		conn.TimerRef = nil
	}
}

// closeConn tears down fd's registration and returns its record to the
// pool. It is also wired as Conn.OnExpire, so the timer heap can drive a
// timed-out connection through the same teardown path.
func (w *Worker) closeConn(conn *connrec.Conn) {
	fd := conn.FD
	w.cancelTimer(conn)
	w.poll.Remove(fd)
	unix.Close(fd)
	delete(w.conns, fd)
	release := w.releases[fd]
	delete(w.releases, fd)
	conn.Reset()
	if release != nil {
		release()
	}
}
