// Package connrec implements the connection record and its five-state
// finite state machine described in spec.md §3/§4.1: a fixed-size value
// drawn from a pool, carrying an inline read buffer, inline URL buffer,
// inline response-header scratch buffer, a two-segment scatter/gather
// descriptor pair, and a weak back-reference to its timer-heap node.
package connrec

import (
	"errors"
	"time"

	"github.com/searchktools/fastcore/internal/httpparse"
	"github.com/searchktools/fastcore/internal/scan"
	"github.com/searchktools/fastcore/internal/timerheap"
)

// State is one of the five connection states from spec.md §4.1.
type State int

const (
	// FREE means the record is idle in its pool; fd == -1 and TimerRef ==
	// nil are the invariant's two halves.
	FREE State = iota
	READING
	WRITING
	KEEPALIVE
	CLOSING
)

const (
	readBufSize   = 4096
	maxURLLen     = 255 // 256-byte inline buffer minus the null terminator
	headerBufSize = 512
)

// ErrInvalidURL covers every character-class, structural ("..", "//"),
// zero-length, or over-length violation spec.md §6 assigns to the URL
// callback. The caller of Feed treats it as a silent abort to CLOSING,
// never a shaped response (spec.md §8 scenario 5).
var ErrInvalidURL = errors.New("connrec: invalid URL")

// Conn is the per-flow connection record. It is never heap-allocated per
// request: it is claimed by value from a pool slab and reused across its
// entire connection lifetime, including across keep-alive requests.
type Conn struct {
	FD    int
	State State

	PeerAddr string

	ReadBuf [readBufSize]byte
	ReadLen int

	Parser httpparse.Parser

	urlBuf [maxURLLen + 1]byte
	urlLen int

	KeepAlive bool

	HeaderBuf [headerBufSize]byte
	HeaderLen int

	// BodySegment is a borrowed slice into the route table's payload (or
	// a static error body); it is never owned or mutated by Conn.
	BodySegment []byte

	BytesSent  int
	LastActive time.Time

	// TimerRef is the weak, nullable back-reference to this connection's
	// current timer-heap node (spec.md §3/§9). It is never dereferenced
	// directly by Conn except through timerheap.Heap.Remove.
	TimerRef *timerheap.Node

	// OnExpire is invoked by Expire() when the timer heap drives this
	// connection to CLOSING. It is wired by the worker that claimed the
	// connection, since only the worker can actually close the fd and
	// deregister from the poller.
	OnExpire func(*Conn)
}

// Reset clears every per-request field for reuse from the pool. Called on
// claim from FREE and again on release back to FREE; it does not touch
// the read/header/URL buffer contents, only their valid-length counters,
// matching the teacher's "memory not freed, just reset" pool convention
// (core/http/request.go's Request.Reset).
func (c *Conn) Reset() {
	c.FD = -1
	c.State = FREE
	c.PeerAddr = ""
	c.ReadLen = 0
	c.urlLen = 0
	c.KeepAlive = false
	c.HeaderLen = 0
	c.BodySegment = nil
	c.BytesSent = 0
	c.LastActive = time.Time{}
	c.TimerRef = nil
	c.OnExpire = nil
}

// SetFD binds fd to the record, marks it claimed (READING), and starts
// its activity clock.
func (c *Conn) SetFD(fd int) {
	c.FD = fd
	c.State = READING
	c.LastActive = time.Now()
}

// InitParser (re)arms the request parser for a fresh request on this
// connection, wiring the URL and headers-complete callbacks back to this
// same record — the parser's back-reference spec.md §3 requires.
func (c *Conn) InitParser() {
	c.urlLen = 0
	c.Parser.Init(httpparse.Settings{
		OnURL:             c.appendURL,
		OnHeadersComplete: func() int { return 1 },
	})
}

func (c *Conn) appendURL(chunk []byte) error {
	if len(chunk) == 0 && c.urlLen == 0 {
		return ErrInvalidURL
	}
	if c.urlLen+len(chunk) > maxURLLen {
		return ErrInvalidURL
	}
	if !scan.ValidURLBytes(chunk) {
		return ErrInvalidURL
	}
	copy(c.urlBuf[c.urlLen:], chunk)
	c.urlLen += len(chunk)
	if scan.ContainsDotDotOrDoubleSlash(c.urlBuf[:c.urlLen]) {
		return ErrInvalidURL
	}
	return nil
}

// URL returns the accumulated, validated request URL including any query
// string, null-terminating the inline buffer per spec.md §3's invariant.
func (c *Conn) URL() string {
	c.urlBuf[c.urlLen] = 0
	return string(c.urlBuf[:c.urlLen])
}

// Expire implements timerheap.Expirable. It is invoked by the timer heap
// when this connection's armed timeout has passed; it drives the state
// to CLOSING and defers the actual socket teardown to OnExpire, which the
// owning worker wired at claim time.
func (c *Conn) Expire() {
	c.State = CLOSING
	if c.OnExpire != nil {
		c.OnExpire(c)
	}
}
