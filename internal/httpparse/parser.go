// Package httpparse implements the minimal incremental HTTP/1.x request-line
// and header parser the engine treats as an external streaming collaborator:
// an init entrypoint, a feed entrypoint that reports consumed bytes, and a
// callback set invoked as header data becomes available. It never reads or
// buffers a request body — bodies are rejected by policy one layer up.
package httpparse

import (
	"bytes"
	"errors"
)

// ErrPaused is the distinguished "success" error the spec describes: the
// OnHeadersComplete callback returned 1, and parsing halts there by design.
var ErrPaused = errors.New("httpparse: paused after headers")

// ErrInvalid covers any request-line or header malformation.
var ErrInvalid = errors.New("httpparse: invalid request")

// ErrUpgrade is reported when the client requested a protocol upgrade.
var ErrUpgrade = errors.New("httpparse: upgrade requested")

type state int

const (
	stateRequestLine state = iota
	stateHeaders
	stateDone
)

// Settings is the callback set the core wires into a Parser. OnURL is
// invoked once per request with the complete URL, because the request line
// is buffered across feed calls until its newline arrives;
// OnHeadersComplete is invoked exactly once and its return value of 1 means
// "stop parsing, headers are complete" per the parser contract.
type Settings struct {
	OnURL             func(chunk []byte) error
	OnHeadersComplete func() int
}

// Parser is a single-connection, reusable incremental request parser.
// Reset via Init rather than allocated fresh on every request.
type Parser struct {
	settings Settings

	state state
	buf   []byte // unterminated line/header fragment carried across Feed calls

	Method        string
	Major, Minor  int
	ContentLength int64
	BytesRead     int64
	Upgrade       bool
	connectionHdr string
}

// Init (re)initialises the parser for a new request, installing the given
// callback set and clearing all parsed fields and internal buffering.
func (p *Parser) Init(settings Settings) {
	p.settings = settings
	p.state = stateRequestLine
	p.buf = p.buf[:0]
	p.Method = ""
	p.Major, p.Minor = 0, 0
	p.ContentLength = 0
	p.BytesRead = 0
	p.Upgrade = false
	p.connectionHdr = ""
}

// ShouldKeepAlive reports whether the parsed request wants the connection
// kept open, per HTTP/1.0 vs 1.1 defaults and an explicit Connection header.
func (p *Parser) ShouldKeepAlive() bool {
	switch p.connectionHdr {
	case "close":
		return false
	case "keep-alive":
		return true
	}
	// Default: HTTP/1.1 keeps alive, HTTP/1.0 does not.
	return p.Major == 1 && p.Minor == 1
}

// Feed supplies newly-arrived bytes and returns the number consumed. The
// remainder (always 0 once headers are complete) is left for the caller to
// discard; the internal buffer is what actually carries fragments forward.
// It returns ErrPaused once OnHeadersComplete signals completion, ErrInvalid
// on malformed input, and ErrUpgrade when an upgrade was requested.
func (p *Parser) Feed(data []byte) (consumed int, err error) {
	if p.state == stateDone {
		return 0, ErrPaused
	}

	p.BytesRead += int64(len(data))
	p.buf = append(p.buf, data...)
	consumed = len(data)

	for {
		switch p.state {
		case stateRequestLine:
			idx := bytes.IndexByte(p.buf, '\n')
			if idx == -1 {
				return consumed, nil // need more data
			}
			line := trimCR(p.buf[:idx])
			if err := p.parseRequestLine(line); err != nil {
				return consumed, err
			}
			p.buf = p.buf[idx+1:]
			p.state = stateHeaders

		case stateHeaders:
			idx := bytes.IndexByte(p.buf, '\n')
			if idx == -1 {
				return consumed, nil // need more data
			}
			line := trimCR(p.buf[:idx])
			p.buf = p.buf[idx+1:]

			if len(line) == 0 {
				// Blank line: headers complete.
				if p.Upgrade {
					return consumed, ErrUpgrade
				}
				p.state = stateDone
				if p.settings.OnHeadersComplete != nil && p.settings.OnHeadersComplete() == 1 {
					return consumed, ErrPaused
				}
				return consumed, nil
			}

			if err := p.parseHeaderLine(line); err != nil {
				return consumed, err
			}

		case stateDone:
			return consumed, ErrPaused
		}
	}
}

func (p *Parser) parseRequestLine(line []byte) error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return ErrInvalid
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 == -1 {
		return ErrInvalid
	}

	p.Method = string(line[:sp1])
	url := rest[:sp2]
	proto := rest[sp2+1:]

	major, minor, ok := parseProto(proto)
	if !ok {
		return ErrInvalid
	}
	p.Major, p.Minor = major, minor

	if len(url) == 0 {
		return ErrInvalid
	}
	if p.settings.OnURL != nil {
		if err := p.settings.OnURL(url); err != nil {
			return err
		}
	}

	return nil
}

func parseProto(proto []byte) (major, minor int, ok bool) {
	switch string(proto) {
	case "HTTP/1.1":
		return 1, 1, true
	case "HTTP/1.0":
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

func (p *Parser) parseHeaderLine(line []byte) error {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return ErrInvalid
	}
	key := string(bytes.TrimSpace(line[:colon]))
	value := string(bytes.TrimSpace(line[colon+1:]))

	switch lowerASCII(key) {
	case "content-length":
		n, ok := parseUint(value)
		if !ok {
			return ErrInvalid
		}
		p.ContentLength = n
	case "connection":
		p.connectionHdr = lowerASCII(value)
	case "upgrade":
		p.Upgrade = true
	}

	return nil
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func parseUint(s string) (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	var n int64
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}
