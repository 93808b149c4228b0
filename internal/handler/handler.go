// Package handler implements the synchronous request handler from
// spec.md §4.6: method/URL/route policy, response-header formatting into
// the connection's fixed scratch buffer, and the fire-and-forget metrics
// side effects. It is grounded in the teacher's FDContext.JSON/String
// response-assembly style (core/http/context_fd.go), adapted to write
// directly into Conn.HeaderBuf instead of a pooled variable-length slice.
package handler

import (
	"time"

	"github.com/searchktools/fastcore/internal/connrec"
	"github.com/searchktools/fastcore/internal/metrics"
	"github.com/searchktools/fastcore/internal/route"
	"github.com/searchktools/fastcore/internal/scan"
)

// ServerHeaderValue is the Server header this engine advertises.
const ServerHeaderValue = "fastcore"

var (
	methodNotAllowedBody = []byte(`{"error":"Method Not Allowed"}`)
	badRequestBody       = []byte(`{"error":"Bad Request"}`)
	notFoundBody         = []byte(`{"error":"Not Found"}`)
	internalErrorBody    = []byte(`{"error":"Internal Server Error"}`)
)

// Serve applies the policy table from spec.md §4.6 to a connection whose
// parser has completed headers and whose URL has already passed the
// callback-level validation in internal/connrec. It formats the response
// headers into c.HeaderBuf, points c.BodySegment at the selected payload,
// transitions c to WRITING, and records the fire-and-forget metrics.
func Serve(c *connrec.Conn, routes *route.Table, sink *metrics.Sink) {
	start := time.Now()

	method := c.Parser.Method
	rawURL := c.URL()
	path := rawURL
	if idx := scan.IndexQuery([]byte(rawURL)); idx != -1 {
		path = rawURL[:idx]
	}

	keepAlive := c.Parser.ShouldKeepAlive()
	status := 200
	var body []byte

	switch {
	case method != "GET":
		status, body, keepAlive = 405, methodNotAllowedBody, false
	case path == "" || path[0] != '/':
		status, body, keepAlive = 400, badRequestBody, false
	default:
		if payload, ok := routes.Lookup(path); ok {
			status, body = 200, payload
		} else {
			status, body, keepAlive = 404, notFoundBody, false
		}
	}

	headerLen := formatHeaders(c.HeaderBuf[:0], status, len(body), keepAlive)
	if headerLen < 0 {
		// Defensive branch from spec.md §4.6: the static routes here
		// never trigger it, but a future route with a long path or many
		// headers could overflow the 512-byte scratch.
		status, body, keepAlive = 500, internalErrorBody, false
		headerLen = formatHeaders(c.HeaderBuf[:0], status, len(body), keepAlive)
		if headerLen < 0 {
			headerLen = copy(c.HeaderBuf[:], "HTTP/1.1 500 Internal Server Error\r\nConnection: close\r\n\r\n")
		}
	}

	c.KeepAlive = keepAlive
	c.HeaderLen = headerLen
	c.BodySegment = body
	c.BytesSent = 0
	c.State = connrec.WRITING

	if sink != nil {
		sink.RecordRequest(path, status)
		sink.ObserveLatency(time.Since(start))
	}
}

// formatHeaders appends the status line and headers directly into buf
// (which the caller passes as c.HeaderBuf[:0], the fixed scratch buffer
// from spec.md §3 — no intermediate allocation). It returns the written
// length, or -1 if the formatted header would have overflowed buf's
// capacity, in which case buf's contents are left undefined and the
// caller must retry with the 500 variant.
func formatHeaders(buf []byte, status, bodyLen int, keepAlive bool) int {
	b := buf
	b = append(b, "HTTP/1.1 "...)
	b = appendInt(b, status)
	b = append(b, ' ')
	b = append(b, statusText(status)...)
	b = append(b, "\r\nContent-Type: application/json\r\nContent-Length: "...)
	b = appendInt(b, bodyLen)
	b = append(b, "\r\nServer: "...)
	b = append(b, ServerHeaderValue...)
	b = append(b, "\r\nX-Content-Type-Options: nosniff\r\nX-Frame-Options: DENY\r\n"...)
	if keepAlive {
		b = append(b, "Connection: keep-alive\r\nKeep-Alive: timeout=10\r\n\r\n"...)
	} else {
		b = append(b, "Connection: close\r\n\r\n"...)
	}
	if cap(b) != cap(buf) {
		// append outgrew the backing array: HeaderBuf[:0] can never
		// exceed the array's own capacity, so growth means this write
		// clobbered into newly-allocated memory, not the scratch buffer.
		return -1
	}
	return len(b)
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}
	if i < 0 {
		b = append(b, '-')
		i = -i
	}
	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}
	for n > 0 {
		n--
		b = append(b, digits[n])
	}
	return b
}
