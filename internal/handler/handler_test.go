package handler

import (
	"strings"
	"testing"

	"github.com/searchktools/fastcore/internal/connrec"
	"github.com/searchktools/fastcore/internal/metrics"
	"github.com/searchktools/fastcore/internal/route"
)

func newParsedConn(t *testing.T, method, rawURL string, keepAlive bool) *connrec.Conn {
	t.Helper()
	var c connrec.Conn
	c.InitParser()
	if err := appendURLHelper(&c, rawURL); err != nil {
		t.Fatalf("appendURL failed: %v", err)
	}
	c.Parser.Method = method
	c.Parser.Major, c.Parser.Minor = 1, 1
	if !keepAlive {
		forceClose(&c)
	}
	return &c
}

// appendURLHelper/forceClose route through the package's unexported
// validation so tests exercise the same path Feed would.
func appendURLHelper(c *connrec.Conn, url string) error {
	// connrec.Conn.appendURL is unexported; simulate the parser's call by
	// round-tripping through InitParser's wired callback via Parser.Feed.
	var consumed int
	data := []byte("GET " + url + " HTTP/1.1\r\n\r\n")
	for len(data) > 0 {
		n, err := c.Parser.Feed(data)
		consumed += n
		data = data[n:]
		if err != nil {
			if err.Error() == "httpparse: paused after headers" {
				return nil
			}
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}

func forceClose(c *connrec.Conn) {
	// Keep-alive is derived from the parser's Connection header and HTTP
	// version; with no Connection header, setting the parsed version to
	// 1.0 makes ShouldKeepAlive() report false.
	c.Parser.Major, c.Parser.Minor = 1, 0
}

func TestServeHealthRoute(t *testing.T) {
	c := newParsedConn(t, "GET", "/health", true)
	sink := metrics.New()
	Serve(c, route.Default(), sink)

	header := string(c.HeaderBuf[:c.HeaderLen])
	if !strings.HasPrefix(header, "HTTP/1.1 200 OK") {
		t.Fatalf("header = %q", header)
	}
	if string(c.BodySegment) != `{"status":"OK"}` {
		t.Fatalf("body = %q", c.BodySegment)
	}
	if c.State != connrec.WRITING {
		t.Fatalf("State = %v, want WRITING", c.State)
	}
	if sink.PathTotal("/health") != 1 {
		t.Fatalf("metrics total = %d, want 1", sink.PathTotal("/health"))
	}
}

func TestServeKeepAliveHeader(t *testing.T) {
	c := newParsedConn(t, "GET", "/bonuses?x=1", true)
	Serve(c, route.Default(), metrics.New())

	header := string(c.HeaderBuf[:c.HeaderLen])
	if !strings.Contains(header, "Connection: keep-alive") {
		t.Fatalf("expected keep-alive header, got %q", header)
	}
	if !strings.Contains(header, "Keep-Alive: timeout=10") {
		t.Fatalf("expected Keep-Alive timeout header, got %q", header)
	}
	if !c.KeepAlive {
		t.Fatal("c.KeepAlive should be true")
	}
}

func TestServeStripsQueryForRouteLookup(t *testing.T) {
	c := newParsedConn(t, "GET", "/bonuses?x=1", true)
	Serve(c, route.Default(), metrics.New())

	if string(c.BodySegment) != `{"bonuses":[10,20,30]}` {
		t.Fatalf("body = %q", c.BodySegment)
	}
}

func TestServeMethodNotAllowed(t *testing.T) {
	c := newParsedConn(t, "POST", "/health", true)
	sink := metrics.New()
	Serve(c, route.Default(), sink)

	header := string(c.HeaderBuf[:c.HeaderLen])
	if !strings.HasPrefix(header, "HTTP/1.1 405") {
		t.Fatalf("header = %q", header)
	}
	if string(c.BodySegment) != `{"error":"Method Not Allowed"}` {
		t.Fatalf("body = %q", c.BodySegment)
	}
	if c.KeepAlive {
		t.Fatal("405 must force keep-alive off")
	}
	if sink.PathErrors("/health", 405) != 1 {
		t.Fatal("expected an error counter for (/health, 405)")
	}
}

func TestServeNotFound(t *testing.T) {
	c := newParsedConn(t, "GET", "/missing", true)
	Serve(c, route.Default(), metrics.New())

	header := string(c.HeaderBuf[:c.HeaderLen])
	if !strings.HasPrefix(header, "HTTP/1.1 404") {
		t.Fatalf("header = %q", header)
	}
	if c.KeepAlive {
		t.Fatal("404 must force keep-alive off")
	}
}

func TestServeHTTP10DefaultsClose(t *testing.T) {
	c := newParsedConn(t, "GET", "/games", false)
	Serve(c, route.Default(), metrics.New())

	header := string(c.HeaderBuf[:c.HeaderLen])
	if !strings.Contains(header, "Connection: close") {
		t.Fatalf("expected close header for HTTP/1.0, got %q", header)
	}
}
