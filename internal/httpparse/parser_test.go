package httpparse

import "testing"

func feedAll(p *Parser, data []byte) error {
	for len(data) > 0 {
		n, err := p.Feed(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		data = data[n:]
	}
	return nil
}

func TestParseSimpleGet(t *testing.T) {
	var url []byte
	var p Parser
	p.Init(Settings{
		OnURL: func(chunk []byte) error {
			url = append(url, chunk...)
			return nil
		},
		OnHeadersComplete: func() int { return 1 },
	})

	req := "GET /bonuses?x=1 HTTP/1.1\r\nHost: x\r\nConnection: keep-alive\r\n\r\n"
	err := feedAll(&p, []byte(req))
	if err != ErrPaused {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if string(url) != "/bonuses?x=1" {
		t.Fatalf("url = %q", url)
	}
	if p.Method != "GET" {
		t.Fatalf("method = %q", p.Method)
	}
	if !p.ShouldKeepAlive() {
		t.Fatal("expected keep-alive")
	}
}

func TestParseHTTP10DefaultsToClose(t *testing.T) {
	var p Parser
	p.Init(Settings{
		OnHeadersComplete: func() int { return 1 },
	})
	err := feedAll(&p, []byte("GET /health HTTP/1.0\r\nHost: x\r\n\r\n"))
	if err != ErrPaused {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if p.ShouldKeepAlive() {
		t.Fatal("HTTP/1.0 without explicit keep-alive should close")
	}
}

func TestParseAcrossMultipleFeeds(t *testing.T) {
	var url []byte
	var headersComplete bool
	var p Parser
	p.Init(Settings{
		OnURL: func(chunk []byte) error {
			url = append(url, chunk...)
			return nil
		},
		OnHeadersComplete: func() int {
			headersComplete = true
			return 1
		},
	})

	full := "GET /games HTTP/1.1\r\nHost: x\r\n\r\n"
	for i := 0; i < len(full); i++ {
		n, err := p.Feed([]byte{full[i]})
		if n != 1 {
			t.Fatalf("Feed consumed %d, want 1", n)
		}
		if err != nil && err != ErrPaused {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !headersComplete {
		t.Fatal("expected headers-complete callback")
	}
	if string(url) != "/games" {
		t.Fatalf("url = %q", url)
	}
}

func TestParseUpgradeRejected(t *testing.T) {
	var p Parser
	p.Init(Settings{OnHeadersComplete: func() int { return 1 }})
	err := feedAll(&p, []byte("GET /ws HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"))
	if err != ErrUpgrade {
		t.Fatalf("expected ErrUpgrade, got %v", err)
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	var p Parser
	p.Init(Settings{OnHeadersComplete: func() int { return 1 }})
	_, err := p.Feed([]byte("GARBAGE\r\n\r\n"))
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestParseContentLength(t *testing.T) {
	var p Parser
	p.Init(Settings{OnHeadersComplete: func() int { return 1 }})
	err := feedAll(&p, []byte("GET /x HTTP/1.1\r\nContent-Length: 5\r\n\r\n"))
	if err != ErrPaused {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if p.ContentLength != 5 {
		t.Fatalf("content length = %d, want 5", p.ContentLength)
	}
}

func TestInitResetsState(t *testing.T) {
	var p Parser
	p.Init(Settings{OnHeadersComplete: func() int { return 1 }})
	_ = feedAll(&p, []byte("GET /a HTTP/1.1\r\n\r\n"))

	p.Init(Settings{OnHeadersComplete: func() int { return 1 }})
	if p.Method != "" || p.ContentLength != 0 || p.BytesRead != 0 {
		t.Fatal("Init did not reset parser fields")
	}
	err := feedAll(&p, []byte("GET /b HTTP/1.1\r\n\r\n"))
	if err != ErrPaused || p.Method != "GET" {
		t.Fatalf("second parse after Init failed: method=%q err=%v", p.Method, err)
	}
}
