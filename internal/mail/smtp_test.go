package mail

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, SMTPConfig) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return ln, SMTPConfig{Host: host, Port: p}
}

// serveSMTP answers one session with plain 2xx/3xx replies and returns the DATA payload.
func serveSMTP(ln net.Listener) <-chan string {
	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(out)
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }
		reply("220 test ESMTP")

		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(out)
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 test")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 ok")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						close(out)
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				out <- data.String()
				return
			default:
				reply("250 ok")
			}
		}
	}()
	return out
}

func TestSMTPMailer_Delivers(t *testing.T) {
	ln, cfg := listen(t)
	got := serveSMTP(ln)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := NewSMTPMailer(cfg).Send(ctx, &Message{
		From:    Address{Address: "shop@b.c"},
		To:      []Address{{Address: "ann@b.c"}},
		Subject: "Hello",
		Text:    "body text",
	})
	require.NoError(t, err)

	select {
	case data := <-got:
		assert.Contains(t, data, "Subject: Hello\r\n")
		assert.Contains(t, data, "body text")
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw QUIT")
	}
}

func TestSMTPMailer_StalledServerHitsDeadline(t *testing.T) {
	ln, cfg := listen(t)

	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// no greeting; wait until the client hangs up
		buf := make([]byte, 64)
		for {
			if _, err := conn.Read(buf); err != nil {
				close(closed)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewSMTPMailer(cfg).Send(ctx, &Message{
		From: Address{Address: "shop@b.c"},
		To:   []Address{{Address: "ann@b.c"}},
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("connection left open after the deadline")
	}
}
