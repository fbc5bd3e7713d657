package mailer

import (
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"
)

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return ln, host, p
}

func TestSendEmailStalledServer(t *testing.T) {
	ln, host, port := listen(t)
	// Accept and never greet.
	conns := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case c := <-conns:
				c.Close()
			default:
				return
			}
		}
	})

	s := &SMTP{Server: host, Port: port, From: "hub@kent.edu", Timeout: 200 * time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- s.SendEmail("bob@kent.edu", "hello", "", "body") }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("SendEmail succeeded against a silent server")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SendEmail still blocked after 5s")
	}
}

// serveOnce speaks just enough SMTP to accept one message.
func serveOnce(ln net.Listener, got chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, _, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			tp.PrintfLine("250 localhost")
		case "MAIL", "RCPT":
			tp.PrintfLine("250 ok")
		case "DATA":
			tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			got <- string(body)
			tp.PrintfLine("250 queued")
		case "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("502 unsupported")
		}
	}
}

func TestSendEmailDelivers(t *testing.T) {
	ln, host, port := listen(t)
	got := make(chan string, 1)
	go serveOnce(ln, got)

	s := &SMTP{Server: host, Port: port, From: "hub@kent.edu", Timeout: 5 * time.Second}
	if err := s.SendEmail("bob@kent.edu", "Meeting accepted", "<p>hi</p>", "hi"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	select {
	case msg := <-got:
		for _, want := range []string{"Subject: Meeting accepted", "To: bob@kent.edu", "text/html"} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}
}
