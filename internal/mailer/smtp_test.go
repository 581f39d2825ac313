package mailer

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/identity/internal/domain"
)

type fakeSMTP struct {
	host     string
	port     int
	rcptCode int
	commands chan string
	bodies   chan string
}

func startFakeSMTP(t *testing.T, rcptCode int) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	f := &fakeSMTP{
		host:     "127.0.0.1",
		port:     addr.Port,
		rcptCode: rcptCode,
		commands: make(chan string, 32),
		bodies:   make(chan string, 1),
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		f.serve(textproto.NewConn(conn))
	}()

	return f
}

func (f *fakeSMTP) serve(tp *textproto.Conn) {
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		f.commands <- line

		switch verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); verb {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case "MAIL":
			_ = tp.PrintfLine("250 OK")
		case "RCPT":
			_ = tp.PrintfLine("%d recipient status", f.rcptCode)
		case "DATA":
			_ = tp.PrintfLine("354 end with .")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			f.bodies <- strings.Join(lines, "\n")
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (f *fakeSMTP) sender() *SMTPSender {
	return NewSMTPSender(SMTPConfig{
		Host:      f.host,
		Port:      f.port,
		Timeout:   2 * time.Second,
		FromEmail: "noreply@example.com",
		FromName:  "Identity",
	})
}

func TestSMTPSender_Send(t *testing.T) {
	srv := startFakeSMTP(t, 250)

	err := srv.sender().Send(context.Background(), Message{
		Template: domain.TemplateTest,
		To:       "a@x.com",
		Subject:  "Identity - Test email",
		HTML:     "<p>hello</p>",
	})
	require.NoError(t, err)

	select {
	case body := <-srv.bodies:
		assert.Contains(t, body, "To: a@x.com")
		assert.Contains(t, body, "Subject: Identity - Test email")
		assert.Contains(t, body, `From: "Identity" <noreply@example.com>`)
		assert.Contains(t, body, "Content-Type: text/html")
		assert.Contains(t, body, "<p>hello</p>")
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	close(srv.commands)
	var verbs []string
	for c := range srv.commands {
		verbs = append(verbs, strings.SplitN(c, " ", 2)[0])
	}
	assert.Equal(t, []string{"EHLO", "MAIL", "RCPT", "DATA", "QUIT"}, verbs)
}

func TestSMTPSender_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t, 550)

	err := srv.sender().Send(context.Background(), Message{To: "nobody@x.com", Subject: "s", HTML: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rcpt")
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	err = s.Send(context.Background(), Message{To: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp dial")
}

func TestSMTPSender_DefaultTimeout(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25})
	assert.Equal(t, 10*time.Second, s.cfg.Timeout)
	assert.Equal(t, "smtp", s.Name())
}
