package mailer

import (
	"sync"
	"time"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mock records every message. When Err is set, sends fail with it after recording.
type Mock struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (m *Mock) SendEmail(to, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return m.Err
}

func (m *Mock) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// WaitFor blocks until at least n messages were recorded or timeout elapses.
func (m *Mock) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if len(m.Messages()) >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
