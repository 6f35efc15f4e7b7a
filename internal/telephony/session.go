package telephony

import (
	"net/http"
	"sync"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Session is the process-wide outbound HTTP pool shared by all adapters.
// The client is created on first use and released once by Close.
type Session struct {
	timeout   time.Duration
	transport http.RoundTripper

	mu     sync.Mutex
	client *http.Client
	closed bool
}

// NewSession returns a session whose requests time out after timeout
// (10s when timeout <= 0).
func NewSession(timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Session{timeout: timeout}
}

// WithTransport overrides the round tripper; it must be called before first use.
func (s *Session) WithTransport(rt http.RoundTripper) *Session {
	s.transport = rt
	return s
}

// HTTPClient returns the shared client, creating it on first call.
func (s *Session) HTTPClient() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.client == nil {
		rt := s.transport
		if rt == nil {
			rt = http.DefaultTransport.(*http.Transport).Clone()
		}
		s.client = &http.Client{Timeout: s.timeout, Transport: rt}
	}
	return s.client, nil
}

// Close releases pooled connections. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
	return nil
}
