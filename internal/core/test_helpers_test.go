package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type inboundFrame struct {
	text string
	err  error
}

// fakeConn is a scriptable Conn for session and registry tests.
type fakeConn struct {
	in chan inboundFrame

	mu     sync.Mutex
	sent   []string
	closed bool
	status CloseStatus
	reason string
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan inboundFrame, 16)}
}

func (c *fakeConn) Receive(ctx context.Context) (string, error) {
	select {
	case frame, ok := <-c.in:
		if !ok {
			return "", io.EOF
		}
		return frame.text, frame.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *fakeConn) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("send on closed connection")
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeConn) Close(status CloseStatus, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("already closed")
	}
	c.closed = true
	c.status = status
	c.reason = reason
	return nil
}

// push makes the next Receive return text.
func (c *fakeConn) push(text string) {
	c.in <- inboundFrame{text: text}
}

// fail makes the next Receive return err, simulating a transport error.
func (c *fakeConn) fail(err error) {
	c.in <- inboundFrame{err: err}
}

// end closes the inbound stream, simulating a graceful remote close.
func (c *fakeConn) end() {
	close(c.in)
}

func (c *fakeConn) sentCopy() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) closeInfo() (bool, CloseStatus, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.status, c.reason
}

// fakeGate resolves fixed credentials to identities.
type fakeGate struct {
	identities map[string]Identity
}

func (g *fakeGate) ResolveIdentity(_ context.Context, credential string) (Identity, error) {
	if id, ok := g.identities[credential]; ok {
		return id, nil
	}
	return Identity{}, ErrUnauthenticated
}

// fakePolicy allows explicitly granted (channel, user) pairs.
type fakePolicy struct {
	mu      sync.Mutex
	allowed map[string]bool
	missing map[int64]bool
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{allowed: make(map[string]bool), missing: make(map[int64]bool)}
}

func policyKey(channelID, userID int64) string {
	return fmt.Sprintf("%d/%d", channelID, userID)
}

func (p *fakePolicy) allow(channelID, userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed[policyKey(channelID, userID)] = true
}

func (p *fakePolicy) markMissing(channelID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing[channelID] = true
}

func (p *fakePolicy) Authorize(_ context.Context, id Identity, channelID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[channelID] {
		return ErrNotFound
	}
	if !p.allowed[policyKey(channelID, id.UserID)] {
		return ErrForbidden
	}
	return nil
}

// fakeSink records persisted messages and can be made to fail.
type fakeSink struct {
	mu       sync.Mutex
	messages []StoredMessage
	nextID   int64
	failing  bool
}

func (s *fakeSink) Persist(_ context.Context, id Identity, channelID int64, text string) (StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return StoredMessage{}, errors.New("store unavailable")
	}
	s.nextID++
	msg := StoredMessage{
		ID:        s.nextID,
		ChannelID: channelID,
		SenderID:  id.UserID,
		Content:   text,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeSink) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *fakeSink) stored() []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoredMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
