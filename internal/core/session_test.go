package core

import (
	"context"
	"errors"
	"testing"
)

type sessionEnv struct {
	registry    *Registry
	broadcaster *Broadcaster
	gate        *fakeGate
	policy      *fakePolicy
	sink        *fakeSink
}

func newSessionEnv() *sessionEnv {
	registry := NewRegistry()
	return &sessionEnv{
		registry:    registry,
		broadcaster: NewBroadcaster(registry, testLogger()),
		gate: &fakeGate{identities: map[string]Identity{
			"token-a": {UserID: 1, Username: "A"},
			"token-b": {UserID: 2, Username: "B"},
		}},
		policy: newFakePolicy(),
		sink:   &fakeSink{},
	}
}

func (e *sessionEnv) newSession() *Session {
	return NewSession(e.registry, e.broadcaster, e.gate, e.policy, e.sink, testLogger())
}

// run starts a session in its own goroutine and reports completion.
func (e *sessionEnv) run(ctx context.Context, conn Conn, channelID int64, credential string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.newSession().Run(ctx, conn, channelID, credential)
	}()
	return done
}

func TestSessionRejectsMissingCredential(t *testing.T) {
	env := newSessionEnv()
	conn := newFakeConn()

	session := env.newSession()
	session.Run(context.Background(), conn, 7, "")

	closed, status, reason := conn.closeInfo()
	if !closed || status != ClosePolicyViolation || reason != ReasonMissingCredential {
		t.Fatalf("unexpected close: closed=%v status=%d reason=%q", closed, status, reason)
	}
	if session.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", session.State())
	}
	if env.registry.ChannelCount() != 0 {
		t.Fatalf("rejected connection must not register")
	}
}

func TestSessionRejectsUnknownCredential(t *testing.T) {
	env := newSessionEnv()
	conn := newFakeConn()

	env.newSession().Run(context.Background(), conn, 7, "bogus")

	closed, status, reason := conn.closeInfo()
	if !closed || status != ClosePolicyViolation || reason != ReasonUnauthenticated {
		t.Fatalf("unexpected close: closed=%v status=%d reason=%q", closed, status, reason)
	}
	if env.registry.ChannelCount() != 0 {
		t.Fatalf("rejected connection must not register")
	}
}

func TestSessionDeniedConnectsNeverRegister(t *testing.T) {
	env := newSessionEnv()

	// A is not a member of channel 7; channel 9 does not exist.
	env.policy.markMissing(9)

	first := newFakeConn()
	env.newSession().Run(context.Background(), first, 7, "token-a")

	second := newFakeConn()
	env.newSession().Run(context.Background(), second, 9, "token-a")

	for _, conn := range []*fakeConn{first, second} {
		closed, status, reason := conn.closeInfo()
		// Missing channel reads exactly like denied access.
		if !closed || status != ClosePolicyViolation || reason != ReasonForbidden {
			t.Fatalf("unexpected close: closed=%v status=%d reason=%q", closed, status, reason)
		}
	}

	if len(env.registry.Snapshot(7)) != 0 || len(env.registry.Snapshot(9)) != 0 {
		t.Fatalf("denied connects must leave the registry empty")
	}
}

func TestSessionPersistsThenBroadcasts(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)
	env.policy.allow(7, 2)

	ctx := context.Background()
	connA := newFakeConn()
	connB := newFakeConn()

	doneA := env.run(ctx, connA, 7, "token-a")
	doneB := env.run(ctx, connB, 7, "token-b")

	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 2 }, "both sessions registered")

	connA.push("hi")

	// Both connections, the sender's included, receive exactly "A: hi".
	waitFor(t, func() bool { return len(connA.sentCopy()) == 1 && len(connB.sentCopy()) == 1 }, "broadcast delivery")
	if got := connA.sentCopy()[0]; got != "A: hi" {
		t.Fatalf("unexpected frame for A: %q", got)
	}
	if got := connB.sentCopy()[0]; got != "A: hi" {
		t.Fatalf("unexpected frame for B: %q", got)
	}

	stored := env.sink.stored()
	if len(stored) != 1 {
		t.Fatalf("expected exactly one stored message, got %d", len(stored))
	}
	if stored[0].ChannelID != 7 || stored[0].SenderID != 1 || stored[0].Content != "hi" {
		t.Fatalf("unexpected stored message: %+v", stored[0])
	}

	connA.end()
	connB.end()
	<-doneA
	<-doneB

	if env.registry.ChannelCount() != 0 {
		t.Fatalf("expected empty registry after both sessions closed")
	}
}

func TestSessionPerSenderFIFO(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)
	env.policy.allow(7, 2)

	ctx := context.Background()
	connA := newFakeConn()
	connB := newFakeConn()

	doneA := env.run(ctx, connA, 7, "token-a")
	doneB := env.run(ctx, connB, 7, "token-b")

	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 2 }, "both sessions registered")

	frames := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, frame := range frames {
		connA.push(frame)
	}

	waitFor(t, func() bool { return len(connB.sentCopy()) == len(frames) }, "all frames delivered")
	for i, got := range connB.sentCopy() {
		want := "A: " + frames[i]
		if got != want {
			t.Fatalf("frame %d out of order: got %q want %q", i, got, want)
		}
	}

	connA.end()
	connB.end()
	<-doneA
	<-doneB
}

func TestSessionPersistFailureDropsMessage(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)
	env.policy.allow(7, 2)

	ctx := context.Background()
	connA := newFakeConn()
	connB := newFakeConn()

	doneA := env.run(ctx, connA, 7, "token-a")
	doneB := env.run(ctx, connB, 7, "token-b")

	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 2 }, "both sessions registered")

	env.sink.setFailing(true)
	connA.push("lost")

	// A later successful message proves the session survived the failure.
	env.sink.setFailing(false)
	connA.push("kept")

	waitFor(t, func() bool { return len(connB.sentCopy()) == 1 }, "surviving message delivered")
	if got := connB.sentCopy()[0]; got != "A: kept" {
		t.Fatalf("unexpected frame: %q", got)
	}

	stored := env.sink.stored()
	if len(stored) != 1 || stored[0].Content != "kept" {
		t.Fatalf("expected only the surviving message stored, got %+v", stored)
	}

	connA.end()
	connB.end()
	<-doneA
	<-doneB
}

func TestSessionCleanupOnTransportError(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)

	conn := newFakeConn()
	done := env.run(context.Background(), conn, 7, "token-a")

	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 1 }, "session registered")

	conn.fail(errors.New("connection reset"))
	<-done

	if env.registry.ChannelCount() != 0 {
		t.Fatalf("expected registry cleanup after transport error")
	}
	closed, _, _ := conn.closeInfo()
	if !closed {
		t.Fatalf("expected connection to be closed")
	}
}

func TestSessionCleanupOnContextCancel(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)

	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn()
	done := env.run(ctx, conn, 7, "token-a")

	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 1 }, "session registered")

	cancel()
	<-done

	if env.registry.ChannelCount() != 0 {
		t.Fatalf("expected registry cleanup after cancellation")
	}
}

func TestSessionSecondConnectSupersedesFirst(t *testing.T) {
	env := newSessionEnv()
	env.policy.allow(7, 1)
	env.policy.allow(7, 2)

	ctx := context.Background()
	first := newFakeConn()
	second := newFakeConn()
	observer := newFakeConn()

	doneFirst := env.run(ctx, first, 7, "token-a")
	doneObserver := env.run(ctx, observer, 7, "token-b")
	waitFor(t, func() bool { return len(env.registry.Snapshot(7)) == 2 }, "first pair registered")

	// Second connect for (7, user A) replaces the routing entry.
	doneSecond := env.run(ctx, second, 7, "token-a")
	waitFor(t, func() bool {
		for _, conn := range env.registry.Snapshot(7) {
			if conn == Conn(second) {
				return true
			}
		}
		return false
	}, "second connection registered")

	// Broadcasts now reach only the newer handle for user A.
	observer.push("ping")
	waitFor(t, func() bool { return len(second.sentCopy()) == 1 }, "delivery to newer handle")
	if len(first.sentCopy()) != 0 {
		t.Fatalf("superseded handle must not receive broadcasts, got %v", first.sentCopy())
	}

	// The superseded session's teardown leaves the replacement registered.
	first.end()
	<-doneFirst
	if len(env.registry.Snapshot(7)) != 2 {
		t.Fatalf("expected replacement and observer to stay registered")
	}

	second.end()
	observer.end()
	<-doneSecond
	<-doneObserver
}
