package broker

import (
	"context"
	"testing"
	"time"
)

// recordingRecorder captures end notifications for assertion.
type recordingRecorder struct {
	nopRecorder
	ended []string
}

func (r *recordingRecorder) SessionEnded(sessionID, reason string) {
	r.ended = append(r.ended, sessionID+":"+reason)
}

func TestReap_EvictsExpired(t *testing.T) {
	b := New(&fakeDialer{}, Options{BannerDelay: time.Millisecond})

	expiredTr := newFakeTransport()
	expired := newSession("expired", "h", 22, "u", expiredTr, expiredTr.shell, time.Millisecond)
	liveTr := newFakeTransport()
	live := newSession("live", "h", 22, "u", liveTr, liveTr.shell, time.Hour)
	for _, s := range []*Session{expired, live} {
		if err := b.store.Insert(s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	evicted := b.reap(time.Now().Add(10 * time.Millisecond))
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, ok := b.store.Get("expired"); ok {
		t.Error("expired session still stored")
	}
	if _, ok := b.store.Get("live"); !ok {
		t.Error("live session evicted")
	}
	if expiredTr.closed.Load() != 1 {
		t.Errorf("expected transport closed once, got %d", expiredTr.closed.Load())
	}
	if liveTr.closed.Load() != 0 {
		t.Error("live transport should stay open")
	}
}

func TestReap_ToleratesConcurrentRemove(t *testing.T) {
	b := New(&fakeDialer{}, Options{BannerDelay: time.Millisecond})

	tr := newFakeTransport()
	sess := newSession("gone", "h", 22, "u", tr, tr.shell, time.Millisecond)
	if err := b.store.Insert(sess); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Explicit removal wins before the reaper processes its snapshot.
	if err := b.Remove("gone"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if evicted := b.reap(time.Now().Add(time.Hour)); evicted != 0 {
		t.Errorf("expected 0 evictions, got %d", evicted)
	}
	if tr.closed.Load() != 1 {
		t.Errorf("expected exactly one disconnect, got %d", tr.closed.Load())
	}
}

func TestReaper_Loop(t *testing.T) {
	tr := newFakeTransport()
	b := New(&fakeDialer{transports: []*fakeTransport{tr}}, Options{
		BannerDelay:  time.Millisecond,
		ReapInterval: 5 * time.Millisecond,
	})
	b.Start()
	defer b.Shutdown()

	req := passwordRequest()
	req.TimeoutSeconds = 0 // expires immediately
	res, err := b.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := b.store.Get(res.SessionID); !ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok := b.store.Get(res.SessionID); ok {
		t.Fatal("session not reaped within deadline")
	}
	if tr.closed.Load() != 1 {
		t.Errorf("expected transport closed once, got %d", tr.closed.Load())
	}
}

func TestShutdown_ReleasesRemaining(t *testing.T) {
	tr := newFakeTransport()
	rec := &recordingRecorder{}
	b := New(&fakeDialer{transports: []*fakeTransport{tr}}, Options{
		BannerDelay: time.Millisecond,
		Recorder:    rec,
	})
	b.Start()

	res, err := b.Create(context.Background(), passwordRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	b.Shutdown()

	if b.store.Len() != 0 {
		t.Errorf("expected empty store after shutdown, got %d", b.store.Len())
	}
	if tr.closed.Load() != 1 {
		t.Errorf("expected transport closed once, got %d", tr.closed.Load())
	}
	found := false
	for _, e := range rec.ended {
		if e == res.SessionID+":shutdown" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected shutdown end record, got %v", rec.ended)
	}
}
