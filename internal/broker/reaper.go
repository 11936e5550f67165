package broker

import (
	"log"
	"time"
)

// Start launches the expiry reaper. It runs until Shutdown.
func (b *Broker) Start() {
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.runReaper()
	log.Printf("[broker] expiry reaper started (interval %s)", b.reapInterval)
}

func (b *Broker) runReaper() {
	defer close(b.done)
	ticker := time.NewTicker(b.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case now := <-ticker.C:
			b.reap(now)
		}
	}
}

// reap evicts every session whose deadline is at or before now. Each entry is
// handled independently; a session already removed by an explicit Remove is
// skipped silently.
func (b *Broker) reap(now time.Time) int {
	evicted := 0
	for _, sess := range b.store.Snapshot() {
		if !sess.Expired(now) {
			continue
		}
		if _, ok := b.store.Remove(sess.ID); !ok {
			continue // explicit removal won the race
		}
		sess.release()
		b.recorder.SessionEnded(sess.ID, "expired")
		log.Printf("[broker] session %s expired and was reaped", sess.ID)
		evicted++
	}
	return evicted
}

// Shutdown stops the reaper and releases every remaining session.
func (b *Broker) Shutdown() {
	if b.stop != nil {
		close(b.stop)
		<-b.done
	}
	for _, sess := range b.store.Snapshot() {
		if _, ok := b.store.Remove(sess.ID); !ok {
			continue
		}
		sess.release()
		b.recorder.SessionEnded(sess.ID, "shutdown")
	}
	log.Printf("[broker] shut down")
}
