package clock

import (
	"sync"
	"testing"
	"time"
)

func TestPollerTickNotifies(t *testing.T) {
	base := time.Date(2025, 3, 29, 15, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	calls := 0
	source := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	p, err := NewPoller(DefaultSpec, time.UTC, source)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	if got, want := p.Now(), base.Add(time.Minute); !got.Equal(want) {
		t.Fatalf("initial now = %v, want %v", got, want)
	}

	var seen []time.Time
	p.Subscribe(func(now time.Time) { seen = append(seen, now) })
	p.Tick()

	want := base.Add(2 * time.Minute)
	if !p.Now().Equal(want) {
		t.Errorf("now = %v, want %v", p.Now(), want)
	}
	if len(seen) != 1 || !seen[0].Equal(want) {
		t.Errorf("subscriber saw %v", seen)
	}
}

func TestPollerRejectsBadSchedule(t *testing.T) {
	if _, err := NewPoller("every minute please", time.UTC, nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestPollerStartStop(t *testing.T) {
	p, err := NewPoller("@every 1h", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	p.Start()
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
