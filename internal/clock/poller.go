// Package clock keeps a periodically refreshed "now" for the now indicator.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "festgrid/internal/log"
)

// DefaultSpec refreshes once a minute.
const DefaultSpec = "@every 1m"

// Poller samples the wall clock on a cron schedule and notifies
// subscribers after each sample.
type Poller struct {
	cron   *cron.Cron
	source func() time.Time
	loc    *time.Location

	mu   sync.RWMutex
	now  time.Time
	subs []func(time.Time)
}

// NewPoller validates spec and records an initial sample. A nil source uses
// time.Now; a nil loc uses time.Local.
func NewPoller(spec string, loc *time.Location, source func() time.Time) (*Poller, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.Local
	}
	if source == nil {
		source = time.Now
	}
	p := &Poller{
		cron:   cron.New(cron.WithLocation(loc)),
		source: source,
		loc:    loc,
	}
	if _, err := p.cron.AddFunc(spec, p.Tick); err != nil {
		return nil, fmt.Errorf("clock: invalid schedule %q: %w", spec, err)
	}
	p.now = source().In(loc)
	return p, nil
}

// Now returns the most recent sample.
func (p *Poller) Now() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.now
}

// Subscribe registers fn to run after every sample. fn runs on the cron
// goroutine and must not block.
func (p *Poller) Subscribe(fn func(time.Time)) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Tick takes a sample immediately and notifies subscribers.
func (p *Poller) Tick() {
	now := p.source().In(p.loc)

	p.mu.Lock()
	p.now = now
	subs := append([]func(time.Time){}, p.subs...)
	p.mu.Unlock()

	appLog.Debug("clock tick", "now", now.Format(time.RFC3339))
	for _, fn := range subs {
		fn(now)
	}
}

func (p *Poller) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running tick to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}
