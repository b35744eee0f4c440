// Package notify fires one-shot daily reminders for today's tasks.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"daylist/internal/datekey"
	"daylist/internal/tasks"
)

const (
	DefaultInterval = time.Minute
	clockLayout     = "15:04"
)

// Due is a reminder that just fired.
type Due struct {
	Date time.Time
	Task tasks.Task
}

// Poller checks today's tasks for armed reminders whose minute has come.
// A fired reminder is disabled, so it fires at most once per enablement.
type Poller struct {
	svc      *tasks.Service
	logger   *log.Logger
	interval time.Duration
	now      func() time.Time
	onDue    func(Due)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// OnDue sets the callback that surfaces a fired reminder.
func OnDue(fn func(Due)) Option {
	return func(p *Poller) {
		p.onDue = fn
	}
}

func New(svc *tasks.Service, logger *log.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	p := &Poller{
		svc:      svc,
		logger:   logger,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Check fires every reminder due at now. Only now's own date is scanned.
func (p *Poller) Check(now time.Time) []Due {
	today := datekey.StartOfDay(now)
	minute := now.Format(clockLayout)

	var fired []Due
	for _, t := range p.svc.View(today).Tasks {
		if t.Completed || !t.Armed() || t.NotifyTime != minute {
			continue
		}
		d := Due{Date: today, Task: t}
		p.logger.Info("reminder due", "date", datekey.ToKey(today), "id", t.ID, "text", t.Text, "at", t.NotifyTime)
		if p.onDue != nil {
			p.onDue(d)
		}
		if _, err := p.svc.SetNotificationEnabled(today, t.ID, false, ""); err != nil {
			p.logger.Error("disable fired reminder", "id", t.ID, "err", err)
		}
		fired = append(fired, d)
	}
	return fired
}

// Run checks once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(p.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(p.now())
		}
	}
}

// Start runs the poller in the background, stopping any run already in progress.
// The lock is held until the old run has exited so two runs never overlap.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go func() {
		defer close(done)
		p.Run(runCtx)
	}()
}

// Stop cancels the background run and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
