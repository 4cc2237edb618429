package fallback

import (
	"sync"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/metrics"
	"github.com/jonboulle/clockwork"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

// Breaker tracks consecutive transient failures of the primary store. While
// open, callers skip the primary; once openFor has elapsed a single trial call is
// let through. A nil *Breaker always lets calls through.
type Breaker struct {
	mu               sync.Mutex
	clock            clockwork.Clock
	st               state
	consecutiveFails int
	failThreshold    int
	openFor          time.Duration
	nextTryAt        time.Time
	trialInFlight    bool
}

// NewBreaker returns nil when threshold <= 0, which disables breaking.
func NewBreaker(threshold int, openFor time.Duration, clock clockwork.Clock) *Breaker {
	if threshold <= 0 {
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Breaker{clock: clock, failThreshold: threshold, openFor: openFor}
}

// Open reports whether calls are currently diverted from the primary.
func (b *Breaker) Open() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st != closed
}

func (b *Breaker) TryAcquire() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	switch b.st {
	case closed:
		return true
	case open:
		if now.After(b.nextTryAt) && !b.trialInFlight {
			b.st = halfOpen
			b.trialInFlight = true
			return true
		}
		return false
	case halfOpen:
		if !b.trialInFlight {
			b.trialInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) OnSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.consecutiveFails = 0
	b.st = closed
	b.trialInFlight = false
	b.mu.Unlock()
	metrics.BreakerOpen.Set(0)
}

// Abandon releases a call that ended without a verdict on the primary, such
// as a cancelled request. A pending trial call goes back to open so the next
// call may try the primary again.
func (b *Breaker) Abandon() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.st = open
	}
	b.trialInFlight = false
}

func (b *Breaker) OnFailure() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.st = open
		b.nextTryAt = b.clock.Now().Add(b.openFor)
		b.trialInFlight = false
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failThreshold {
		b.st = open
		b.nextTryAt = b.clock.Now().Add(b.openFor)
		metrics.BreakerOpen.Set(1)
	}
}
