package bot

import (
	"context"
	"sync"
	"time"
)

const (
	confirmEmoji = "✅"
	cancelEmoji  = "❌"

	// ConfirmTimeout bounds how long a proposal waits for an acknowledgement.
	ConfirmTimeout = 30 * time.Second
)

// ConfirmOutcome is the terminal state of a confirmation gate.
type ConfirmOutcome int

const (
	ConfirmTimedOut ConfirmOutcome = iota
	Confirmed
	Cancelled
)

// PendingConfirm is a single-resolution slot: the first qualifying reaction
// decides the outcome, later signals are ignored.
type PendingConfirm struct {
	userID string
	ch     chan ConfirmOutcome
	once   sync.Once
}

func (p *PendingConfirm) resolve(outcome ConfirmOutcome) {
	p.once.Do(func() { p.ch <- outcome })
}

// Await blocks until the slot resolves or the timeout passes.
func (p *PendingConfirm) Await(ctx context.Context, timeout time.Duration) ConfirmOutcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-p.ch:
		return outcome
	case <-timer.C:
		return ConfirmTimedOut
	case <-ctx.Done():
		return ConfirmTimedOut
	}
}

// Confirmations indexes pending confirmation slots by prompt message id and
// routes reaction events to them.
type Confirmations struct {
	mu      sync.Mutex
	pending map[string]*PendingConfirm
}

func NewConfirmations() *Confirmations {
	return &Confirmations{pending: make(map[string]*PendingConfirm)}
}

// Arm registers a slot for messageID that only userID may resolve.
func (c *Confirmations) Arm(messageID, userID string) *PendingConfirm {
	p := &PendingConfirm{userID: userID, ch: make(chan ConfirmOutcome, 1)}
	c.mu.Lock()
	c.pending[messageID] = p
	c.mu.Unlock()
	return p
}

// Discard removes the slot once its flow has finished.
func (c *Confirmations) Discard(messageID string) {
	c.mu.Lock()
	delete(c.pending, messageID)
	c.mu.Unlock()
}

// Resolve feeds a reaction to the matching slot. Only the original
// requester's ✅/❌ qualifies; everything else is ignored. Returns whether
// the reaction resolved a pending confirmation.
func (c *Confirmations) Resolve(messageID, userID, emoji string) bool {
	c.mu.Lock()
	p, ok := c.pending[messageID]
	c.mu.Unlock()
	if !ok || p.userID != userID {
		return false
	}

	switch emoji {
	case confirmEmoji:
		p.resolve(Confirmed)
	case cancelEmoji:
		p.resolve(Cancelled)
	default:
		return false
	}
	return true
}
