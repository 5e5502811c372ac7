package agent

import (
	"fmt"

	turnkit "github.com/stephencalder/turnkit"
)

// decision is a caller's verdict on a pending invocation.
type decision struct {
	approved bool
	reason   string
}

// pendingConfirmation parks one invocation on the confirmation gate until
// the caller decides. An invocation is in at most one of pending, executed,
// or rejected at any time; it leaves the pending set the moment a decision
// is routed to the waiting generation goroutine.
type pendingConfirmation struct {
	invocation turnkit.ToolInvocation
	decisionCh chan decision
	reset      chan struct{}
}

// Confirm approves the pending invocation with the given id, allowing the
// generation cycle to proceed to execution. Returns an error if no
// confirmation is pending for that id.
func (o *Orchestrator) Confirm(invocationID string) error {
	return o.decide(invocationID, decision{approved: true})
}

// Reject declines the pending invocation with the given id. The rejection
// is fed back into the conversation as an error outcome so the model can
// react to it. The reason may be empty.
func (o *Orchestrator) Reject(invocationID, reason string) error {
	return o.decide(invocationID, decision{approved: false, reason: reason})
}

func (o *Orchestrator) decide(invocationID string, d decision) error {
	o.mu.Lock()
	p, ok := o.pending[invocationID]
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("agent: no pending confirmation for invocation %q", invocationID)
	}

	// Non-blocking send: a duplicate decision for the same invocation is
	// dropped rather than deadlocking the caller.
	select {
	case p.decisionCh <- d:
	default:
	}
	return nil
}

// PendingConfirmations returns the invocations currently awaiting a
// decision, in the order they were gated.
func (o *Orchestrator) PendingConfirmations() []turnkit.ToolInvocation {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]turnkit.ToolInvocation, 0, len(o.pendingOrder))
	for _, id := range o.pendingOrder {
		if p, ok := o.pending[id]; ok {
			out = append(out, p.invocation)
		}
	}
	return out
}

// registerPending adds an invocation to the pending set. It must be called
// before the pending-confirmation event is emitted, so a caller reacting to
// the event always finds the entry.
func (o *Orchestrator) registerPending(inv turnkit.ToolInvocation) *pendingConfirmation {
	p := &pendingConfirmation{
		invocation: inv,
		decisionCh: make(chan decision, 1),
	}

	o.mu.Lock()
	o.pending[inv.ID] = p
	o.pendingOrder = append(o.pendingOrder, inv.ID)
	p.reset = o.resetCh
	o.mu.Unlock()
	return p
}

// awaitDecision parks the generation goroutine until the caller confirms or
// rejects the invocation, or the conversation is reset. Cancellation does
// not unblock it: there is no in-flight operation to cancel while awaiting
// confirmation, so the state is simply abandoned on reset.
func (o *Orchestrator) awaitDecision(p *pendingConfirmation) (decision, bool) {
	defer func() {
		id := p.invocation.ID
		o.mu.Lock()
		delete(o.pending, id)
		for i, pid := range o.pendingOrder {
			if pid == id {
				o.pendingOrder = append(o.pendingOrder[:i], o.pendingOrder[i+1:]...)
				break
			}
		}
		o.mu.Unlock()
	}()

	select {
	case d := <-p.decisionCh:
		return d, false
	case <-p.reset:
		return decision{}, true
	}
}
