// Package assignment bridges confirmed-but-unassigned orders to online
// delivery agents. Assignment is agent-pull: there is no dispatcher process.
package assignment

import (
	"context"
	"errors"
	"fmt"

	"quickbasket-backend/internal/models"
)

// ErrOrderTaken is returned when the conditional assignment update affects
// zero rows - another agent already claimed the order. Callers treat this as
// "lost the race", not as a retryable failure.
var ErrOrderTaken = errors.New("order no longer available")

// ErrAgentUnavailable is returned when the agent is not in the available
// state - offline, or already holding an active order. An agent carries at
// most one active order at a time.
var ErrAgentUnavailable = errors.New("agent is not available for new orders")

// Store is the data-layer surface the coordinator needs. AssignOrder and
// MarkAgentBusy must each be a single conditional update - the serialization
// points for racing accepts - never a read-then-write.
type Store interface {
	// ListAssignable returns confirmed, unassigned orders oldest-first.
	ListAssignable(ctx context.Context) ([]models.Order, error)
	// AssignOrder atomically sets the agent and advances the status, only if
	// the order is still confirmed and unassigned. Returns false when the
	// condition no longer held.
	AssignOrder(ctx context.Context, orderID, agentID string) (bool, error)
	// MarkAgentBusy atomically moves the agent from available to busy.
	// Returns false when the agent was not available - the conditional
	// update is what stops one agent claiming two orders from two tabs.
	MarkAgentBusy(ctx context.Context, agentID string) (bool, error)
	SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error
}

type Coordinator struct {
	store Store
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// ListAssignable returns the current assignable orders, FIFO by creation
// time so early orders are not starved.
func (c *Coordinator) ListAssignable(ctx context.Context) ([]models.Order, error) {
	return c.store.ListAssignable(ctx)
}

// Accept claims an order for an agent. Step one conditionally moves the
// agent from available to busy, so an agent already holding an active order
// cannot take a second one. Step two is the conditional order update; if two
// agents race for the same order, exactly one lands and the loser reverts to
// available with ErrOrderTaken and no order state changed.
func (c *Coordinator) Accept(ctx context.Context, orderID, agentID string) error {
	claimed, err := c.store.MarkAgentBusy(ctx, agentID)
	if err != nil {
		return fmt.Errorf("mark agent %s busy: %w", agentID, err)
	}
	if !claimed {
		return ErrAgentUnavailable
	}

	ok, err := c.store.AssignOrder(ctx, orderID, agentID)
	if err != nil {
		c.release(ctx, agentID)
		return fmt.Errorf("assign order %s: %w", orderID, err)
	}
	if !ok {
		c.release(ctx, agentID)
		return ErrOrderTaken
	}
	return nil
}

// release returns a losing agent to the available pool. Best effort: the
// agent can always toggle status manually if this write is lost.
func (c *Coordinator) release(ctx context.Context, agentID string) {
	_ = c.store.SetAgentStatus(ctx, agentID, models.AgentStatusAvailable)
}
