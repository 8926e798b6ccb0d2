package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quickbasket-backend/internal/models"
)

// memoryStore mirrors the conditional-update semantics of PostgresStore so
// the coordinator's race behavior can be exercised without a database.
type memoryStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	agents map[string]models.AgentStatus
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders: make(map[string]*models.Order),
		agents: make(map[string]models.AgentStatus),
	}
}

func (m *memoryStore) addOrder(id string, createdAt int64, status models.OrderStatus, agentID *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id] = &models.Order{ID: id, CreatedAt: createdAt, Status: status, DeliveryAgentID: agentID}
}

func (m *memoryStore) addAgent(id string, status models.AgentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[id] = status
}

func (m *memoryStore) agentStatus(id string) models.AgentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agents[id]
}

func (m *memoryStore) ListAssignable(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.Status == models.OrderStatusConfirmed && o.DeliveryAgentID == nil {
			out = append(out, *o)
		}
	}
	// FIFO by creation time
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt < out[i].CreatedAt {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memoryStore) AssignOrder(ctx context.Context, orderID, agentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusConfirmed || o.DeliveryAgentID != nil {
		return false, nil
	}
	id := agentID
	o.DeliveryAgentID = &id
	o.Status = models.OrderStatusPreparing
	return true, nil
}

func (m *memoryStore) MarkAgentBusy(ctx context.Context, agentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.agents[agentID] != models.AgentStatusAvailable {
		return false, nil
	}
	m.agents[agentID] = models.AgentStatusBusy
	return true, nil
}

func (m *memoryStore) SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agentID] = status
	return nil
}

func TestListAssignableIsFIFO(t *testing.T) {
	store := newMemoryStore()
	agent := "a1"
	store.addOrder("newest", 300, models.OrderStatusConfirmed, nil)
	store.addOrder("oldest", 100, models.OrderStatusConfirmed, nil)
	store.addOrder("middle", 200, models.OrderStatusConfirmed, nil)
	store.addOrder("pending", 50, models.OrderStatusPending, nil)
	store.addOrder("claimed", 60, models.OrderStatusConfirmed, &agent)

	c := NewCoordinator(store)
	got, err := c.ListAssignable(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d assignable orders, want 3", len(got))
	}
	want := []string{"oldest", "middle", "newest"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestAcceptMarksAgentBusy(t *testing.T) {
	store := newMemoryStore()
	store.addOrder("o1", 100, models.OrderStatusConfirmed, nil)
	store.addAgent("agent-a", models.AgentStatusAvailable)
	c := NewCoordinator(store)

	if err := c.Accept(context.Background(), "o1", "agent-a"); err != nil {
		t.Fatal(err)
	}

	o := store.orders["o1"]
	if o.Status != models.OrderStatusPreparing || o.DeliveryAgentID == nil || *o.DeliveryAgentID != "agent-a" {
		t.Fatalf("order after accept: %+v", o)
	}
	if store.agentStatus("agent-a") != models.AgentStatusBusy {
		t.Fatalf("agent status = %s, want busy", store.agentStatus("agent-a"))
	}
}

func TestAcceptRejectsAgentHoldingActiveOrder(t *testing.T) {
	store := newMemoryStore()
	store.addOrder("o1", 100, models.OrderStatusConfirmed, nil)
	store.addOrder("o2", 200, models.OrderStatusConfirmed, nil)
	store.addAgent("agent-a", models.AgentStatusAvailable)
	c := NewCoordinator(store)

	if err := c.Accept(context.Background(), "o1", "agent-a"); err != nil {
		t.Fatal(err)
	}

	// Second accept from the same agent while busy: one active order at a
	// time, so this must be refused and o2 must stay assignable.
	err := c.Accept(context.Background(), "o2", "agent-a")
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("got %v, want ErrAgentUnavailable", err)
	}
	o2 := store.orders["o2"]
	if o2.Status != models.OrderStatusConfirmed || o2.DeliveryAgentID != nil {
		t.Fatalf("second order was dispatched anyway: %+v", o2)
	}
	if store.agentStatus("agent-a") != models.AgentStatusBusy {
		t.Fatalf("agent status = %s, want busy (unchanged)", store.agentStatus("agent-a"))
	}
}

func TestAcceptRejectsOfflineAgent(t *testing.T) {
	store := newMemoryStore()
	store.addOrder("o1", 100, models.OrderStatusConfirmed, nil)
	store.addAgent("agent-a", models.AgentStatusOffline)
	c := NewCoordinator(store)

	err := c.Accept(context.Background(), "o1", "agent-a")
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("got %v, want ErrAgentUnavailable", err)
	}
	if store.orders["o1"].DeliveryAgentID != nil {
		t.Fatal("offline agent received an order")
	}
}

func TestConcurrentAcceptsExactlyOneWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := newMemoryStore()
		store.addOrder("o1", 100, models.OrderStatusConfirmed, nil)
		store.addAgent("agent-a", models.AgentStatusAvailable)
		store.addAgent("agent-b", models.AgentStatusAvailable)
		c := NewCoordinator(store)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for _, agent := range []string{"agent-a", "agent-b"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				results <- c.Accept(ctx, "o1", id)
			}(agent)
		}
		wg.Wait()
		cancel()
		close(results)

		var wins, losses int
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrOrderTaken):
				losses++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || losses != 1 {
			t.Fatalf("round %d: wins=%d losses=%d, want exactly one of each", round, wins, losses)
		}

		o := store.orders["o1"]
		if o.DeliveryAgentID == nil {
			t.Fatal("order ended unassigned")
		}
		winner := *o.DeliveryAgentID
		if winner != "agent-a" && winner != "agent-b" {
			t.Fatalf("order assigned to unknown agent %s", winner)
		}

		// Winner busy, loser back in the available pool.
		loser := "agent-a"
		if winner == "agent-a" {
			loser = "agent-b"
		}
		if store.agentStatus(winner) != models.AgentStatusBusy {
			t.Fatalf("round %d: winner %s status = %s, want busy", round, winner, store.agentStatus(winner))
		}
		if store.agentStatus(loser) != models.AgentStatusAvailable {
			t.Fatalf("round %d: loser %s status = %s, want available", round, loser, store.agentStatus(loser))
		}
	}
}

func TestConcurrentAcceptsOneAgentTwoOrders(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := newMemoryStore()
		store.addOrder("o1", 100, models.OrderStatusConfirmed, nil)
		store.addOrder("o2", 200, models.OrderStatusConfirmed, nil)
		store.addAgent("agent-a", models.AgentStatusAvailable)
		c := NewCoordinator(store)

		// Same agent racing itself from two tabs: at most one accept lands.
		results := make(chan error, 2)
		var wg sync.WaitGroup
		for _, orderID := range []string{"o1", "o2"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				results <- c.Accept(context.Background(), id, "agent-a")
			}(orderID)
		}
		wg.Wait()
		close(results)

		var wins, refusals int
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAgentUnavailable):
				refusals++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || refusals != 1 {
			t.Fatalf("round %d: wins=%d refusals=%d, want exactly one of each", round, wins, refusals)
		}

		var assigned int
		for _, o := range store.orders {
			if o.DeliveryAgentID != nil {
				assigned++
			}
		}
		if assigned != 1 {
			t.Fatalf("round %d: agent holds %d active orders, want 1", round, assigned)
		}
	}
}

func TestAcceptAlreadyAssignedRevertsLoserToAvailable(t *testing.T) {
	store := newMemoryStore()
	other := "agent-x"
	store.addOrder("o1", 100, models.OrderStatusConfirmed, &other)
	store.addAgent("agent-a", models.AgentStatusAvailable)
	c := NewCoordinator(store)

	err := c.Accept(context.Background(), "o1", "agent-a")
	if !errors.Is(err, ErrOrderTaken) {
		t.Fatalf("got %v, want ErrOrderTaken", err)
	}
	// The losing accept must not leave the agent stuck in busy.
	if store.agentStatus("agent-a") != models.AgentStatusAvailable {
		t.Fatalf("agent status = %s, want available", store.agentStatus("agent-a"))
	}
	if *store.orders["o1"].DeliveryAgentID != "agent-x" {
		t.Fatal("assignment changed on a lost accept")
	}
}
