package assignment

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"quickbasket-backend/internal/models"
)

// PostgresStore implements Store over the orders and delivery_agents tables.
// Every write names only its own column subset; the order row is shared with
// the location and status writers and must never see a full-record save.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListAssignable(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	query := `SELECT * FROM orders
			  WHERE status = 'confirmed' AND delivery_agent_id IS NULL
			  ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *PostgresStore) AssignOrder(ctx context.Context, orderID, agentID string) (bool, error) {
	// The WHERE clause is the whole race-safety story: the backend's
	// row-level atomicity guarantees at most one of two concurrent accepts
	// matches the still-unassigned row.
	query := `UPDATE orders
			  SET delivery_agent_id = $1,
				  status = 'preparing',
			      updated_at = $2
			  WHERE id = $3
			    AND status = 'confirmed'
			    AND delivery_agent_id IS NULL`
	res, err := s.db.ExecContext(ctx, query, agentID, time.Now().Unix(), orderID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *PostgresStore) MarkAgentBusy(ctx context.Context, agentID string) (bool, error) {
	// Conditional on available: an agent mid-order (busy/delivering) or
	// offline never matches, so one agent cannot hold two active orders.
	query := `UPDATE delivery_agents
			  SET status = 'busy', updated_at = $1
			  WHERE id = $2 AND status = 'available'`
	res, err := s.db.ExecContext(ctx, query, time.Now().Unix(), agentID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *PostgresStore) SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	query := `UPDATE delivery_agents
			  SET status = $1, updated_at = $2
			  WHERE id = $3`
	_, err := s.db.ExecContext(ctx, query, status, time.Now().Unix(), agentID)
	return err
}
