package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"

	"quickbasket-backend/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// Client represents a WebSocket client connection
type Client struct {
	UserID    string
	UserRole  string // "customer" or "delivery_agent"
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	db        interface{} // Database connection (will be *sqlx.DB)
	orderSubs map[string]bool
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewClient creates a new WebSocket client
func NewClient(userID string, userRole string, conn *websocket.Conn, hub *Hub, db interface{}) *Client {
	return &Client{
		UserID:    userID,
		UserRole:  userRole,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, 256),
		db:        db,
		orderSubs: make(map[string]bool),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		// Only the connection state is torn down here. A socket dropping
		// mid-delivery leaves the agent row untouched; the last known
		// position stays readable until the agent reconnects.
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			response := map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Format(time.RFC3339),
			}
			responseData, _ := json.Marshal(response)
			c.send <- responseData

		case "subscribe_order":
			c.handleSubscribeOrder(msg.Data)

		case "unsubscribe_order":
			if orderID, ok := msg.Data["order_id"].(string); ok {
				c.hub.UnsubscribeOrder(orderID, c)
			}

		case "location_update":
			// Agent device pushing its own position
			c.handleLocationUpdate(msg.Data)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSubscribeOrder joins an order's tracking channel after checking the
// caller is a party to the order (its customer or its assigned agent).
func (c *Client) handleSubscribeOrder(data map[string]interface{}) {
	orderID, ok := data["order_id"].(string)
	if !ok || orderID == "" {
		log.Printf("❌ subscribe_order without order_id from %s", c.UserID)
		return
	}

	db, ok := c.db.(*sqlx.DB)
	if !ok || db == nil {
		log.Printf("❌ Database connection not available")
		return
	}

	var count int
	query := `SELECT COUNT(*) FROM orders o
			  LEFT JOIN delivery_agents a ON a.id = o.delivery_agent_id
			  WHERE o.id = $1 AND (o.user_id = $2 OR a.user_id = $2)`
	if err := db.Get(&count, query, orderID, c.UserID); err != nil || count == 0 {
		log.Printf("❌ %s not a party to order %s, subscription refused", c.UserID, orderID)
		return
	}

	c.hub.SubscribeOrder(orderID, c)
}

// handleLocationUpdate processes an agent position pushed over the socket:
// a partial-field write onto the agent row, then a push to everyone watching
// the agent's active order.
func (c *Client) handleLocationUpdate(data map[string]interface{}) {
	if c.UserRole != "delivery_agent" {
		log.Printf("❌ location_update from non-agent %s ignored", c.UserID)
		return
	}

	latitude, ok := data["latitude"].(float64)
	if !ok {
		log.Printf("❌ Invalid latitude in location update")
		return
	}

	longitude, ok := data["longitude"].(float64)
	if !ok {
		log.Printf("❌ Invalid longitude in location update")
		return
	}

	db, ok := c.db.(*sqlx.DB)
	if !ok || db == nil {
		log.Printf("❌ Database connection not available")
		return
	}

	now := time.Now().Unix()

	// Partial-field write: position columns only, never the full agent row.
	var agentID string
	query := `UPDATE delivery_agents
			  SET latitude = $1, longitude = $2, location_updated_at = $3, updated_at = $3
			  WHERE user_id = $4 AND status != 'offline'
			  RETURNING id`
	if err := db.QueryRow(query, latitude, longitude, now, c.UserID).Scan(&agentID); err != nil {
		log.Printf("❌ Error saving agent location: %v", err)
		return
	}

	update := map[string]interface{}{
		"type": "agent_location_update",
		"data": models.AgentLocation{
			AgentID:   agentID,
			Latitude:  latitude,
			Longitude: longitude,
			UpdatedAt: now,
		},
	}

	// Push to the tracking channel of the agent's active order, if any.
	var orderID string
	activeQuery := `SELECT id FROM orders
					WHERE delivery_agent_id = $1
					  AND status IN ('preparing', 'out_for_delivery')
					LIMIT 1`
	if err := db.Get(&orderID, activeQuery, agentID); err == nil {
		c.hub.BroadcastToOrder(orderID, update)
	}
}
