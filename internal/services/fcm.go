package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"quickbasket-backend/internal/models"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments (Railway, Fly.io, Render) where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	ctx := context.Background()

	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// statusNotificationText maps an order status to the customer-facing push copy.
func statusNotificationText(status models.OrderStatus) (title, body string, ok bool) {
	switch status {
	case models.OrderStatusConfirmed:
		return "Order confirmed!", "We've received your order and are finding a delivery partner.", true
	case models.OrderStatusPreparing:
		return "Order accepted!", "A delivery partner has picked up your order and it's being packed.", true
	case models.OrderStatusOutForDelivery:
		return "Out for delivery!", "Your order is on its way. Track it live in the app.", true
	case models.OrderStatusDelivered:
		return "Order delivered", "Your order has arrived. Thanks for shopping with us!", true
	default:
		return "", "", false
	}
}

// SendOrderStatusNotification notifies the customer that their order moved
// to a new lifecycle stage.
func (s *FCMService) SendOrderStatusNotification(token, orderID string, status models.OrderStatus) error {
	title, body, ok := statusNotificationText(status)
	if !ok {
		return nil
	}

	ctx := context.Background()
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":     "order_status",
			"order_id": orderID,
			"status":   string(status),
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("📱 FCM order status notification sent: %s", response)
	return nil
}

// SendNewOrderNotification tells an online agent's device that fresh
// assignable work appeared.
func (s *FCMService) SendNewOrderNotification(token, orderID string, grandTotal float64) error {
	ctx := context.Background()
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "New order available!",
			Body:  fmt.Sprintf("A ₹%.0f order is waiting for a delivery partner.", grandTotal),
		},
		Data: map[string]string{
			"type":     "new_order",
			"order_id": orderID,
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("📱 FCM new order notification sent: %s", response)
	return nil
}
