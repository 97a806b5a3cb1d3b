package store

import (
	"context"
	"errors"
	"time"

	"routeopt/internal/model"
)

// Store is the persistence interface used by the API server: solved plans,
// webhook subscriptions, the delivery queue, and per-solve engine metrics.
type Store interface {
	// Solutions
	SaveSolution(ctx context.Context, sol *model.Solution) error
	GetSolution(ctx context.Context, id string) (*model.Solution, error)
	ListSolutions(ctx context.Context, limit int) ([]*model.Solution, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error

	// Solve metrics
	SaveSolveMetrics(ctx context.Context, solutionID string, metrics map[string]any) error
	ListSolveMetrics(ctx context.Context, limit int) ([]map[string]any, error)
}

// WebhookDelivery is one pending or finished webhook attempt.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
