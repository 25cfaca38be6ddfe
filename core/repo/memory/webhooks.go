package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/webhook"
)

// WebhookRepository is an in-memory repo.WebhookRepository.
type WebhookRepository struct {
	mu            sync.RWMutex
	subscriptions map[string]webhook.Subscription
	attempts      []webhook.Attempt
}

// NewWebhookRepository constructs an empty WebhookRepository.
func NewWebhookRepository() *WebhookRepository {
	return &WebhookRepository{subscriptions: make(map[string]webhook.Subscription)}
}

func (r *WebhookRepository) GetSubscription(ctx context.Context, subscriptionID string) (webhook.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subscriptions[subscriptionID]
	if !ok {
		return webhook.Subscription{}, agentpayerrors.NotFound("webhook_subscription", subscriptionID)
	}
	return sub, nil
}

func (r *WebhookRepository) PutSubscription(ctx context.Context, sub webhook.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions[sub.SubscriptionID] = sub
	return nil
}

func (r *WebhookRepository) ListActiveSubscriptions(ctx context.Context) ([]webhook.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []webhook.Subscription
	for _, s := range r.subscriptions {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *WebhookRepository) RecordAttempt(ctx context.Context, attempt webhook.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *WebhookRepository) AttemptsForEvent(ctx context.Context, eventID string) ([]webhook.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []webhook.Attempt
	for _, a := range r.attempts {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}
